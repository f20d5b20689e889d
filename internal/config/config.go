// Package config loads the service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Dir string `yaml:"dir"`
}

// BackupConfig configures the snapshot manager and its schedules.
type BackupConfig struct {
	Dir            string        `yaml:"dir"`
	AutoInterval   time.Duration `yaml:"auto_interval"`
	PurgeInterval  time.Duration `yaml:"purge_interval"`
	RetentionCount int           `yaml:"retention_count"`
	RetentionDays  int           `yaml:"retention_days"`
}

// LoggingConfig configures structured logging and the error log file.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Environment  string `yaml:"environment"`
	ErrorLogPath string `yaml:"error_log_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Dir: "./data",
		},
		Backup: BackupConfig{
			Dir:            "./backups",
			AutoInterval:   6 * time.Hour,
			PurgeInterval:  24 * time.Hour,
			RetentionCount: 10,
			RetentionDays:  30,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Environment:  "development",
			ErrorLogPath: "./logs/error.log",
		},
	}
}

// Load reads the YAML file at path (when it exists) over the defaults and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Backup.RetentionCount < 0 {
		cfg.Backup.RetentionCount = 0
	}
	return cfg, nil
}

// applyEnv overrides individual settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DB_DIR"); v != "" {
		c.Database.Dir = v
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Environment = v
	}
	if v := os.Getenv("ERROR_LOG_PATH"); v != "" {
		c.Logging.ErrorLogPath = v
	}
	if v := os.Getenv("BACKUP_RETENTION_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backup.RetentionCount = n
		}
	}
	if v := os.Getenv("BACKUP_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backup.RetentionDays = n
		}
	}
}

// Production reports whether the service runs in production mode. Raw store
// error messages are hidden from HTTP responses in production.
func (c *Config) Production() bool {
	return c.Logging.Environment == "production"
}
