// Package logging builds the zap logger and the plain-text error log used by
// the global failure handler.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger for the given environment and level.
func NewLogger(environment, level string) (*zap.Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			config.Level.SetLevel(lvl)
		}
	}

	return config.Build()
}

// ErrorLog appends timestamped lines to a plain-text error log file. It is
// the destination for panics and unhandled failures.
type ErrorLog struct {
	mu   sync.Mutex
	path string
}

// NewErrorLog creates the error log, ensuring its directory exists.
func NewErrorLog(path string) (*ErrorLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	return &ErrorLog{path: path}, nil
}

// Append writes one timestamped line. Failures to append are silently
// dropped: the error log must never take the service down.
func (e *ErrorLog) Append(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s\n", time.Now().UTC().Format(time.RFC3339), message)
}

// Path returns the error log file path.
func (e *ErrorLog) Path() string {
	return e.path
}
