// Command server runs the gestor-demandas HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/api"
	"github.com/dmarinho/gestor-demandas/internal/audit"
	"github.com/dmarinho/gestor-demandas/internal/backup"
	"github.com/dmarinho/gestor-demandas/internal/config"
	"github.com/dmarinho/gestor-demandas/internal/db"
	"github.com/dmarinho/gestor-demandas/internal/demandas"
	"github.com/dmarinho/gestor-demandas/internal/logging"
	"github.com/dmarinho/gestor-demandas/internal/metrics"
	"github.com/dmarinho/gestor-demandas/internal/models"
	"github.com/dmarinho/gestor-demandas/internal/notify"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging.Environment, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("servidor encerrou com erro", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	errorLog, err := logging.NewErrorLog(cfg.Logging.ErrorLogPath)
	if err != nil {
		return fmt.Errorf("error log: %w", err)
	}

	database, err := db.Open(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()

	if err := db.NewMigrator(database.DB).Up(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	m := metrics.New()
	recorder := audit.NewRecorder(repo, logger)
	recorder.SetFailureCounter(m.AuditFailures)

	snapshots, err := backup.NewService(repo, backup.Options{
		Dir:            cfg.Backup.Dir,
		RetentionCount: cfg.Backup.RetentionCount,
		RetentionDays:  cfg.Backup.RetentionDays,
	}, logger)
	if err != nil {
		return fmt.Errorf("backup service: %w", err)
	}
	snapshots.SetSnapshotCounter(m.SnapshotsTotal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	service := demandas.NewService(repo, recorder, snapshots, hub, m, logger)

	scheduler := backup.NewScheduler(snapshots, backup.SchedulerConfig{
		SnapshotInterval: cfg.Backup.AutoInterval,
		PurgeInterval:    cfg.Backup.PurgeInterval,
	}, logger)
	scheduler.Start(ctx)

	router := api.NewRouter(api.Deps{
		Service:    service,
		Backups:    snapshots,
		Database:   database,
		Hub:        hub,
		Metrics:    m,
		Logger:     logger,
		ErrorLog:   errorLog,
		Production: cfg.Production(),
		Version:    version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("servidor iniciado",
			zap.String("porta", cfg.Server.Port),
			zap.String("versao", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-signals:
		logger.Info("sinal recebido, encerrando", zap.String("sinal", sig.String()))
	}

	// A second signal aborts the graceful path immediately.
	go func() {
		<-signals
		logger.Warn("segundo sinal recebido, saída imediata")
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("falha no shutdown do servidor HTTP", zap.Error(err))
	}

	scheduler.Stop()
	cancel()

	// Drain the fire-and-forget side effects before the final snapshot so
	// it captures everything the last requests committed.
	service.Drain()

	if _, err := snapshots.Snapshot(models.BackupShutdown); err != nil {
		logger.Error("snapshot de encerramento falhou", zap.Error(err))
	}

	logger.Info("servidor encerrado")
	return nil
}
