// Package backup provides the fixed-interval snapshot and purge schedules.
package backup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/models"
)

// SchedulerConfig holds the scheduler intervals.
type SchedulerConfig struct {
	// SnapshotInterval is how often an auto snapshot is taken.
	SnapshotInterval time.Duration
	// PurgeInterval is how often expired index entries are purged.
	PurgeInterval time.Duration
}

// Scheduler runs the automatic snapshot and purge timers, independent of
// request traffic.
type Scheduler struct {
	service *Service
	config  SchedulerConfig
	stopCh  chan struct{}
	logger  *zap.Logger
}

// NewScheduler creates a snapshot scheduler.
func NewScheduler(service *Service, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.SnapshotInterval <= 0 {
		config.SnapshotInterval = 6 * time.Hour
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = 24 * time.Hour
	}
	return &Scheduler{
		service: service,
		config:  config,
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// Start begins the periodic snapshot and purge loops.
func (s *Scheduler) Start(ctx context.Context) {
	snapshotTicker := time.NewTicker(s.config.SnapshotInterval)
	purgeTicker := time.NewTicker(s.config.PurgeInterval)

	s.logger.Info("agendador de backups iniciado",
		zap.Duration("snapshot_interval", s.config.SnapshotInterval),
		zap.Duration("purge_interval", s.config.PurgeInterval))

	go func() {
		defer snapshotTicker.Stop()
		defer purgeTicker.Stop()

		for {
			select {
			case <-snapshotTicker.C:
				if _, err := s.service.Snapshot(models.BackupAuto); err != nil {
					s.logger.Error("snapshot agendado falhou", zap.Error(err))
				}
			case <-purgeTicker.C:
				removed, err := s.service.PurgeExpired()
				if err != nil {
					s.logger.Error("expurgo de backups falhou", zap.Error(err))
					continue
				}
				if removed > 0 {
					s.logger.Info("backups expirados removidos", zap.Int("total", removed))
				}
			case <-s.stopCh:
				s.logger.Info("agendador de backups parado")
				return
			case <-ctx.Done():
				s.logger.Info("agendador de backups cancelado")
				return
			}
		}
	}()
}

// Stop halts the scheduler loops.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
