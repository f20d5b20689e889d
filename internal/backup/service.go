// Package backup implements the snapshot manager: periodic JSON exports of
// the full demanda set, an index of snapshot files, pruning and restore.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/db"
	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// Options configures the snapshot manager.
type Options struct {
	// Dir is the directory holding the snapshot files.
	Dir string
	// RetentionCount is how many auto-kind snapshots to keep.
	RetentionCount int
	// RetentionDays is the index retention horizon for snapshots of any kind.
	RetentionDays int
}

// Service owns the snapshot files and their index rows.
type Service struct {
	repo      *db.Repository
	opts      Options
	logger    *zap.Logger
	wg        sync.WaitGroup
	snapshots *prometheus.CounterVec
}

// SetSnapshotCounter registers a counter incremented per completed snapshot,
// labeled by kind. Optional; nil disables the metric.
func (s *Service) SetSnapshotCounter(c *prometheus.CounterVec) {
	s.snapshots = c
}

// NewService creates the snapshot manager, ensuring the backup directory
// exists.
func NewService(repo *db.Repository, opts Options, logger *zap.Logger) (*Service, error) {
	if opts.Dir == "" {
		opts.Dir = "backups"
	}
	if opts.RetentionCount <= 0 {
		opts.RetentionCount = 10
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Service{repo: repo, opts: opts, logger: logger}, nil
}

// RestoreResult reports the outcome of a restore.
type RestoreResult struct {
	Importadas int `json:"importadas"`
	Ignoradas  int `json:"ignoradas"`
}

// fileName derives the snapshot file name from kind and timestamp, with
// characters unsafe for filesystems replaced.
func fileName(tipo string, ts time.Time) string {
	stamp := ts.UTC().Format(time.RFC3339Nano)
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, ".", "-")
	return fmt.Sprintf("backup_%s_%s.json", tipo, stamp)
}

// Snapshot serializes the full record set into a versioned envelope, writes
// it to a new file and registers it in the index. For auto snapshots the
// retention policy is applied afterwards.
func (s *Service) Snapshot(tipo string) (*models.Backup, error) {
	if !models.BackupTipoValido(tipo) {
		return nil, apperrors.New(apperrors.ErrInvalid,
			fmt.Sprintf("tipo de backup desconhecido: %q", tipo))
	}

	demandas, err := s.repo.AllDemandas()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBackupFailed, "falha ao ler demandas", err)
	}

	now := time.Now().UTC()
	envelope := models.BackupEnvelope{
		Versao:    models.EnvelopeVersao,
		Timestamp: now,
		Tipo:      tipo,
		Total:     len(demandas),
		Demandas:  demandas,
	}

	data, err := json.MarshalIndent(&envelope, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBackupFailed, "falha ao serializar snapshot", err)
	}

	name := fileName(tipo, now)
	path := filepath.Join(s.opts.Dir, name)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBackupFailed, "falha ao gravar snapshot", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBackupFailed, "falha ao finalizar snapshot", err)
	}

	// Size comes from the written file, not the in-memory serialization.
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBackupFailed, "falha ao medir snapshot", err)
	}

	b := &models.Backup{
		NomeArquivo:  name,
		DataBackup:   now,
		TamanhoBytes: info.Size(),
		Tipo:         tipo,
	}
	if err := s.repo.InsertBackup(b); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot gravado",
		zap.String("arquivo", name),
		zap.String("tipo", tipo),
		zap.Int("demandas", len(demandas)),
		zap.Int64("bytes", b.TamanhoBytes))

	if s.snapshots != nil {
		s.snapshots.WithLabelValues(tipo).Inc()
	}

	if tipo == models.BackupAuto {
		s.pruneAuto()
	}
	return b, nil
}

// SnapshotAsync dispatches a snapshot on a goroutine; failures are logged
// and swallowed. Used for the fire-and-forget snapshots triggered by
// creates, critical status changes and deletes.
func (s *Service) SnapshotAsync(tipo string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Snapshot(tipo); err != nil {
			s.logger.Error("snapshot automático falhou",
				zap.String("tipo", tipo), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight async snapshots finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// pruneAuto keeps only the most recent RetentionCount auto snapshots,
// removing both the index rows and the files of the remainder.
func (s *Service) pruneAuto() {
	excess, err := s.repo.AutoBackupsBeyond(s.opts.RetentionCount)
	if err != nil {
		s.logger.Error("falha ao listar backups automáticos", zap.Error(err))
		return
	}

	for _, b := range excess {
		if err := s.repo.DeleteBackup(b.ID); err != nil {
			s.logger.Error("falha ao remover registro de backup",
				zap.Int64("id", b.ID), zap.Error(err))
			continue
		}
		s.removeFile(b.NomeArquivo)
	}
}

// PurgeExpired removes index rows (and files) older than RetentionDays,
// regardless of kind.
func (s *Service) PurgeExpired() (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.opts.RetentionDays)
	expired, err := s.repo.BackupsOlderThan(cutoff)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "falha ao listar backups expirados", err)
	}

	removed := 0
	for _, b := range expired {
		if err := s.repo.DeleteBackup(b.ID); err != nil {
			s.logger.Error("falha ao expurgar registro de backup",
				zap.Int64("id", b.ID), zap.Error(err))
			continue
		}
		s.removeFile(b.NomeArquivo)
		removed++
	}
	return removed, nil
}

// removeFile deletes a snapshot file; a missing file is not an error.
func (s *Service) removeFile(name string) {
	path := filepath.Join(s.opts.Dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("falha ao remover arquivo de backup",
			zap.String("arquivo", name), zap.Error(err))
	}
}

// List returns the registered snapshots, newest first.
func (s *Service) List() ([]*models.Backup, error) {
	return s.repo.ListBackups()
}

// Restore replaces the entire record set with the contents of a registered
// snapshot. A malformed file or a missing demanda list fails with
// CORRUPT_BACKUP before any mutation. Individual insert failures during the
// bulk reload are logged and skipped.
func (s *Service) Restore(backupID int64) (*RestoreResult, error) {
	b, err := s.repo.GetBackup(backupID)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.opts.Dir, b.NomeArquivo)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptBackup,
			fmt.Sprintf("arquivo de backup ilegível: %s", b.NomeArquivo), err)
	}

	var envelope models.BackupEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptBackup,
			fmt.Sprintf("arquivo de backup corrompido: %s", b.NomeArquivo), err)
	}
	if envelope.Demandas == nil {
		return nil, apperrors.New(apperrors.ErrCorruptBackup,
			fmt.Sprintf("backup sem lista de demandas: %s", b.NomeArquivo))
	}

	inserted, skipped, err := s.repo.ReplaceAllDemandas(envelope.Demandas)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRestoreFailed, "falha ao restaurar demandas", err)
	}

	for _, skipErr := range skipped {
		s.logger.Warn("demanda ignorada na restauração", zap.Error(skipErr))
	}

	s.logger.Info("backup restaurado",
		zap.Int64("backup_id", backupID),
		zap.String("arquivo", b.NomeArquivo),
		zap.Int("importadas", inserted),
		zap.Int("ignoradas", len(skipped)))

	return &RestoreResult{Importadas: inserted, Ignoradas: len(skipped)}, nil
}
