// Package audit appends immutable log entries for every demanda mutation.
// Writes are best-effort: a failed audit entry is logged, never propagated
// to the request that caused it.
package audit

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/db"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// Recorder writes audit entries through the repository.
type Recorder struct {
	repo     *db.Repository
	logger   *zap.Logger
	wg       sync.WaitGroup
	failures prometheus.Counter
}

// SetFailureCounter registers a counter incremented per audit entry that
// failed to persist. Optional; nil disables the metric.
func (r *Recorder) SetFailureCounter(c prometheus.Counter) {
	r.failures = c
}

// NewRecorder creates a Recorder.
func NewRecorder(repo *db.Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends an audit entry synchronously. The before/after snapshots
// are serialized to JSON; nil means no state on that side (creates have no
// before, deletes no after).
func (r *Recorder) Record(acao, tabela string, registroID int64, antes, depois interface{}, usuarioID *int64, origem string) error {
	entry := &models.AuditEntry{
		Acao:       acao,
		Tabela:     tabela,
		RegistroID: registroID,
		UsuarioID:  usuarioID,
		Origem:     origem,
	}

	var err error
	if entry.DadosAnteriores, err = marshalSnapshot(antes); err != nil {
		return err
	}
	if entry.DadosNovos, err = marshalSnapshot(depois); err != nil {
		return err
	}

	return r.repo.InsertAuditEntry(entry)
}

// RecordAsync dispatches the append on a goroutine after the primary
// mutation has committed. Failures are logged and swallowed.
func (r *Recorder) RecordAsync(acao, tabela string, registroID int64, antes, depois interface{}, usuarioID *int64, origem string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Record(acao, tabela, registroID, antes, depois, usuarioID, origem); err != nil {
			if r.failures != nil {
				r.failures.Inc()
			}
			r.logger.Error("falha ao gravar auditoria",
				zap.String("acao", acao),
				zap.String("tabela", tabela),
				zap.Int64("registro_id", registroID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight async append has finished. Called on
// shutdown and by tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func marshalSnapshot(v interface{}) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
