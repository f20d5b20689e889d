// Package demandas coordinates every demanda mutation: validation, the
// store write, and the side effects that follow a successful commit (audit
// entry, snapshot, websocket event, metrics).
package demandas

import (
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/audit"
	"github.com/dmarinho/gestor-demandas/internal/backup"
	"github.com/dmarinho/gestor-demandas/internal/db"
	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/metrics"
	"github.com/dmarinho/gestor-demandas/internal/models"
	"github.com/dmarinho/gestor-demandas/internal/notify"
	"github.com/dmarinho/gestor-demandas/internal/validate"
)

// Meta identifies who triggered a mutation and through which surface.
type Meta struct {
	UsuarioID *int64
	Origem    string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Service is the demanda application service. Hub and metrics are optional;
// tests run without them.
type Service struct {
	repo      *db.Repository
	auditoria *audit.Recorder
	snapshots *backup.Service
	hub       *notify.Hub
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService wires the application service.
func NewService(repo *db.Repository, auditoria *audit.Recorder, snapshots *backup.Service, hub *notify.Hub, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		auditoria: auditoria,
		snapshots: snapshots,
		hub:       hub,
		metrics:   m,
		logger:    logger,
	}
}

func (s *Service) publish(event string, data interface{}) {
	if s.hub != nil {
		s.hub.Publish(event, data)
	}
}

func (s *Service) countMutation(action string) {
	if s.metrics != nil {
		s.metrics.MutationsTotal.WithLabelValues(action).Inc()
	}
}

// Create validates and persists a new demanda. Tag, creation timestamp and
// initial status are assigned by the store layer when absent. The audit
// entry and the auto snapshot are dispatched fire-and-forget after commit.
func (s *Service) Create(d *models.Demanda, meta Meta) (*models.Demanda, error) {
	if errs := validate.Demanda(d); len(errs) > 0 {
		return nil, apperrors.Validation(validate.Messages(errs))
	}
	if errs := validate.Status(d.Status); len(errs) > 0 {
		return nil, apperrors.Validation(validate.Messages(errs))
	}

	d.CriadoPor = meta.UsuarioID
	d.AtualizadoPor = meta.UsuarioID

	if err := s.repo.CreateDemanda(d); err != nil {
		return nil, err
	}

	s.auditoria.RecordAsync(models.AcaoCreate, d.TableName(), d.ID, nil, d, meta.UsuarioID, meta.Origem)
	s.snapshots.SnapshotAsync(models.BackupAuto)
	s.publish(notify.EventDemandaCriada, d)
	s.countMutation("create")
	return d, nil
}

// Get returns one demanda by id.
func (s *Service) Get(id int64) (*models.Demanda, error) {
	return s.repo.GetDemanda(id)
}

// List returns one filtered page plus pagination totals.
func (s *Service) List(opts db.ListOptions) ([]*models.Demanda, Pagination, error) {
	demandas, total, err := s.repo.ListDemandas(opts)
	if err != nil {
		return nil, Pagination{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	return demandas, Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// UpdateInput carries the fields an update may change. Nil pointers leave
// the stored value untouched.
type UpdateInput struct {
	NomeDemanda       *string              `json:"nomeDemanda"`
	FuncionarioID     *int64               `json:"funcionarioId"`
	FuncionarioNome   *string              `json:"funcionarioNome"`
	FuncionarioEmail  *string              `json:"funcionarioEmail"`
	Categoria         *string              `json:"categoria"`
	Prioridade        *models.Prioridade   `json:"prioridade"`
	Complexidade      *models.Complexidade `json:"complexidade"`
	Descricao         *string              `json:"descricao"`
	Local             *string              `json:"local"`
	Comentarios       *string              `json:"comentarios"`
	ComentariosGestor *string              `json:"comentariosGestor"`
	DataLimite        *models.Date         `json:"dataLimite"`
	DataConclusao     *models.Date         `json:"dataConclusao"`
	Recorrente        *bool                `json:"recorrente"`
	DiasSemana        models.StringList    `json:"diasSemana"`
	FuncionariosIDs   models.Int64List     `json:"funcionariosIds"`
	Status            *models.Status       `json:"status"`
}

func (in *UpdateInput) apply(d *models.Demanda) {
	if in.NomeDemanda != nil {
		d.NomeDemanda = *in.NomeDemanda
	}
	if in.FuncionarioID != nil {
		d.FuncionarioID = in.FuncionarioID
	}
	if in.FuncionarioNome != nil {
		d.FuncionarioNome = *in.FuncionarioNome
	}
	if in.FuncionarioEmail != nil {
		d.FuncionarioEmail = *in.FuncionarioEmail
	}
	if in.Categoria != nil {
		d.Categoria = *in.Categoria
	}
	if in.Prioridade != nil {
		d.Prioridade = *in.Prioridade
	}
	if in.Complexidade != nil {
		d.Complexidade = *in.Complexidade
	}
	if in.Descricao != nil {
		d.Descricao = *in.Descricao
	}
	if in.Local != nil {
		d.Local = *in.Local
	}
	if in.Comentarios != nil {
		d.Comentarios = *in.Comentarios
	}
	if in.ComentariosGestor != nil {
		d.ComentariosGestor = *in.ComentariosGestor
	}
	if in.DataLimite != nil {
		d.DataLimite = *in.DataLimite
	}
	if in.DataConclusao != nil {
		d.DataConclusao = in.DataConclusao
	}
	if in.Recorrente != nil {
		d.Recorrente = *in.Recorrente
	}
	if in.DiasSemana != nil {
		d.DiasSemana = in.DiasSemana
	}
	if in.FuncionariosIDs != nil {
		d.FuncionariosIDs = in.FuncionariosIDs
	}
	if in.Status != nil {
		d.Status = *in.Status
	}
}

// Update applies a partial change inside the store transaction. Identity
// fields (id, tag, creation data) survive regardless of the input. A
// transition into a critical status additionally triggers a status_change
// snapshot.
func (s *Service) Update(id int64, in *UpdateInput, meta Meta) (*models.Demanda, error) {
	if in.Status != nil {
		if errs := validate.Status(*in.Status); len(errs) > 0 {
			return nil, apperrors.Validation(validate.Messages(errs))
		}
	}

	var antes models.Demanda
	depois, err := s.repo.UpdateDemanda(id, func(d *models.Demanda) error {
		antes = *d
		in.apply(d)
		d.AtualizadoPor = meta.UsuarioID
		if errs := validate.DemandaUpdate(d, in.DataLimite != nil); len(errs) > 0 {
			return apperrors.Validation(validate.Messages(errs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditoria.RecordAsync(models.AcaoUpdate, depois.TableName(), depois.ID, &antes, depois, meta.UsuarioID, meta.Origem)

	if depois.Status != antes.Status && depois.Status.Critica() {
		s.snapshots.SnapshotAsync(models.BackupStatusChange)
	}

	s.publish(notify.EventDemandaAtualizada, depois)
	s.countMutation("update")
	return depois, nil
}

// Delete removes a demanda and returns the removed record. The audit entry
// carries the final state as its before snapshot; a delete-kind snapshot
// follows.
func (s *Service) Delete(id int64, meta Meta) (*models.Demanda, error) {
	removida, err := s.repo.DeleteDemanda(id)
	if err != nil {
		return nil, err
	}

	s.auditoria.RecordAsync(models.AcaoDelete, removida.TableName(), removida.ID, removida, nil, meta.UsuarioID, meta.Origem)
	s.snapshots.SnapshotAsync(models.BackupDelete)
	s.publish(notify.EventDemandaRemovida, removida)
	s.countMutation("delete")
	return removida, nil
}

// Search runs the ranked text search.
func (s *Service) Search(query string, limit int) ([]*models.Demanda, error) {
	return s.repo.SearchDemandas(query, limit)
}

// Statistics aggregates the rolling-window figures.
func (s *Service) Statistics(windowDays int) (*db.Estatisticas, error) {
	return s.repo.Statistics(windowDays)
}

// Count returns the total number of demandas, used by the health report.
func (s *Service) Count() (int, error) {
	return s.repo.CountDemandas()
}

// Drain blocks until the fire-and-forget side effects in flight have
// finished. Called on shutdown.
func (s *Service) Drain() {
	s.auditoria.Wait()
	s.snapshots.Wait()
}
