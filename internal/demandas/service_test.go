package demandas

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/audit"
	"github.com/dmarinho/gestor-demandas/internal/backup"
	"github.com/dmarinho/gestor-demandas/internal/db"
	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

func setupService(t *testing.T) (*Service, *db.Repository) {
	t.Helper()
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.NewMigrator(database.DB).Up(); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	repo := db.NewRepository(database.DB)
	t.Cleanup(func() {
		repo.Close()
		database.Close()
	})

	logger := zap.NewNop()
	recorder := audit.NewRecorder(repo, logger)
	snapshots, err := backup.NewService(repo, backup.Options{Dir: t.TempDir()}, logger)
	if err != nil {
		t.Fatalf("backup service: %v", err)
	}

	return NewService(repo, recorder, snapshots, nil, nil, logger), repo
}

func validInput(nome string) *models.Demanda {
	return &models.Demanda{
		NomeDemanda:  nome,
		Categoria:    "Manutenção",
		Prioridade:   models.PrioridadeImportante,
		Complexidade: models.ComplexidadeFacil,
		Descricao:    "O cano da copa está vazando bastante",
		Local:        "Bloco A",
		DataLimite:   models.NewDate(2999, time.January, 1),
	}
}

func TestCreateWritesAuditAndSnapshot(t *testing.T) {
	svc, repo := setupService(t)

	usuario := int64(5)
	d, err := svc.Create(validInput("Consertar vazamento"), Meta{UsuarioID: &usuario, Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Status != models.StatusPendente {
		t.Errorf("status = %q", d.Status)
	}
	if d.CriadoPor == nil || *d.CriadoPor != usuario {
		t.Errorf("criadoPor = %v", d.CriadoPor)
	}

	svc.Drain()

	entries, err := repo.ListAuditEntries("demandas", d.ID)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Acao != models.AcaoCreate {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].DadosNovos == nil {
		t.Error("create entry lacks the after snapshot")
	}

	backups, err := repo.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 || backups[0].Tipo != models.BackupAuto {
		t.Fatalf("backups = %+v", backups)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	svc, repo := setupService(t)

	in := validInput("Inválida")
	in.Descricao = "short"
	_, err := svc.Create(in, Meta{Origem: "api"})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}

	svc.Drain()

	count, err := repo.CountDemandas()
	if err != nil {
		t.Fatalf("CountDemandas: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, invalid create must not persist", count)
	}
	backups, _ := repo.ListBackups()
	if len(backups) != 0 {
		t.Errorf("invalid create must not snapshot, got %d", len(backups))
	}
}

func TestUpdatePartialMerge(t *testing.T) {
	svc, _ := setupService(t)

	d, err := svc.Create(validInput("Original"), Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Drain()

	novoNome := "Renomeada pela atualização"
	updated, err := svc.Update(d.ID, &UpdateInput{NomeDemanda: &novoNome}, Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.NomeDemanda != novoNome {
		t.Errorf("nome = %q", updated.NomeDemanda)
	}
	// Untouched fields survive.
	if updated.Descricao != d.Descricao || updated.Local != d.Local {
		t.Error("partial update clobbered untouched fields")
	}
	if updated.Tag != d.Tag || updated.ID != d.ID {
		t.Error("identity fields changed")
	}
	svc.Drain()
}

func TestUpdateCriticalStatusTriggersSnapshot(t *testing.T) {
	svc, repo := setupService(t)

	d, err := svc.Create(validInput("Para aprovar"), Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Drain()

	status := models.StatusAprovada
	if _, err := svc.Update(d.ID, &UpdateInput{Status: &status}, Meta{Origem: "api"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	svc.Drain()

	backups, err := repo.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	var statusChange int
	for _, b := range backups {
		if b.Tipo == models.BackupStatusChange {
			statusChange++
		}
	}
	if statusChange != 1 {
		t.Errorf("status_change snapshots = %d, want 1", statusChange)
	}
}

func TestUpdateNonCriticalStatusNoSnapshot(t *testing.T) {
	svc, repo := setupService(t)

	d, err := svc.Create(validInput("Para revisar"), Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Drain()

	status := models.StatusEmRevisao
	if _, err := svc.Update(d.ID, &UpdateInput{Status: &status}, Meta{Origem: "api"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	svc.Drain()

	backups, _ := repo.ListBackups()
	for _, b := range backups {
		if b.Tipo == models.BackupStatusChange {
			t.Error("em_revisao must not trigger a status_change snapshot")
		}
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc, _ := setupService(t)

	d, err := svc.Create(validInput("Qualquer"), Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Drain()

	status := models.Status("inventado")
	_, err = svc.Update(d.ID, &UpdateInput{Status: &status}, Meta{Origem: "api"})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestDeleteRecordsAuditWithFinalState(t *testing.T) {
	svc, repo := setupService(t)

	d, err := svc.Create(validInput("Para remover"), Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.Drain()

	removed, err := svc.Delete(d.ID, Meta{Origem: "api"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed.Tag != d.Tag {
		t.Errorf("removed tag = %q", removed.Tag)
	}
	svc.Drain()

	entries, err := repo.ListAuditEntries("demandas", d.ID)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	var deleteEntry *models.AuditEntry
	for _, e := range entries {
		if e.Acao == models.AcaoDelete {
			deleteEntry = e
		}
	}
	if deleteEntry == nil {
		t.Fatal("no delete audit entry")
	}
	if deleteEntry.DadosAnteriores == nil || deleteEntry.DadosNovos != nil {
		t.Error("delete entry must carry only the before snapshot")
	}

	backups, _ := repo.ListBackups()
	var deleteSnapshots int
	for _, b := range backups {
		if b.Tipo == models.BackupDelete {
			deleteSnapshots++
		}
	}
	if deleteSnapshots != 1 {
		t.Errorf("delete snapshots = %d, want 1", deleteSnapshots)
	}
}

func TestDeleteMissingWritesNoAudit(t *testing.T) {
	svc, repo := setupService(t)

	_, err := svc.Delete(404, Meta{Origem: "api"})
	if !apperrors.Is(err, apperrors.ErrDemandaNotFound) {
		t.Fatalf("expected DEMANDA_NOT_FOUND, got %v", err)
	}
	svc.Drain()

	count, err := repo.CountAuditEntries("demandas", 404)
	if err != nil {
		t.Fatalf("CountAuditEntries: %v", err)
	}
	if count != 0 {
		t.Errorf("audit entries = %d, want 0", count)
	}
}

func TestListPagination(t *testing.T) {
	svc, _ := setupService(t)

	for i := 0; i < 25; i++ {
		if _, err := svc.Create(validInput("Paginada"), Meta{Origem: "api"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	svc.Drain()

	records, pagination, err := svc.List(db.ListOptions{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("len = %d, want 10", len(records))
	}
	if pagination.Total != 25 || pagination.Pages != 3 {
		t.Errorf("pagination = %+v, want total 25 pages 3", pagination)
	}
	if pagination.Page != 2 || pagination.Limit != 10 {
		t.Errorf("pagination echo = %+v", pagination)
	}
}
