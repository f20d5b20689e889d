// Package db provides CRUD repository operations for the demand tracker.
package db

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// Repository provides CRUD operations for demandas, audit entries and the
// backup index.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries. Statements are
	// prepared on first use and reused.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// demandaColumns is the column list shared by every demanda SELECT.
const demandaColumns = `id, tag, nome_demanda, funcionario_id, funcionario_nome, funcionario_email,
	criado_por, atualizado_por, categoria, prioridade, complexidade, descricao, local,
	comentarios, comentarios_gestor, data_criacao, data_limite, data_conclusao,
	recorrente, dias_semana, funcionarios_ids, status, atualizado_em`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDemanda scans one demanda row from rows or a QueryRow result.
func scanDemanda(row rowScanner) (*models.Demanda, error) {
	var d models.Demanda
	var funcionarioID, criadoPor, atualizadoPor sql.NullInt64
	var dataCriacao, atualizadoEm int64
	var dataConclusao models.Date

	err := row.Scan(
		&d.ID, &d.Tag, &d.NomeDemanda, &funcionarioID, &d.FuncionarioNome, &d.FuncionarioEmail,
		&criadoPor, &atualizadoPor, &d.Categoria, &d.Prioridade, &d.Complexidade, &d.Descricao, &d.Local,
		&d.Comentarios, &d.ComentariosGestor, &dataCriacao, &d.DataLimite, &dataConclusao,
		&d.Recorrente, &d.DiasSemana, &d.FuncionariosIDs, &d.Status, &atualizadoEm,
	)
	if err != nil {
		return nil, err
	}

	if funcionarioID.Valid {
		d.FuncionarioID = &funcionarioID.Int64
	}
	if criadoPor.Valid {
		d.CriadoPor = &criadoPor.Int64
	}
	if atualizadoPor.Valid {
		d.AtualizadoPor = &atualizadoPor.Int64
	}
	if !dataConclusao.IsZero() {
		d.DataConclusao = &dataConclusao
	}
	d.DataCriacao = time.Unix(dataCriacao, 0).UTC()
	d.AtualizadoEm = time.Unix(atualizadoEm, 0).UTC()
	return &d, nil
}

// demandaValues returns the insert/update argument list, id excluded.
func demandaValues(d *models.Demanda) []interface{} {
	return []interface{}{
		d.Tag, d.NomeDemanda, d.FuncionarioID, d.FuncionarioNome, d.FuncionarioEmail,
		d.CriadoPor, d.AtualizadoPor, d.Categoria, string(d.Prioridade), string(d.Complexidade),
		d.Descricao, d.Local, d.Comentarios, d.ComentariosGestor,
		d.DataCriacao.Unix(), d.DataLimite, d.DataConclusao,
		d.Recorrente, d.DiasSemana, d.FuncionariosIDs, string(d.Status), d.AtualizadoEm.Unix(),
	}
}

const demandaInsertSQL = `
	INSERT INTO demandas (tag, nome_demanda, funcionario_id, funcionario_nome, funcionario_email,
		criado_por, atualizado_por, categoria, prioridade, complexidade, descricao, local,
		comentarios, comentarios_gestor, data_criacao, data_limite, data_conclusao,
		recorrente, dias_semana, funcionarios_ids, status, atualizado_em)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

// GenerateTag builds a collision-resistant tag: a base36 millisecond prefix
// plus a random suffix. Uniqueness is ultimately enforced by the store-level
// constraint.
func GenerateTag() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to time
		copy(buf, strconv.FormatInt(time.Now().UnixNano(), 10))
	}
	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = alphabet[int(b)%len(alphabet)]
	}
	prefix := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("DEM-%s-%s", prefix, suffix)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =====================================================
// Demanda Operations
// =====================================================

// CreateDemanda inserts a new demanda, assigning the store id and filling
// defaults: creation timestamp, pendente status and a generated tag.
func (r *Repository) CreateDemanda(d *models.Demanda) error {
	now := time.Now().UTC()
	if d.DataCriacao.IsZero() {
		d.DataCriacao = now
	}
	if d.Status == "" {
		d.Status = models.StatusPendente
	}
	if d.Tag == "" {
		d.Tag = GenerateTag()
	}
	d.AtualizadoEm = now

	result, err := r.db.Exec(demandaInsertSQL, demandaValues(d)...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrDuplicateTag,
				fmt.Sprintf("tag %q já existe", d.Tag), err)
		}
		return apperrors.Wrap(apperrors.ErrDatabase, "falha ao criar demanda", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "falha ao obter id gerado", err)
	}
	d.ID = id
	return nil
}

// GetDemanda retrieves a demanda by id.
func (r *Repository) GetDemanda(id int64) (*models.Demanda, error) {
	query := `SELECT ` + demandaColumns + ` FROM demandas WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	d, err := scanDemanda(stmt.QueryRow(id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.New(apperrors.ErrDemandaNotFound,
				fmt.Sprintf("demanda %d não encontrada", id))
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao buscar demanda", err)
	}
	return d, nil
}

// ListOptions carries filtering, ordering and pagination for ListDemandas.
type ListOptions struct {
	Page           int
	Limit          int
	Status         string
	FuncionarioID  int64
	Categoria      string
	Prioridade     string
	DataInicio     time.Time
	DataFim        time.Time
	OrderBy        string
	OrderDirection string
}

// ListDemandas returns one page of demandas plus the total matching count.
func (r *Repository) ListDemandas(opts ListOptions) ([]*models.Demanda, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	fb := NewFilterBuilder().
		Status(opts.Status).
		Funcionario(opts.FuncionarioID).
		Categoria(opts.Categoria).
		Prioridade(opts.Prioridade).
		DateRange(opts.DataInicio, opts.DataFim)

	where, args := fb.Build()
	whereSQL := ""
	if where != "" {
		whereSQL = " WHERE " + where
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM demandas` + whereSQL
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "falha ao contar demandas", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	query := `SELECT ` + demandaColumns + ` FROM demandas` + whereSQL +
		" " + OrderClause(opts.OrderBy, opts.OrderDirection) + " LIMIT ? OFFSET ?"
	queryArgs := append(append([]interface{}{}, args...), opts.Limit, offset)

	rows, err := r.db.Query(query, queryArgs...)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "falha ao listar demandas", err)
	}
	defer rows.Close()

	var demandas []*models.Demanda
	for rows.Next() {
		d, err := scanDemanda(rows)
		if err != nil {
			return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "falha ao ler demanda", err)
		}
		demandas = append(demandas, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iterar demandas", err)
	}
	if demandas == nil {
		demandas = []*models.Demanda{}
	}
	return demandas, total, nil
}

// AllDemandas returns every demanda ordered by id. Used by snapshots.
func (r *Repository) AllDemandas() ([]*models.Demanda, error) {
	query := `SELECT ` + demandaColumns + ` FROM demandas ORDER BY id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao ler demandas", err)
	}
	defer rows.Close()

	var demandas []*models.Demanda
	for rows.Next() {
		d, err := scanDemanda(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao ler demanda", err)
		}
		demandas = append(demandas, d)
	}
	return demandas, rows.Err()
}

// CountDemandas returns the total number of demandas.
func (r *Repository) CountDemandas() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM demandas").Scan(&count)
	return count, err
}

const demandaUpdateSQL = `
	UPDATE demandas
	SET tag = ?, nome_demanda = ?, funcionario_id = ?, funcionario_nome = ?, funcionario_email = ?,
		criado_por = ?, atualizado_por = ?, categoria = ?, prioridade = ?, complexidade = ?,
		descricao = ?, local = ?, comentarios = ?, comentarios_gestor = ?,
		data_criacao = ?, data_limite = ?, data_conclusao = ?,
		recorrente = ?, dias_semana = ?, funcionarios_ids = ?, status = ?, atualizado_em = ?
	WHERE id = ?
	`

// UpdateDemanda applies mutate to the stored record inside a single
// transaction, so the read-modify-write is atomic per id. The id, creation
// timestamp and creator survive whatever mutate does.
func (r *Repository) UpdateDemanda(id int64, mutate func(*models.Demanda) error) (*models.Demanda, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + demandaColumns + ` FROM demandas WHERE id = ?`
	current, err := scanDemanda(tx.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.New(apperrors.ErrDemandaNotFound,
				fmt.Sprintf("demanda %d não encontrada", id))
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao buscar demanda", err)
	}

	// Immutable fields, restored after mutate regardless of what it sets.
	origID := current.ID
	origCriacao := current.DataCriacao
	origCriadoPor := current.CriadoPor

	if err := mutate(current); err != nil {
		return nil, err
	}

	current.ID = origID
	current.DataCriacao = origCriacao
	current.CriadoPor = origCriadoPor
	current.Touch()

	args := append(demandaValues(current), current.ID)
	if _, err := tx.Exec(demandaUpdateSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrDuplicateTag,
				fmt.Sprintf("tag %q já existe", current.Tag), err)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao atualizar demanda", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao confirmar atualização", err)
	}
	return current, nil
}

// DeleteDemanda removes a demanda and returns the removed record. The
// existence check and the delete share one transaction.
func (r *Repository) DeleteDemanda(id int64) (*models.Demanda, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + demandaColumns + ` FROM demandas WHERE id = ?`
	d, err := scanDemanda(tx.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.New(apperrors.ErrDemandaNotFound,
				fmt.Sprintf("demanda %d não encontrada", id))
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao buscar demanda", err)
	}

	if _, err := tx.Exec("DELETE FROM demandas WHERE id = ?", id); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao remover demanda", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao confirmar remoção", err)
	}
	return d, nil
}

// ReplaceAllDemandas replaces the whole record set with the given list, in
// one transaction. Store identity is re-assigned. Individual insert failures
// are skipped, not fatal; the failed records are reported back.
func (r *Repository) ReplaceAllDemandas(demandas []*models.Demanda) (int, []error, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM demandas"); err != nil {
		return 0, nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao limpar demandas", err)
	}

	inserted := 0
	var skipped []error
	for _, d := range demandas {
		restored := *d
		if restored.DataCriacao.IsZero() {
			restored.DataCriacao = time.Now().UTC()
		}
		if restored.Status == "" {
			restored.Status = models.StatusPendente
		}
		if restored.Tag == "" {
			restored.Tag = GenerateTag()
		}
		restored.Touch()

		if _, err := tx.Exec(demandaInsertSQL, demandaValues(&restored)...); err != nil {
			skipped = append(skipped, fmt.Errorf("demanda tag %q: %w", restored.Tag, err))
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao confirmar restauração", err)
	}
	return inserted, skipped, nil
}

// =====================================================
// Audit Operations
// =====================================================

// InsertAuditEntry appends an immutable audit entry.
func (r *Repository) InsertAuditEntry(e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CriadoEm.IsZero() {
		e.CriadoEm = time.Now().UTC()
	}

	query := `
	INSERT INTO auditoria (id, acao, tabela, registro_id, dados_anteriores, dados_novos, usuario_id, origem, criado_em)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, e.ID, e.Acao, e.Tabela, e.RegistroID,
		e.DadosAnteriores, e.DadosNovos, e.UsuarioID, e.Origem, e.CriadoEm.Unix())
	return err
}

// ListAuditEntries returns audit entries for one record, newest first.
func (r *Repository) ListAuditEntries(tabela string, registroID int64) ([]*models.AuditEntry, error) {
	query := `
	SELECT id, acao, tabela, registro_id, dados_anteriores, dados_novos, usuario_id, origem, criado_em
	FROM auditoria WHERE tabela = ? AND registro_id = ? ORDER BY criado_em DESC
	`
	rows, err := r.db.Query(query, tabela, registroID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var usuarioID sql.NullInt64
		var criadoEm int64
		err := rows.Scan(&e.ID, &e.Acao, &e.Tabela, &e.RegistroID,
			&e.DadosAnteriores, &e.DadosNovos, &usuarioID, &e.Origem, &criadoEm)
		if err != nil {
			return nil, err
		}
		if usuarioID.Valid {
			e.UsuarioID = &usuarioID.Int64
		}
		e.CriadoEm = time.Unix(criadoEm, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountAuditEntries returns the number of audit entries for one record.
func (r *Repository) CountAuditEntries(tabela string, registroID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM auditoria WHERE tabela = ? AND registro_id = ?",
		tabela, registroID).Scan(&count)
	return count, err
}

// =====================================================
// Backup Index Operations
// =====================================================

// InsertBackup registers snapshot metadata in the backup index.
func (r *Repository) InsertBackup(b *models.Backup) error {
	if b.CriadoEm.IsZero() {
		b.CriadoEm = time.Now().UTC()
	}

	query := `
	INSERT INTO backups (nome_arquivo, data_backup, tamanho_bytes, tipo, criado_em)
	VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query, b.NomeArquivo, b.DataBackup.Unix(),
		b.TamanhoBytes, b.Tipo, b.CriadoEm.Unix())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "falha ao registrar backup", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "falha ao obter id do backup", err)
	}
	b.ID = id
	return nil
}

func scanBackup(row rowScanner) (*models.Backup, error) {
	var b models.Backup
	var dataBackup, criadoEm int64
	err := row.Scan(&b.ID, &b.NomeArquivo, &dataBackup, &b.TamanhoBytes, &b.Tipo, &criadoEm)
	if err != nil {
		return nil, err
	}
	b.DataBackup = time.Unix(dataBackup, 0).UTC()
	b.CriadoEm = time.Unix(criadoEm, 0).UTC()
	return &b, nil
}

const backupColumns = `id, nome_arquivo, data_backup, tamanho_bytes, tipo, criado_em`

// GetBackup retrieves one backup index row.
func (r *Repository) GetBackup(id int64) (*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE id = ?`
	b, err := scanBackup(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.New(apperrors.ErrBackupNotFound,
				fmt.Sprintf("backup %d não encontrado", id))
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao buscar backup", err)
	}
	return b, nil
}

// ListBackups returns all backup index rows, newest first.
func (r *Repository) ListBackups() ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups ORDER BY criado_em DESC, id DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao listar backups", err)
	}
	defer rows.Close()

	var backups []*models.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// AutoBackupsBeyond returns the auto-kind rows past the keep most recent,
// oldest last. These are the pruning candidates.
func (r *Repository) AutoBackupsBeyond(keep int) ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE tipo = ?
		ORDER BY criado_em DESC, id DESC LIMIT -1 OFFSET ?`
	rows, err := r.db.Query(query, models.BackupAuto, keep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []*models.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// BackupsOlderThan returns index rows of any kind created before cutoff.
func (r *Repository) BackupsOlderThan(cutoff time.Time) ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE criado_em < ?`
	rows, err := r.db.Query(query, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []*models.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// DeleteBackup removes one backup index row.
func (r *Repository) DeleteBackup(id int64) error {
	_, err := r.db.Exec("DELETE FROM backups WHERE id = ?", id)
	return err
}
