// Package models provides data model definitions for the demand tracker.
package models

import "time"

// Audit action kinds.
const (
	AcaoCreate = "CREATE"
	AcaoUpdate = "UPDATE"
	AcaoDelete = "DELETE"
)

// AuditEntry is an immutable log record of a single mutation. Entries are
// never updated or deleted by normal operation.
type AuditEntry struct {
	ID              string    `db:"id" json:"id"`
	Acao            string    `db:"acao" json:"acao"`
	Tabela          string    `db:"tabela" json:"tabela"`
	RegistroID      int64     `db:"registro_id" json:"registroId"`
	DadosAnteriores *string   `db:"dados_anteriores" json:"dadosAnteriores"`
	DadosNovos      *string   `db:"dados_novos" json:"dadosNovos"`
	UsuarioID       *int64    `db:"usuario_id" json:"usuarioId"`
	Origem          string    `db:"origem" json:"origem"`
	CriadoEm        time.Time `db:"criado_em" json:"criadoEm"`
}

// TableName returns the table name for AuditEntry.
func (AuditEntry) TableName() string {
	return "auditoria"
}
