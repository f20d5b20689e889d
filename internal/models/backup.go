// Package models provides data model definitions for the demand tracker.
package models

import "time"

// Backup kinds.
const (
	BackupAuto         = "auto"
	BackupManual       = "manual"
	BackupStatusChange = "status_change"
	BackupDelete       = "delete"
	BackupShutdown     = "shutdown"
)

// BackupTipoValido reports whether tipo is a recognised backup kind.
func BackupTipoValido(tipo string) bool {
	switch tipo {
	case BackupAuto, BackupManual, BackupStatusChange, BackupDelete, BackupShutdown:
		return true
	}
	return false
}

// Backup holds index metadata for a snapshot file on disk.
type Backup struct {
	ID           int64     `db:"id" json:"id"`
	NomeArquivo  string    `db:"nome_arquivo" json:"nomeArquivo"`
	DataBackup   time.Time `db:"data_backup" json:"dataBackup"`
	TamanhoBytes int64     `db:"tamanho_bytes" json:"tamanhoBytes"`
	Tipo         string    `db:"tipo" json:"tipo"`
	CriadoEm     time.Time `db:"criado_em" json:"criadoEm"`
}

// TableName returns the table name for Backup.
func (Backup) TableName() string {
	return "backups"
}

// BackupEnvelope is the versioned payload written to each snapshot file.
type BackupEnvelope struct {
	Versao    string     `json:"versao"`
	Timestamp time.Time  `json:"timestamp"`
	Tipo      string     `json:"tipo"`
	Total     int        `json:"total"`
	Demandas  []*Demanda `json:"demandas"`
}

// EnvelopeVersao is the current snapshot envelope version.
const EnvelopeVersao = "1.0"
