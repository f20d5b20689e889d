// Package models provides data model definitions for the demand tracker.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a demanda.
type Status string

const (
	StatusPendente           Status = "pendente"
	StatusAprovada           Status = "aprovada"
	StatusReprovada          Status = "reprovada"
	StatusEmRevisao          Status = "em_revisao"
	StatusFinalizadoPendente Status = "finalizado_pendente_aprovacao"
)

// Known reports whether s is one of the recognised status values.
func (s Status) Known() bool {
	switch s {
	case StatusPendente, StatusAprovada, StatusReprovada,
		StatusEmRevisao, StatusFinalizadoPendente:
		return true
	}
	return false
}

// Critica reports whether a transition into s must trigger a snapshot.
func (s Status) Critica() bool {
	return s == StatusAprovada || s == StatusReprovada
}

// Prioridade classifies the urgency of a demanda.
type Prioridade string

const (
	PrioridadeImportante Prioridade = "Importante"
	PrioridadeMedia      Prioridade = "Média"
	PrioridadeRelevante  Prioridade = "Relevante"
)

// Valid reports whether p is one of the allowed priorities.
func (p Prioridade) Valid() bool {
	return p == PrioridadeImportante || p == PrioridadeMedia || p == PrioridadeRelevante
}

// Complexidade classifies the effort of a demanda.
type Complexidade string

const (
	ComplexidadeFacil   Complexidade = "Fácil"
	ComplexidadeMedia   Complexidade = "Média"
	ComplexidadeDificil Complexidade = "Difícil"
)

// Valid reports whether c is one of the allowed complexities.
func (c Complexidade) Valid() bool {
	return c == ComplexidadeFacil || c == ComplexidadeMedia || c == ComplexidadeDificil
}

// Date is a day-granularity timestamp stored as "2006-01-02" TEXT.
type Date struct {
	time.Time
}

// DateLayout is the wire and storage format for Date values.
const DateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date, truncated to day granularity.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// Before compares dates at day granularity.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// String returns the "2006-01-02" representation.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Value implements driver.Valuer for Date.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

// Scan implements sql.Scanner for Date.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = Date{v}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

// MarshalJSON encodes the date as "2006-01-02" or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON accepts "2006-01-02" and full RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = Date{t}
	return nil
}

// StringList is a []string stored as a serialized JSON array.
type StringList []string

// Value implements driver.Valuer for StringList.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for StringList.
func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Int64List is a []int64 stored as a serialized JSON array.
type Int64List []int64

// Value implements driver.Valuer for Int64List.
func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for Int64List.
func (l *Int64List) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into Int64List", value)
	}
}

// Demanda represents a tracked work-item record.
type Demanda struct {
	ID                int64        `db:"id" json:"id"`
	Tag               string       `db:"tag" json:"tag"`
	NomeDemanda       string       `db:"nome_demanda" json:"nomeDemanda"`
	FuncionarioID     *int64       `db:"funcionario_id" json:"funcionarioId"`
	FuncionarioNome   string       `db:"funcionario_nome" json:"funcionarioNome,omitempty"`
	FuncionarioEmail  string       `db:"funcionario_email" json:"funcionarioEmail,omitempty"`
	CriadoPor         *int64       `db:"criado_por" json:"criadoPor"`
	AtualizadoPor     *int64       `db:"atualizado_por" json:"atualizadoPor"`
	Categoria         string       `db:"categoria" json:"categoria"`
	Prioridade        Prioridade   `db:"prioridade" json:"prioridade"`
	Complexidade      Complexidade `db:"complexidade" json:"complexidade"`
	Descricao         string       `db:"descricao" json:"descricao"`
	Local             string       `db:"local" json:"local"`
	Comentarios       string       `db:"comentarios" json:"comentarios,omitempty"`
	ComentariosGestor string       `db:"comentarios_gestor" json:"comentariosGestor,omitempty"`
	DataCriacao       time.Time    `db:"data_criacao" json:"dataCriacao"`
	DataLimite        Date         `db:"data_limite" json:"dataLimite"`
	DataConclusao     *Date        `db:"data_conclusao" json:"dataConclusao"`
	Recorrente        bool         `db:"recorrente" json:"recorrente"`
	DiasSemana        StringList   `db:"dias_semana" json:"diasSemana"`
	FuncionariosIDs   Int64List    `db:"funcionarios_ids" json:"funcionariosIds"`
	Status            Status       `db:"status" json:"status"`
	AtualizadoEm      time.Time    `db:"atualizado_em" json:"atualizadoEm"`
}

// TableName returns the table name for Demanda.
func (Demanda) TableName() string {
	return "demandas"
}

// Touch refreshes the last-updated timestamp.
func (d *Demanda) Touch() {
	d.AtualizadoEm = time.Now().UTC()
}
