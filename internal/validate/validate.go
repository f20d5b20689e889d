// Package validate implements the pure validation gate applied before any
// demanda mutation touches the store.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmarinho/gestor-demandas/internal/models"
)

const (
	// MinNomeLength is the minimum demand name length.
	MinNomeLength = 3
	// MinDescricaoLength is the minimum description length.
	MinDescricaoLength = 10
)

// FieldError is a single constraint violation.
type FieldError struct {
	Campo    string `json:"campo"`
	Mensagem string `json:"mensagem"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensagem)
}

// Messages flattens field errors into plain strings.
func Messages(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}

// Demanda checks a candidate record and returns every constraint violation.
// An empty result means the record is valid. The check is stateless: the
// store is never consulted.
func Demanda(d *models.Demanda) []FieldError {
	return demanda(d, true)
}

// DemandaUpdate validates a merged record on update. The past-due-date rule
// only applies when the due date itself was changed; a long-lived record is
// allowed to keep a due date that has since gone by.
func DemandaUpdate(d *models.Demanda, dataLimiteAlterada bool) []FieldError {
	return demanda(d, dataLimiteAlterada)
}

func demanda(d *models.Demanda, enforceFutureDue bool) []FieldError {
	var errs []FieldError

	if utf8.RuneCountInString(strings.TrimSpace(d.NomeDemanda)) < MinNomeLength {
		errs = append(errs, FieldError{
			Campo:    "nomeDemanda",
			Mensagem: fmt.Sprintf("deve ter pelo menos %d caracteres", MinNomeLength),
		})
	}

	if strings.TrimSpace(d.Categoria) == "" {
		errs = append(errs, FieldError{
			Campo:    "categoria",
			Mensagem: "é obrigatória",
		})
	}

	if !d.Prioridade.Valid() {
		errs = append(errs, FieldError{
			Campo:    "prioridade",
			Mensagem: "deve ser Importante, Média ou Relevante",
		})
	}

	if !d.Complexidade.Valid() {
		errs = append(errs, FieldError{
			Campo:    "complexidade",
			Mensagem: "deve ser Fácil, Média ou Difícil",
		})
	}

	if utf8.RuneCountInString(strings.TrimSpace(d.Descricao)) < MinDescricaoLength {
		errs = append(errs, FieldError{
			Campo:    "descricao",
			Mensagem: fmt.Sprintf("deve ter pelo menos %d caracteres", MinDescricaoLength),
		})
	}

	if strings.TrimSpace(d.Local) == "" {
		errs = append(errs, FieldError{
			Campo:    "local",
			Mensagem: "é obrigatório",
		})
	}

	if d.DataLimite.IsZero() {
		errs = append(errs, FieldError{
			Campo:    "dataLimite",
			Mensagem: "é obrigatória",
		})
	} else if enforceFutureDue && d.DataLimite.Before(models.Today()) {
		// Date-only comparison: a due date of today is accepted.
		errs = append(errs, FieldError{
			Campo:    "dataLimite",
			Mensagem: "não pode estar no passado",
		})
	}

	return errs
}

// Status checks a status value carried by an update. Unknown values are
// rejected; the status domain is closed.
func Status(s models.Status) []FieldError {
	if s == "" || s.Known() {
		return nil
	}
	return []FieldError{{
		Campo:    "status",
		Mensagem: fmt.Sprintf("status desconhecido: %q", string(s)),
	}}
}
