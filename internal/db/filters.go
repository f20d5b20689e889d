// Package db provides listing filter and ordering construction.
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmarinho/gestor-demandas/internal/models"
)

// Filter represents a single listing filter condition.
type Filter interface {
	// SQL returns the SQL fragment for this filter
	SQL() string

	// Args returns the arguments for this filter
	Args() []interface{}

	// Valid checks if the filter is valid
	Valid() bool
}

// StatusFilter filters demandas by status.
type StatusFilter struct {
	Status string
}

// Valid checks if the status filter carries a value.
func (f *StatusFilter) Valid() bool {
	return strings.TrimSpace(f.Status) != ""
}

// SQL returns the SQL fragment for status filtering.
func (f *StatusFilter) SQL() string {
	return "status = ?"
}

// Args returns the arguments for status filtering.
func (f *StatusFilter) Args() []interface{} {
	return []interface{}{f.Status}
}

// FuncionarioFilter filters demandas by assignee id.
type FuncionarioFilter struct {
	FuncionarioID int64
}

// Valid checks if the assignee id is set.
func (f *FuncionarioFilter) Valid() bool {
	return f.FuncionarioID > 0
}

// SQL returns the SQL fragment for assignee filtering.
func (f *FuncionarioFilter) SQL() string {
	return "funcionario_id = ?"
}

// Args returns the arguments for assignee filtering.
func (f *FuncionarioFilter) Args() []interface{} {
	return []interface{}{f.FuncionarioID}
}

// CategoriaFilter filters demandas by category.
type CategoriaFilter struct {
	Categoria string
}

// Valid checks if the category filter carries a value.
func (f *CategoriaFilter) Valid() bool {
	return strings.TrimSpace(f.Categoria) != ""
}

// SQL returns the SQL fragment for category filtering.
func (f *CategoriaFilter) SQL() string {
	return "categoria = ?"
}

// Args returns the arguments for category filtering.
func (f *CategoriaFilter) Args() []interface{} {
	return []interface{}{f.Categoria}
}

// PrioridadeFilter filters demandas by priority.
type PrioridadeFilter struct {
	Prioridade string
}

// Valid checks if the priority is one of the allowed values.
func (f *PrioridadeFilter) Valid() bool {
	return models.Prioridade(f.Prioridade).Valid()
}

// SQL returns the SQL fragment for priority filtering.
func (f *PrioridadeFilter) SQL() string {
	return "prioridade = ?"
}

// Args returns the arguments for priority filtering.
func (f *PrioridadeFilter) Args() []interface{} {
	return []interface{}{f.Prioridade}
}

// DateRangeFilter filters by creation-date range, bounds inclusive.
type DateRangeFilter struct {
	From int64 // Unix timestamp
	To   int64 // Unix timestamp
}

// Valid checks if the date range is valid.
func (f *DateRangeFilter) Valid() bool {
	if f.From == 0 && f.To == 0 {
		return false
	}
	if f.From > 0 && f.To > 0 && f.From > f.To {
		return false
	}
	return true
}

// SQL returns the SQL fragment for date range filtering.
func (f *DateRangeFilter) SQL() string {
	var parts []string
	if f.From > 0 {
		parts = append(parts, "data_criacao >= ?")
	}
	if f.To > 0 {
		parts = append(parts, "data_criacao <= ?")
	}
	return strings.Join(parts, " AND ")
}

// Args returns the arguments for date range filtering.
func (f *DateRangeFilter) Args() []interface{} {
	var args []interface{}
	if f.From > 0 {
		args = append(args, f.From)
	}
	if f.To > 0 {
		args = append(args, f.To)
	}
	return args
}

// FilterBuilder builds SQL filter conditions from multiple filters.
type FilterBuilder struct {
	filters []Filter
}

// NewFilterBuilder creates a new FilterBuilder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]Filter, 0),
	}
}

// Status adds a status filter.
func (fb *FilterBuilder) Status(status string) *FilterBuilder {
	return fb.add(&StatusFilter{Status: status})
}

// Funcionario adds an assignee filter.
func (fb *FilterBuilder) Funcionario(id int64) *FilterBuilder {
	return fb.add(&FuncionarioFilter{FuncionarioID: id})
}

// Categoria adds a category filter.
func (fb *FilterBuilder) Categoria(categoria string) *FilterBuilder {
	return fb.add(&CategoriaFilter{Categoria: categoria})
}

// Prioridade adds a priority filter.
func (fb *FilterBuilder) Prioridade(prioridade string) *FilterBuilder {
	return fb.add(&PrioridadeFilter{Prioridade: prioridade})
}

// DateRange adds a creation-date range filter from time bounds. Zero times
// leave the corresponding bound open.
func (fb *FilterBuilder) DateRange(from, to time.Time) *FilterBuilder {
	var f, t int64
	if !from.IsZero() {
		f = from.Unix()
	}
	if !to.IsZero() {
		t = to.Unix()
	}
	return fb.add(&DateRangeFilter{From: f, To: t})
}

func (fb *FilterBuilder) add(filter Filter) *FilterBuilder {
	if filter.Valid() {
		fb.filters = append(fb.filters, filter)
	}
	return fb
}

// HasFilters returns true if any filters have been added.
func (fb *FilterBuilder) HasFilters() bool {
	return len(fb.filters) > 0
}

// Count returns the number of filters.
func (fb *FilterBuilder) Count() int {
	return len(fb.filters)
}

// Build builds the SQL WHERE fragment and returns the arguments.
func (fb *FilterBuilder) Build() (string, []interface{}) {
	if !fb.HasFilters() {
		return "", nil
	}

	var sqlParts []string
	var args []interface{}

	for _, filter := range fb.filters {
		sqlParts = append(sqlParts, filter.SQL())
		args = append(args, filter.Args()...)
	}

	return strings.Join(sqlParts, " AND "), args
}

// Reset clears all filters.
func (fb *FilterBuilder) Reset() *FilterBuilder {
	fb.filters = make([]Filter, 0)
	return fb
}

// String returns a string representation of the filters (for debugging).
func (fb *FilterBuilder) String() string {
	if !fb.HasFilters() {
		return "(no filters)"
	}

	var parts []string
	for _, filter := range fb.filters {
		parts = append(parts, fmt.Sprintf("%T", filter))
	}
	return strings.Join(parts, ", ")
}

// sortColumns is the allow-list of sortable fields. Anything else falls back
// to the creation date.
var sortColumns = map[string]string{
	"dataCriacao": "data_criacao",
	"dataLimite":  "data_limite",
	"status":      "status",
	"prioridade":  "prioridade",
	"categoria":   "categoria",
}

// OrderClause resolves the ORDER BY clause for a listing request. The field
// is checked against the allow-list and the direction is normalized to
// ASC/DESC, defaulting to DESC.
func OrderClause(orderBy, direction string) string {
	column, ok := sortColumns[orderBy]
	if !ok {
		column = "data_criacao"
	}

	dir := "DESC"
	if strings.EqualFold(direction, "asc") {
		dir = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s", column, dir)
}
