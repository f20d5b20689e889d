// Package db provides trailing-window aggregation over demandas.
package db

import (
	"database/sql"
	"time"

	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// Estatisticas aggregates demandas created within a trailing window.
type Estatisticas struct {
	PeriodoDias     int      `json:"periodoDias"`
	Total           int      `json:"total"`
	Aprovadas       int      `json:"aprovadas"`
	Pendentes       int      `json:"pendentes"`
	Reprovadas      int      `json:"reprovadas"`
	EmRevisao       int      `json:"emRevisao"`
	Recorrentes     int      `json:"recorrentes"`
	MediaAtrasoDias *float64 `json:"mediaAtrasoDias"`
}

// Statistics aggregates records created within the trailing windowDays:
// total count, per-status buckets, recurring count and the mean
// (conclusion − due date) in days over approved records that carry both
// dates. Negative mean lateness means early completion.
func (r *Repository) Statistics(windowDays int) (*Estatisticas, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -windowDays).Unix()

	stats := &Estatisticas{PeriodoDias: windowDays}

	rows, err := r.db.Query(
		"SELECT status, COUNT(*) FROM demandas WHERE data_criacao >= ? GROUP BY status", cutoff)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao agregar status", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao ler agregação", err)
		}
		stats.Total += count
		switch status {
		case models.StatusAprovada:
			stats.Aprovadas += count
		case models.StatusReprovada:
			stats.Reprovadas += count
		case models.StatusEmRevisao:
			stats.EmRevisao += count
		case models.StatusPendente, models.StatusFinalizadoPendente:
			stats.Pendentes += count
		default:
			// Unknown statuses still count towards the total.
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iterar agregação", err)
	}

	err = r.db.QueryRow(
		"SELECT COUNT(*) FROM demandas WHERE data_criacao >= ? AND recorrente = 1", cutoff).
		Scan(&stats.Recorrentes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao contar recorrentes", err)
	}

	var media sql.NullFloat64
	err = r.db.QueryRow(`
		SELECT AVG(julianday(data_conclusao) - julianday(data_limite))
		FROM demandas
		WHERE data_criacao >= ?
		  AND status = ?
		  AND data_conclusao IS NOT NULL
		  AND data_limite IS NOT NULL`,
		cutoff, models.StatusAprovada).Scan(&media)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao calcular atraso médio", err)
	}
	if media.Valid {
		stats.MediaAtrasoDias = &media.Float64
	}

	return stats, nil
}
