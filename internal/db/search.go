// Package db provides ranked substring search over demandas.
package db

import (
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// searchMinLength is the minimum query length; shorter queries return an
// empty result set instead of scanning the table.
const searchMinLength = 2

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// SearchDemandas performs a case-insensitive substring search across name,
// description and tag. Results are ranked: name matches first, description
// matches second, tag matches last, then by due date ascending within each
// rank.
func (r *Repository) SearchDemandas(query string, limit int) ([]*models.Demanda, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < searchMinLength {
		return []*models.Demanda{}, nil
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	sqlQuery := `
	SELECT ` + demandaColumns + `,
		CASE
			WHEN lower(nome_demanda) LIKE ? ESCAPE '\' THEN 1
			WHEN lower(descricao) LIKE ? ESCAPE '\' THEN 2
			ELSE 3
		END AS ranking
	FROM demandas
	WHERE lower(nome_demanda) LIKE ? ESCAPE '\'
	   OR lower(descricao) LIKE ? ESCAPE '\'
	   OR lower(tag) LIKE ? ESCAPE '\'
	ORDER BY ranking ASC, data_limite IS NULL, data_limite ASC
	LIMIT ?
	`

	rows, err := r.db.Query(sqlQuery, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha na busca de demandas", err)
	}
	defer rows.Close()

	var demandas []*models.Demanda
	for rows.Next() {
		var ranking int
		d, err := scanDemandaWithRank(rows, &ranking)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao ler resultado da busca", err)
		}
		demandas = append(demandas, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "falha ao iterar resultados", err)
	}
	if demandas == nil {
		demandas = []*models.Demanda{}
	}
	return demandas, nil
}

// scanDemandaWithRank scans a demanda row trailed by a ranking column.
func scanDemandaWithRank(row rowScanner, ranking *int) (*models.Demanda, error) {
	var d models.Demanda
	var funcionarioID, criadoPor, atualizadoPor sql.NullInt64
	var dataCriacao, atualizadoEm int64
	var dataConclusao models.Date

	err := row.Scan(
		&d.ID, &d.Tag, &d.NomeDemanda, &funcionarioID, &d.FuncionarioNome, &d.FuncionarioEmail,
		&criadoPor, &atualizadoPor, &d.Categoria, &d.Prioridade, &d.Complexidade, &d.Descricao, &d.Local,
		&d.Comentarios, &d.ComentariosGestor, &dataCriacao, &d.DataLimite, &dataConclusao,
		&d.Recorrente, &d.DiasSemana, &d.FuncionariosIDs, &d.Status, &atualizadoEm,
		ranking,
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
