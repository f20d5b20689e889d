package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmarinho/gestor-demandas/internal/db"
	"github.com/dmarinho/gestor-demandas/internal/demandas"
	"github.com/dmarinho/gestor-demandas/internal/models"
)

// requestMeta extracts mutation attribution from the request: the client
// address as origin and the optional user id header. An absent header means
// an anonymous mutation.
func requestMeta(c *gin.Context) demandas.Meta {
	meta := demandas.Meta{Origem: c.ClientIP()}
	if raw := c.GetHeader("X-Usuario-Id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			meta.UsuarioID = &id
		}
	}
	return meta
}

func listOptionsFromQuery(c *gin.Context) db.ListOptions {
	opts := db.ListOptions{
		Status:         c.Query("status"),
		Categoria:      c.Query("categoria"),
		Prioridade:     c.Query("prioridade"),
		OrderBy:        c.Query("orderBy"),
		OrderDirection: c.Query("orderDirection"),
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.ParseInt(c.Query("funcionarioId"), 10, 64); err == nil {
		opts.FuncionarioID = v
	}
	if t, err := time.Parse(models.DateLayout, c.Query("dataInicio")); err == nil {
		opts.DataInicio = t
	}
	if t, err := time.Parse(models.DateLayout, c.Query("dataFim")); err == nil {
		// Inclusive upper bound: the whole final day counts.
		opts.DataFim = t.Add(24*time.Hour - time.Nanosecond)
	}
	return opts
}

func (h *handlers) listDemandas(c *gin.Context) {
	records, pagination, err := h.service.List(listOptionsFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       records,
		"pagination": pagination,
	})
}

func (h *handlers) getDemanda(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id inválido"})
		return
	}
	d, err := h.service.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "demanda": d})
}

func (h *handlers) createDemanda(c *gin.Context) {
	var d models.Demanda
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "corpo da requisição inválido"})
		return
	}
	created, err := h.service.Create(&d, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "demanda": created})
}

func (h *handlers) updateDemanda(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id inválido"})
		return
	}
	var in demandas.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "corpo da requisição inválido"})
		return
	}
	updated, err := h.service.Update(id, &in, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "demanda": updated})
}

func (h *handlers) deleteDemanda(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id inválido"})
		return
	}
	if _, err := h.service.Delete(id, requestMeta(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) searchDemandas(c *gin.Context) {
	limit := 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}
	records, err := h.service.Search(c.Query("q"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func (h *handlers) estatisticas(c *gin.Context) {
	dias := 0
	if v, err := strconv.Atoi(c.Query("periodo")); err == nil {
		dias = v
	}
	stats, err := h.service.Statistics(dias)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "estatisticas": stats})
}
