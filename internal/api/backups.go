package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarinho/gestor-demandas/internal/models"
)

type backupRequest struct {
	Tipo string `json:"tipo"`
}

type restoreRequest struct {
	BackupID int64 `json:"backupId"`
}

func (h *handlers) createBackup(c *gin.Context) {
	var req backupRequest
	// An empty body means a manual backup; anything else must parse.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "corpo da requisição inválido"})
		return
	}
	if req.Tipo == "" {
		req.Tipo = models.BackupManual
	}

	b, err := h.backups.Snapshot(req.Tipo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("backup %s criado com %d bytes", req.Tipo, b.TamanhoBytes),
		"filename": b.NomeArquivo,
	})
}

func (h *handlers) listBackups(c *gin.Context) {
	list, err := h.backups.List()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "backups": list})
}

func (h *handlers) restoreBackup(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BackupID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "backupId é obrigatório"})
		return
	}

	result, err := h.backups.Restore(req.BackupID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d demandas restauradas, %d ignoradas",
			result.Importadas, result.Ignoradas),
	})
}
