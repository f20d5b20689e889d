package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/dmarinho/gestor-demandas/internal/errors"
)

// respondError maps an application error onto the uniform response
// envelope. Validation failures carry the per-field message list; storage
// failures expose the raw message only outside production.
func (h *handlers) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		h.internalError(c, err)
		return
	}

	switch appErr.Code {
	case apperrors.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  appErr.Fields,
		})
	case apperrors.ErrInvalid:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	case apperrors.ErrDemandaNotFound, apperrors.ErrBackupNotFound, apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	case apperrors.ErrDuplicateTag, apperrors.ErrConstraint:
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	case apperrors.ErrCorruptBackup, apperrors.ErrRestoreFailed, apperrors.ErrBackupFailed:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	default:
		h.internalError(c, err)
	}
}

func (h *handlers) internalError(c *gin.Context, err error) {
	msg := "erro interno do servidor"
	if !h.production && err != nil {
		msg = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   msg,
	})
}
