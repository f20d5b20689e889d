package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *handlers) health(c *gin.Context) {
	status := "ok"
	httpStatus := http.StatusOK

	count, err := h.service.Count()
	if err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	integrity := "ok"
	if !h.database.IntegrityOK() {
		integrity = "falha"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"demandas":  count,
		"integrity": integrity,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"memory": gin.H{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"version": h.version,
	})
}
