package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/logging"
	"github.com/dmarinho/gestor-demandas/internal/metrics"
)

// requestLogger logs one structured line per request and feeds the HTTP
// counters. The route template (not the raw path) labels the metrics to
// keep cardinality bounded.
func requestLogger(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		if m != nil {
			m.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(elapsed.Seconds())
		}

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("client", c.ClientIP()))
	}
}

// recovery converts a panic into a generic 500 plus a timestamped line in
// the plain-text error log.
func recovery(logger *zap.Logger, errorLog *logging.ErrorLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recuperado",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path))
				if errorLog != nil {
					errorLog.Append(fmt.Sprintf("panic em %s %s: %v",
						c.Request.Method, c.Request.URL.Path, rec))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "erro interno do servidor",
				})
			}
		}()
		c.Next()
	}
}
