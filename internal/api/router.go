// Package api is the HTTP façade: route wiring, request translation and
// the uniform response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dmarinho/gestor-demandas/internal/backup"
	"github.com/dmarinho/gestor-demandas/internal/db"
	"github.com/dmarinho/gestor-demandas/internal/demandas"
	"github.com/dmarinho/gestor-demandas/internal/logging"
	"github.com/dmarinho/gestor-demandas/internal/metrics"
	"github.com/dmarinho/gestor-demandas/internal/notify"
)

// Deps carries everything the router needs. Hub, Metrics and ErrorLog are
// optional.
type Deps struct {
	Service    *demandas.Service
	Backups    *backup.Service
	Database   *db.DB
	Hub        *notify.Hub
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	ErrorLog   *logging.ErrorLog
	Production bool
	Version    string
}

type handlers struct {
	service    *demandas.Service
	backups    *backup.Service
	database   *db.DB
	production bool
	version    string
	startedAt  time.Time
}

// NewRouter assembles the gin engine with middleware and every route.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handlers{
		service:    deps.Service,
		backups:    deps.Backups,
		database:   deps.Database,
		production: deps.Production,
		version:    deps.Version,
		startedAt:  time.Now(),
	}

	router := gin.New()
	router.Use(recovery(deps.Logger, deps.ErrorLog))
	router.Use(requestLogger(deps.Logger, deps.Metrics))

	router.GET("/health", h.health)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	if deps.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWS(c.Writer, c.Request)
		})
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/demandas", h.listDemandas)
		apiGroup.POST("/demandas", h.createDemanda)
		apiGroup.GET("/demandas/estatisticas", h.estatisticas)
		apiGroup.GET("/demandas/search", h.searchDemandas)
		apiGroup.GET("/demandas/:id", h.getDemanda)
		apiGroup.PUT("/demandas/:id", h.updateDemanda)
		apiGroup.DELETE("/demandas/:id", h.deleteDemanda)

		apiGroup.POST("/backup", h.createBackup)
		apiGroup.GET("/backups", h.listBackups)
		apiGroup.POST("/restore", h.restoreBackup)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "rota não encontrada",
		})
	})

	return router
}
