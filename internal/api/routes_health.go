package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/app"
	"github.com/charlesng35/tooltable/internal/handlers"
	"github.com/charlesng35/tooltable/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	// the portal pages poll this regardless of probe configuration
	r.GET("/api/health", handlers.Health())

	if !cfg.Monitoring.Health.Enabled || mon == nil || mon.Health() == nil {
		r.GET("/health/live", disabledHealthHandler)
		r.GET("/health/ready", disabledHealthHandler)
		return
	}

	manager := mon.Health()
	r.GET("/health/live", handlers.Liveness(manager))
	r.GET("/health/ready", handlers.Readiness(manager))
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
