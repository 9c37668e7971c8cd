package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sensor-platform/alert-engine/internal/api/handlers"
	"gorm.io/gorm"
)

// RegisterHealthRoutes registers the probe and info endpoints. /health/live
// answers without touching the database so orchestrator liveness probes stay
// cheap; /health reports readiness including database reachability.
func RegisterHealthRoutes(router *gin.Engine, db *gorm.DB) {
	healthHandler := handlers.NewHealthHandler(db)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/info", healthHandler.GetAPIInfo)
}
