package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sensor-platform/alert-engine/internal/websocket"
)

// RegisterWebSocketRoutes exposes the hub at GET /ws. The hub performs the
// upgrade itself, so no handler struct is needed here.
func RegisterWebSocketRoutes(router *gin.Engine, wsHub *websocket.Hub) {
	router.GET("/ws", func(c *gin.Context) {
		wsHub.ServeWS(c.Writer, c.Request)
	})
}
