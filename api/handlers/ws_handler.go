package handlers

import (
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/ws"

	"github.com/gin-gonic/gin"
)

// DeviceSocket upgrades the request to a device WebSocket session. The hub
// owns the connection from here on.
func DeviceSocket(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	}
}
