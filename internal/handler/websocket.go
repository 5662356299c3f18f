package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat_server/internal/gateway"
	"chat_server/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to known origins once the frontend domains settle
	},
}

type WebSocketHandler struct {
	hub *gateway.Hub
	log logger.Logger
}

func NewWebSocketHandler(hub *gateway.Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log}
}

// Handle upgrades an already-authenticated request. A request that failed the
// auth middleware never reaches this point, so no connection state exists for
// failed handshakes.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.hub.Register(ws, userID)
}
