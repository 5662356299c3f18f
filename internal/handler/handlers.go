package handler

import (
	"chat_server/internal/config"
	"chat_server/internal/gateway"
	"chat_server/internal/service"
	"chat_server/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	Presence  *PresenceHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *gateway.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Chat:      NewChatHandler(services.History, log),
		Presence:  NewPresenceHandler(services.Presence, log),
		WebSocket: NewWebSocketHandler(hub, log),
	}
}
