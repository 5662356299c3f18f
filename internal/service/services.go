package service

import (
	"chat_server/internal/backplane"
	"chat_server/internal/config"
	"chat_server/internal/repository"
	"chat_server/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Chat      ChatService
	History   HistoryService
	Presence  PresenceService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, bp backplane.Backplane, cfg *config.Config, log logger.Logger) *Services {
	return &Services{
		Auth:      NewAuthService(cfg.JWT, log),
		Chat:      NewChatService(repos.Message, repos.SocialGraph, bp, log),
		History:   NewHistoryService(repos.Message, log),
		Presence:  NewPresenceService(repos.Presence, cfg.Presence, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
