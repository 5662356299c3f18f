package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chat_server/pkg/logger"
)

type Repositories struct {
	Message     MessageRepository
	Presence    PresenceRepository
	SocialGraph SocialGraphRepository
	RateLimit   RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Message:     NewMessageRepository(db, log),
		Presence:    NewPresenceRepository(rdb, log),
		SocialGraph: NewSocialGraphRepository(db, log),
		RateLimit:   NewRateLimitRepository(rdb, log),
	}
}
