package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat_server/pkg/logger"
)

const (
	OnlineUsersKey    = "online_users"
	LastSeenKeyPrefix = "last_seen:%s"
)

// PresenceRepository is the shared online/last-seen store. Every primitive is
// a single-key atomic redis operation; no cross-key coordination is needed.
type PresenceRepository interface {
	AddOnline(ctx context.Context, userID string) error
	RemoveOnline(ctx context.Context, userID string) error
	OnlineUsers(ctx context.Context) ([]string, error)
	SetLastSeen(ctx context.Context, userID string, ts time.Time) error
	LastSeen(ctx context.Context, userID string) (*time.Time, error)
}

type presenceRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewPresenceRepository(rdb *redis.Client, log logger.Logger) PresenceRepository {
	return &presenceRepository{rdb: rdb, log: log}
}

func lastSeenKey(userID string) string {
	return fmt.Sprintf(LastSeenKeyPrefix, userID)
}

func (r *presenceRepository) AddOnline(ctx context.Context, userID string) error {
	if err := r.rdb.SAdd(ctx, OnlineUsersKey, userID).Err(); err != nil {
		r.log.Error("Failed to add online user", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) RemoveOnline(ctx context.Context, userID string) error {
	if err := r.rdb.SRem(ctx, OnlineUsersKey, userID).Err(); err != nil {
		r.log.Error("Failed to remove online user", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) OnlineUsers(ctx context.Context) ([]string, error) {
	users, err := r.rdb.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		r.log.Error("Failed to list online users", "error", err)
		return nil, err
	}
	return users, nil
}

func (r *presenceRepository) SetLastSeen(ctx context.Context, userID string, ts time.Time) error {
	if err := r.rdb.Set(ctx, lastSeenKey(userID), ts.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		r.log.Error("Failed to set last seen", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) LastSeen(ctx context.Context, userID string) (*time.Time, error) {
	value, err := r.rdb.Get(ctx, lastSeenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to get last seen", "error", err, "user_id", userID)
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("parse last seen for %s: %w", userID, err)
	}
	return &ts, nil
}
