package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chat_server/pkg/logger"
)

// SocialGraphRepository exposes the block predicate consumed before relaying a
// peer message. The rest of the block/friendship machinery is owned elsewhere.
type SocialGraphRepository interface {
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
}

type socialGraphRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSocialGraphRepository(db *pgxpool.Pool, log logger.Logger) SocialGraphRepository {
	return &socialGraphRepository{db: db, log: log}
}

func (r *socialGraphRepository) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2)`

	var blocked bool
	if err := r.db.QueryRow(ctx, query, blockerID, blockedID).Scan(&blocked); err != nil {
		r.log.Error("Failed to check block", "error", err)
		return false, fmt.Errorf("check block: %w", err)
	}
	return blocked, nil
}
