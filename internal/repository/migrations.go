package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		group_id TEXT,
		peer_chat_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (
			(group_id IS NOT NULL AND peer_chat_id IS NULL) OR
			(group_id IS NULL AND peer_chat_id IS NOT NULL)
		)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_group ON messages (group_id, created_at DESC, id DESC)
		WHERE group_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_messages_peer ON messages (peer_chat_id, created_at DESC, id DESC)
		WHERE peer_chat_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS message_tombstones (
		message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (message_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_blocks (
		blocker_id TEXT NOT NULL,
		blocked_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (blocker_id, blocked_id)
	)`,
}

// Migrate applies the schema at startup. Statements are idempotent so every
// instance can run them on boot.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
