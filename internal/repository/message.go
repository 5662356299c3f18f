package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat_server/internal/domain"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, messageID string) (*domain.Message, error)
	HardDelete(ctx context.Context, messageID string) error
	SoftDeleteForViewer(ctx context.Context, messageID, viewerID string) error
	GroupPage(ctx context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error)
	PeerPage(ctx context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, content, sender_id, group_id, peer_chat_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.Content, message.SenderID,
		message.GroupID, message.PeerChatID,
	).Scan(&message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `
		SELECT id, content, sender_id, group_id, peer_chat_id, created_at
		FROM messages
		WHERE id = $1
	`

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID, &message.Content, &message.SenderID,
		&message.GroupID, &message.PeerChatID, &message.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		r.log.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, fmt.Errorf("get message: %w", err)
	}

	return message, nil
}

func (r *messageRepository) HardDelete(ctx context.Context, messageID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil {
		r.log.Error("Failed to delete message", "error", err, "message_id", messageID)
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) SoftDeleteForViewer(ctx context.Context, messageID, viewerID string) error {
	// Upsert semantics: repeat deletes for the same (message, viewer) are no-ops.
	query := `
		INSERT INTO message_tombstones (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, messageID, viewerID); err != nil {
		r.log.Error("Failed to create tombstone", "error", err, "message_id", messageID)
		return fmt.Errorf("create tombstone: %w", err)
	}
	return nil
}

func (r *messageRepository) GroupPage(ctx context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error) {
	return r.page(ctx, "group_id", roomID, viewerID, cursor, limit)
}

func (r *messageRepository) PeerPage(ctx context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error) {
	return r.page(ctx, "peer_chat_id", roomID, viewerID, cursor, limit)
}

// page runs keyset pagination over one room partition. Messages tombstoned for
// the viewer are excluded; the cursor selects rows strictly older than the
// cursor message.
func (r *messageRepository) page(ctx context.Context, scopeColumn, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.content, m.sender_id, m.group_id, m.peer_chat_id, m.created_at
		FROM messages m
		LEFT JOIN message_tombstones t ON t.message_id = m.id AND t.user_id = $2
		WHERE m.%s = $1 AND t.message_id IS NULL
	`, scopeColumn)

	args := []any{roomID, viewerID}
	if cursor != "" {
		query += ` AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = $3)`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY m.created_at DESC, m.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query messages", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID, &message.Content, &message.SenderID,
			&message.GroupID, &message.PeerChatID, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}
