package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message belongs to exactly one room class: either GroupID or PeerChatID is set,
// never both.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	SenderID   string    `json:"sender_id"`
	GroupID    *string   `json:"group_id,omitempty"`
	PeerChatID *string   `json:"peer_chat_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomID returns the room the message is scoped to.
func (m *Message) RoomID() string {
	if m.GroupID != nil {
		return *m.GroupID
	}
	if m.PeerChatID != nil {
		return *m.PeerChatID
	}
	return ""
}
