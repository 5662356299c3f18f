package gateway

import (
	"encoding/json"

	"chat_server/internal/domain"
)

// Frame is the envelope of every inbound client event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventSendMessage       = "sendMessage"
	EventDeleteForEveryone = "deleteMessageForEveryone"
	EventDeleteForMe       = "deleteMessageForMe"
)

const (
	StatusJoined             = "joined"
	StatusLeft               = "left"
	StatusOK                 = "ok"
	StatusDeletedForEveryone = "deletedForEveryone"
	StatusDeletedForMe       = "deletedForMe"
	StatusError              = "error"
)

type RoomData struct {
	RoomID string `json:"roomId"`
}

type SendMessageData struct {
	Content string `json:"content"`
	To      string `json:"to,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

type MessageIDData struct {
	MessageID string `json:"messageId"`
}

// Reply is the synchronous result delivered to the originating connection
// only. Errors are never broadcast to a room.
type Reply struct {
	Status    string          `json:"status"`
	RoomID    string          `json:"roomId,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
}

// ErrorReply is the rejection ack: {"status":"error","message":"..."}.
type ErrorReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
