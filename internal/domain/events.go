package domain

const (
	EventMessageReceived = "receivedMessage"
	EventMessageDeleted  = "messageDeleted"
)

// ServerEvent is the envelope published on the backplane and delivered to
// subscribed sockets.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
}

type HistoryPage struct {
	Messages   []*Message `json:"messages"`
	NextCursor *string    `json:"nextCursor"`
	HasMore    bool       `json:"hasMore"`
}
