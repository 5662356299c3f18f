package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "chat_server/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Conn is one authenticated socket. It is owned by the hub instance that
// accepted it and disappears on disconnect.
type Conn struct {
	ID        uuid.UUID
	principal string

	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	// rooms is guarded by hub.mu together with the hub room index.
	rooms map[string]struct{}

	// sendMu orders enqueue against closeSend so a fan-out goroutine that
	// snapshotted this conn before a disconnect can never hit a closed channel.
	sendMu     sync.Mutex
	sendClosed bool
}

func newConn(hub *Hub, ws *websocket.Conn, principal string) *Conn {
	return &Conn{
		ID:        uuid.New(),
		principal: principal,
		hub:       hub,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		rooms:     make(map[string]struct{}),
	}
}

// enqueue hands a payload to the writer. A consumer that cannot drain its
// buffer loses the payload rather than stalling the hub; a payload arriving
// after disconnect is dropped silently.
func (c *Conn) enqueue(payload []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.log.Warn("Dropping payload for slow connection", "conn_id", c.ID, "user_id", c.principal)
	}
}

func (c *Conn) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.presence.Heartbeat(context.Background(), c.principal)
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("Unexpected close", "conn_id", c.ID, "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one inbound frame. Frames from a single connection are
// processed here sequentially, so one client's sends are never reordered.
func (c *Conn) dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.replyErrorText("malformed frame")
		return
	}

	ctx := context.Background()

	switch frame.Event {
	case EventJoinRoom:
		c.handleJoinRoom(frame.Data)
	case EventLeaveRoom:
		c.handleLeaveRoom(frame.Data)
	case EventSendMessage:
		c.handleSendMessage(ctx, frame.Data)
	case EventDeleteForEveryone:
		c.handleDeleteForEveryone(ctx, frame.Data)
	case EventDeleteForMe:
		c.handleDeleteForMe(ctx, frame.Data)
	default:
		c.replyErrorText(fmt.Sprintf("unknown event %q", frame.Event))
	}
}

func (c *Conn) handleJoinRoom(data json.RawMessage) {
	var req RoomData
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		c.replyErrorText("roomId is required")
		return
	}
	c.hub.joinRoom(c, req.RoomID)
	c.reply(Reply{Status: StatusJoined, RoomID: req.RoomID})
}

func (c *Conn) handleLeaveRoom(data json.RawMessage) {
	var req RoomData
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		c.replyErrorText("roomId is required")
		return
	}
	c.hub.leaveRoom(c, req.RoomID)
	c.reply(Reply{Status: StatusLeft, RoomID: req.RoomID})
}

func (c *Conn) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var req SendMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		c.replyErrorText("malformed sendMessage payload")
		return
	}

	if err := c.hub.allowSend(ctx, c.principal); err != nil {
		c.replyError(err)
		return
	}

	message, err := c.hub.chat.Send(ctx, c.principal, req.Content, req.To, req.GroupID)
	if err != nil {
		c.replyError(err)
		return
	}

	c.reply(Reply{Status: StatusOK, Message: message})
}

func (c *Conn) handleDeleteForEveryone(ctx context.Context, data json.RawMessage) {
	var req MessageIDData
	if err := json.Unmarshal(data, &req); err != nil || req.MessageID == "" {
		c.replyErrorText("messageId is required")
		return
	}

	if err := c.hub.chat.DeleteForEveryone(ctx, req.MessageID, c.principal); err != nil {
		c.replyError(err)
		return
	}
	c.reply(Reply{Status: StatusDeletedForEveryone, MessageID: req.MessageID})
}

func (c *Conn) handleDeleteForMe(ctx context.Context, data json.RawMessage) {
	var req MessageIDData
	if err := json.Unmarshal(data, &req); err != nil || req.MessageID == "" {
		c.replyErrorText("messageId is required")
		return
	}

	if err := c.hub.chat.DeleteForMe(ctx, req.MessageID, c.principal); err != nil {
		c.replyError(err)
		return
	}
	c.reply(Reply{Status: StatusDeletedForMe, MessageID: req.MessageID})
}

func (c *Conn) reply(r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		c.hub.log.Error("Failed to marshal reply", "error", err)
		return
	}
	c.enqueue(payload)
}

func (c *Conn) replyError(err error) {
	c.replyErrorText(clientMessage(err))
}

func (c *Conn) replyErrorText(msg string) {
	payload, err := json.Marshal(ErrorReply{Status: StatusError, Message: msg})
	if err != nil {
		c.hub.log.Error("Failed to marshal reply", "error", err)
		return
	}
	c.enqueue(payload)
}

// clientMessage keeps infrastructure details out of the error surface.
func clientMessage(err error) string {
	for _, known := range []error{
		apperrors.ErrValidation,
		apperrors.ErrBlocked,
		apperrors.ErrForbidden,
		apperrors.ErrNotFound,
		apperrors.ErrMessageNotFound,
		apperrors.ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return apperrors.ErrInternalServer.Error()
}
