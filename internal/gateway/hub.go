package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat_server/internal/backplane"
	"chat_server/internal/config"
	"chat_server/internal/service"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

// Hub owns every connection accepted by this instance and routes backplane
// events to the locally connected sockets. Room broadcasts from any instance
// arrive through the backplane, so local and remote sends take the same
// delivery path.
type Hub struct {
	bp        backplane.Backplane
	chat      service.ChatService
	presence  service.PresenceService
	rateLimit service.RateLimitService
	rlCfg     config.RateLimitConfig
	log       logger.Logger

	mu    sync.RWMutex
	conns map[uuid.UUID]*Conn
	rooms map[string]map[uuid.UUID]*Conn

	// topicMu serializes backplane subscribe/unsubscribe transitions so a
	// join racing the teardown of a last leave cannot lose its subscription.
	// Never taken on the delivery path.
	topicMu sync.Mutex
	topics  map[string]bool
}

func NewHub(bp backplane.Backplane, services *service.Services, rlCfg config.RateLimitConfig, log logger.Logger) (*Hub, error) {
	h := &Hub{
		bp:        bp,
		chat:      services.Chat,
		presence:  services.Presence,
		rateLimit: services.RateLimit,
		rlCfg:     rlCfg,
		log:       log,
		conns:     make(map[uuid.UUID]*Conn),
		rooms:     make(map[string]map[uuid.UUID]*Conn),
		topics:    make(map[string]bool),
	}

	// Retraction events must reach every connected client, not only room
	// subscribers.
	if err := bp.Subscribe(backplane.GlobalTopic, h.deliverAll); err != nil {
		return nil, fmt.Errorf("subscribe global topic: %w", err)
	}

	return h, nil
}

// Register takes ownership of an authenticated socket: the principal goes
// online and the connection starts serving events. Presence is a side effect,
// never a gate.
func (h *Hub) Register(ws *websocket.Conn, principal string) *Conn {
	c := newConn(h, ws, principal)
	h.addConn(c)

	h.presence.MarkOnline(context.Background(), principal)
	h.log.Info("Connection registered", "conn_id", c.ID, "user_id", principal)

	go c.writePump()
	go c.readPump()

	return c
}

func (h *Hub) addConn(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.ID)

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
		delete(h.rooms[roomID], c.ID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	for _, roomID := range rooms {
		h.syncTopic(roomID)
	}

	c.closeSend()
	h.presence.MarkOffline(context.Background(), c.principal)
	h.log.Info("Connection unregistered", "conn_id", c.ID, "user_id", c.principal)
}

func (h *Hub) joinRoom(c *Conn, roomID string) {
	h.mu.Lock()
	if _, ok := c.rooms[roomID]; ok {
		h.mu.Unlock()
		return
	}
	c.rooms[roomID] = struct{}{}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[uuid.UUID]*Conn)
	}
	h.rooms[roomID][c.ID] = c
	h.mu.Unlock()

	h.syncTopic(roomID)
}

func (h *Hub) leaveRoom(c *Conn, roomID string) {
	h.mu.Lock()
	if _, ok := c.rooms[roomID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(c.rooms, roomID)
	delete(h.rooms[roomID], c.ID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	h.syncTopic(roomID)
}

// syncTopic reconciles the backplane subscription for a room against current
// local membership. Membership is re-read under h.mu inside the topicMu
// critical section, so a stale first-join/last-leave decision can never
// subscribe a dead room or tear down a live one.
func (h *Hub) syncTopic(roomID string) {
	h.topicMu.Lock()
	defer h.topicMu.Unlock()

	h.mu.RLock()
	active := len(h.rooms[roomID]) > 0
	h.mu.RUnlock()

	topic := backplane.RoomTopic(roomID)
	switch {
	case active && !h.topics[roomID]:
		if err := h.bp.Subscribe(topic, func(payload []byte) {
			h.deliverRoom(roomID, payload)
		}); err != nil {
			h.log.Error("Failed to subscribe room topic", "room_id", roomID, "error", err)
			return
		}
		h.topics[roomID] = true
	case !active && h.topics[roomID]:
		if err := h.bp.Unsubscribe(topic); err != nil {
			h.log.Warn("Failed to unsubscribe room topic", "room_id", roomID, "error", err)
		}
		delete(h.topics, roomID)
	}
}

// deliverRoom fans a backplane payload out to the local members of a room.
func (h *Hub) deliverRoom(roomID string, payload []byte) {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(payload)
	}
}

func (h *Hub) deliverAll(payload []byte) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.enqueue(payload)
	}
}

func (h *Hub) allowSend(ctx context.Context, principal string) error {
	if h.rateLimit == nil || h.rlCfg.MessagesPerMinute <= 0 {
		return nil
	}

	key := "ratelimit:ws:send:" + principal
	allowed, err := h.rateLimit.CheckLimit(ctx, key, h.rlCfg.MessagesPerMinute, 60)
	if err != nil {
		// Rate limiting is protective, not load-bearing: fail open.
		h.log.Warn("Rate limit check failed", "user_id", principal, "error", err)
		return nil
	}
	if !allowed {
		return apperrors.ErrRateLimited
	}

	if _, err := h.rateLimit.Increment(ctx, key, 60); err != nil {
		h.log.Warn("Rate limit increment failed", "user_id", principal, "error", err)
	}
	return nil
}

// Close detaches the hub from the backplane and tears down local connections.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.unregister(c)
		if c.ws != nil {
			c.ws.Close()
		}
	}
}
