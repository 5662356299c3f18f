package backplane

import (
	"context"
	"sync"
)

// MemoryBus is an in-process broker. It backs single-node deployments and
// lets the gateway's fan-out logic run in tests without a real broker. Each
// server instance takes its own Client, matching how instances share one
// redis broker.
type MemoryBus struct {
	mu      sync.RWMutex
	clients map[*memoryClient]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{clients: make(map[*memoryClient]struct{})}
}

// Client returns a Backplane connected to the bus.
func (bus *MemoryBus) Client() Backplane {
	client := &memoryClient{bus: bus, subs: make(map[string]Handler)}
	bus.mu.Lock()
	bus.clients[client] = struct{}{}
	bus.mu.Unlock()
	return client
}

func (bus *MemoryBus) publish(topic string, payload []byte) {
	bus.mu.RLock()
	clients := make([]*memoryClient, 0, len(bus.clients))
	for client := range bus.clients {
		clients = append(clients, client)
	}
	bus.mu.RUnlock()

	for _, client := range clients {
		client.deliver(topic, payload)
	}
}

type memoryClient struct {
	bus *MemoryBus

	mu   sync.RWMutex
	subs map[string]Handler
}

func (c *memoryClient) Publish(_ context.Context, topic string, payload []byte) error {
	c.bus.publish(topic, payload)
	return nil
}

func (c *memoryClient) Subscribe(topic string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = handler
	return nil
}

func (c *memoryClient) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, topic)
	return nil
}

func (c *memoryClient) Close() error {
	c.bus.mu.Lock()
	delete(c.bus.clients, c)
	c.bus.mu.Unlock()

	c.mu.Lock()
	c.subs = make(map[string]Handler)
	c.mu.Unlock()
	return nil
}

func (c *memoryClient) deliver(topic string, payload []byte) {
	c.mu.RLock()
	handler, ok := c.subs[topic]
	c.mu.RUnlock()

	if ok {
		handler(payload)
	}
}
