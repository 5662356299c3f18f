package backplane

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"chat_server/pkg/logger"
)

type redisBackplane struct {
	rdb *redis.Client
	log logger.Logger

	mu     sync.Mutex
	subs   map[string]*redis.PubSub
	closed bool
}

func NewRedis(rdb *redis.Client, log logger.Logger) Backplane {
	return &redisBackplane{
		rdb:  rdb,
		log:  log,
		subs: make(map[string]*redis.PubSub),
	}
}

func (b *redisBackplane) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, topic, payload).Err()
}

func (b *redisBackplane) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	if _, ok := b.subs[topic]; ok {
		return nil
	}

	pubsub := b.rdb.Subscribe(context.Background(), topic)
	b.subs[topic] = pubsub

	go func() {
		for msg := range pubsub.Channel() {
			handler([]byte(msg.Payload))
		}
	}()

	return nil
}

func (b *redisBackplane) Unsubscribe(topic string) error {
	b.mu.Lock()
	pubsub, ok := b.subs[topic]
	delete(b.subs, topic)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return pubsub.Close()
}

func (b *redisBackplane) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for topic, pubsub := range b.subs {
		if err := pubsub.Close(); err != nil {
			b.log.Warn("Failed to close subscription", "topic", topic, "error", err)
		}
		delete(b.subs, topic)
	}
	return nil
}
