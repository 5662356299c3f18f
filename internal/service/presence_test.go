package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_server/internal/config"
	"chat_server/pkg/logger"
)

type fakePresenceRepo struct {
	online   map[string]bool
	lastSeen map[string]time.Time
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{
		online:   make(map[string]bool),
		lastSeen: make(map[string]time.Time),
	}
}

func (f *fakePresenceRepo) AddOnline(_ context.Context, userID string) error {
	f.online[userID] = true
	return nil
}

func (f *fakePresenceRepo) RemoveOnline(_ context.Context, userID string) error {
	delete(f.online, userID)
	return nil
}

func (f *fakePresenceRepo) OnlineUsers(_ context.Context) ([]string, error) {
	users := make([]string, 0, len(f.online))
	for userID := range f.online {
		users = append(users, userID)
	}
	return users, nil
}

func (f *fakePresenceRepo) SetLastSeen(_ context.Context, userID string, ts time.Time) error {
	f.lastSeen[userID] = ts
	return nil
}

func (f *fakePresenceRepo) LastSeen(_ context.Context, userID string) (*time.Time, error) {
	ts, ok := f.lastSeen[userID]
	if !ok {
		return nil, nil
	}
	return &ts, nil
}

func newPresenceFixture() (*fakePresenceRepo, *presenceService) {
	repo := newFakePresenceRepo()
	cfg := config.PresenceConfig{SweepInterval: time.Second, StaleAfter: 90 * time.Second}
	svc := NewPresenceService(repo, cfg, logger.New("error")).(*presenceService)
	return repo, svc
}

func TestPresenceOnlineWindow(t *testing.T) {
	repo, svc := newPresenceFixture()
	ctx := context.Background()

	before, err := svc.LastSeen(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, before, "unknown principal has no last seen")

	svc.MarkOnline(ctx, "alice")

	online, err := svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Contains(t, online, "alice")

	connectedAt, err := svc.LastSeen(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, connectedAt, "last seen stamped on connect")

	svc.MarkOffline(ctx, "alice")

	online, err = svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, online, "alice")

	disconnectedAt, err := svc.LastSeen(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, disconnectedAt, "last seen stamped on disconnect")
	assert.False(t, disconnectedAt.Before(*connectedAt))
	_ = repo
}

func TestSweepEvictsStaleEntries(t *testing.T) {
	repo, svc := newPresenceFixture()
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }

	// crashed instance left "ghost" online without a fresh heartbeat
	repo.online["ghost"] = true
	repo.lastSeen["ghost"] = now.Add(-5 * time.Minute)

	// live connection heartbeats recently
	repo.online["alice"] = true
	repo.lastSeen["alice"] = now.Add(-10 * time.Second)

	// entry without any last_seen record is also stale
	repo.online["orphan"] = true

	svc.sweep(ctx)

	assert.NotContains(t, repo.online, "ghost")
	assert.NotContains(t, repo.online, "orphan")
	assert.Contains(t, repo.online, "alice")
}

func TestHeartbeatKeepsEntryAlive(t *testing.T) {
	repo, svc := newPresenceFixture()
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now.Add(-2 * time.Minute) }
	svc.MarkOnline(ctx, "alice")

	svc.now = func() time.Time { return now }
	svc.Heartbeat(ctx, "alice")

	svc.sweep(ctx)
	assert.Contains(t, repo.online, "alice", "heartbeat refreshes the staleness clock")
}
