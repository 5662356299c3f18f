package service

import (
	"context"
	"time"

	"chat_server/internal/config"
	"chat_server/internal/repository"
	"chat_server/pkg/logger"
)

// PresenceService tracks who is online across all server instances. Writes on
// the connection path are fire-and-forget: a presence failure must never
// block a connect, disconnect or send.
type PresenceService interface {
	MarkOnline(ctx context.Context, userID string)
	MarkOffline(ctx context.Context, userID string)
	Heartbeat(ctx context.Context, userID string)
	OnlineUsers(ctx context.Context) ([]string, error)
	LastSeen(ctx context.Context, userID string) (*time.Time, error)
	RunSweeper(ctx context.Context)
}

type presenceService struct {
	presenceRepo repository.PresenceRepository
	cfg          config.PresenceConfig
	log          logger.Logger
	now          func() time.Time
}

func NewPresenceService(presenceRepo repository.PresenceRepository, cfg config.PresenceConfig, log logger.Logger) PresenceService {
	return &presenceService{
		presenceRepo: presenceRepo,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

func (s *presenceService) MarkOnline(ctx context.Context, userID string) {
	if err := s.presenceRepo.AddOnline(ctx, userID); err != nil {
		s.log.Warn("Failed to mark user online", "user_id", userID, "error", err)
	}
	if err := s.presenceRepo.SetLastSeen(ctx, userID, s.now()); err != nil {
		s.log.Warn("Failed to stamp last seen", "user_id", userID, "error", err)
	}
}

func (s *presenceService) MarkOffline(ctx context.Context, userID string) {
	if err := s.presenceRepo.RemoveOnline(ctx, userID); err != nil {
		s.log.Warn("Failed to mark user offline", "user_id", userID, "error", err)
	}
	if err := s.presenceRepo.SetLastSeen(ctx, userID, s.now()); err != nil {
		s.log.Warn("Failed to stamp last seen", "user_id", userID, "error", err)
	}
}

// Heartbeat re-stamps last_seen while a connection is alive so the sweeper
// can tell live entries from leftovers of a crashed instance.
func (s *presenceService) Heartbeat(ctx context.Context, userID string) {
	if err := s.presenceRepo.SetLastSeen(ctx, userID, s.now()); err != nil {
		s.log.Warn("Failed to stamp heartbeat", "user_id", userID, "error", err)
	}
}

func (s *presenceService) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.presenceRepo.OnlineUsers(ctx)
}

func (s *presenceService) LastSeen(ctx context.Context, userID string) (*time.Time, error) {
	return s.presenceRepo.LastSeen(ctx, userID)
}

// RunSweeper blocks until ctx is done, periodically evicting online entries
// whose last_seen went stale. An instance that dies without running its
// disconnect handlers leaves such entries behind; since SREM is idempotent
// the sweep is safe to run on every instance concurrently.
func (s *presenceService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *presenceService) sweep(ctx context.Context) {
	users, err := s.presenceRepo.OnlineUsers(ctx)
	if err != nil {
		s.log.Warn("Presence sweep failed to list online users", "error", err)
		return
	}

	cutoff := s.now().Add(-s.cfg.StaleAfter)
	for _, userID := range users {
		lastSeen, err := s.presenceRepo.LastSeen(ctx, userID)
		if err != nil {
			continue
		}
		if lastSeen == nil || lastSeen.Before(cutoff) {
			if err := s.presenceRepo.RemoveOnline(ctx, userID); err == nil {
				s.log.Info("Evicted stale presence entry", "user_id", userID)
			}
		}
	}
}
