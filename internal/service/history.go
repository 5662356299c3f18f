package service

import (
	"context"
	"sort"

	"chat_server/internal/domain"
	"chat_server/internal/repository"
	"chat_server/pkg/logger"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryService serves the unified conversation feed. A room id is looked up
// in both the group and the peer partition; the two pages are merged by
// creation time. The lookup is never a single ambiguous query keyed by a bare
// string.
type HistoryService interface {
	GetHistory(ctx context.Context, roomID, viewerID, cursor string, limit int) (*domain.HistoryPage, error)
}

type historyService struct {
	messageRepo repository.MessageRepository
	log         logger.Logger
}

func NewHistoryService(messageRepo repository.MessageRepository, log logger.Logger) HistoryService {
	return &historyService{messageRepo: messageRepo, log: log}
}

func (s *historyService) GetHistory(ctx context.Context, roomID, viewerID, cursor string, limit int) (*domain.HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	groupMessages, err := s.messageRepo.GroupPage(ctx, roomID, viewerID, cursor, limit)
	if err != nil {
		return nil, err
	}
	peerMessages, err := s.messageRepo.PeerPage(ctx, roomID, viewerID, cursor, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]*domain.Message, 0, len(groupMessages)+len(peerMessages))
	messages = append(messages, groupMessages...)
	messages = append(messages, peerMessages...)

	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].ID.String() > messages[j].ID.String()
	})

	if len(messages) > limit {
		messages = messages[:limit]
	}

	page := &domain.HistoryPage{
		Messages: messages,
		// Page length as a fullness signal is inherited imprecision: a page
		// can come up short after tombstone filtering with older messages
		// still remaining.
		HasMore: len(messages) == limit,
	}
	if len(messages) > 0 {
		next := messages[len(messages)-1].ID.String()
		page.NextCursor = &next
	}

	return page, nil
}
