package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chat_server/internal/backplane"
	"chat_server/internal/domain"
	"chat_server/internal/repository"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

type ChatService interface {
	// Send validates the payload, resolves the target room, applies the block
	// policy for peer messages, persists and broadcasts. Exactly one of
	// to/groupID must be set.
	Send(ctx context.Context, senderID, content, to, groupID string) (*domain.Message, error)
	DeleteForEveryone(ctx context.Context, messageID, requesterID string) error
	DeleteForMe(ctx context.Context, messageID, viewerID string) error
}

type chatService struct {
	messageRepo repository.MessageRepository
	socialGraph repository.SocialGraphRepository
	bp          backplane.Backplane
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, socialGraph repository.SocialGraphRepository, bp backplane.Backplane, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		socialGraph: socialGraph,
		bp:          bp,
		log:         log,
	}
}

func (s *chatService) Send(ctx context.Context, senderID, content, to, groupID string) (*domain.Message, error) {
	// Validation happens before any store write: no orphan messages.
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", apperrors.ErrValidation)
	}
	if (to == "") == (groupID == "") {
		return nil, fmt.Errorf("%w: exactly one of \"to\" or \"groupId\" must be provided", apperrors.ErrValidation)
	}

	var room domain.RoomRef
	message := &domain.Message{
		ID:       uuid.New(),
		Content:  content,
		SenderID: senderID,
	}

	if groupID != "" {
		room = domain.GroupRoom(groupID)
		message.GroupID = &room.ID
	} else {
		// Blocks are checked in both directions before persisting.
		if blocked, err := s.isBlockedEitherWay(ctx, senderID, to); err != nil {
			return nil, err
		} else if blocked {
			return nil, apperrors.ErrBlocked
		}
		room = domain.PeerRoom(senderID, to)
		message.PeerChatID = &room.ID
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	s.publish(ctx, backplane.RoomTopic(room.ID), domain.EventMessageReceived, message)

	return message, nil
}

func (s *chatService) DeleteForEveryone(ctx context.Context, messageID, requesterID string) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return apperrors.ErrForbidden
	}

	if err := s.messageRepo.HardDelete(ctx, messageID); err != nil {
		return err
	}

	// Retractions go out globally so clients can drop the message even when
	// they are not subscribed to its room.
	s.publish(ctx, backplane.GlobalTopic, domain.EventMessageDeleted, domain.MessageDeletedEvent{MessageID: messageID})

	return nil
}

func (s *chatService) DeleteForMe(ctx context.Context, messageID, viewerID string) error {
	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		return err
	}
	return s.messageRepo.SoftDeleteForViewer(ctx, messageID, viewerID)
}

func (s *chatService) isBlockedEitherWay(ctx context.Context, senderID, recipientID string) (bool, error) {
	blocked, err := s.socialGraph.IsBlocked(ctx, recipientID, senderID)
	if err != nil {
		return false, err
	}
	if blocked {
		return true, nil
	}
	return s.socialGraph.IsBlocked(ctx, senderID, recipientID)
}

// publish is a non-critical side effect: a failed broadcast never fails the
// operation that already persisted.
func (s *chatService) publish(ctx context.Context, topic, event string, data any) {
	payload, err := json.Marshal(domain.ServerEvent{Event: event, Data: data})
	if err != nil {
		s.log.Error("Failed to marshal event", "event", event, "error", err)
		return
	}
	if err := s.bp.Publish(ctx, topic, payload); err != nil {
		s.log.Error("Failed to publish event", "event", event, "topic", topic, "error", err)
	}
}
