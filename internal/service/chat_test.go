package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_server/internal/backplane"
	"chat_server/internal/domain"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

type fakeMessageRepo struct {
	messages   map[string]*domain.Message
	tombstones map[string]map[string]bool // message id -> viewer ids
	createErr  error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:   make(map[string]*domain.Message),
		tombstones: make(map[string]map[string]bool),
	}
}

func (f *fakeMessageRepo) Create(_ context.Context, message *domain.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	message.CreatedAt = time.Now()
	f.messages[message.ID.String()] = message
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, messageID string) (*domain.Message, error) {
	message, ok := f.messages[messageID]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (f *fakeMessageRepo) HardDelete(_ context.Context, messageID string) error {
	if _, ok := f.messages[messageID]; !ok {
		return apperrors.ErrMessageNotFound
	}
	delete(f.messages, messageID)
	return nil
}

func (f *fakeMessageRepo) SoftDeleteForViewer(_ context.Context, messageID, viewerID string) error {
	if f.tombstones[messageID] == nil {
		f.tombstones[messageID] = make(map[string]bool)
	}
	f.tombstones[messageID][viewerID] = true
	return nil
}

func (f *fakeMessageRepo) GroupPage(_ context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) PeerPage(_ context.Context, roomID, viewerID, cursor string, limit int) ([]*domain.Message, error) {
	return nil, nil
}

type fakeSocialGraph struct {
	blocks map[[2]string]bool
}

func (f *fakeSocialGraph) IsBlocked(_ context.Context, blockerID, blockedID string) (bool, error) {
	return f.blocks[[2]string{blockerID, blockedID}], nil
}

type publishedEvent struct {
	topic string
	event domain.ServerEvent
}

type recordingBackplane struct {
	published []publishedEvent
}

func (r *recordingBackplane) Publish(_ context.Context, topic string, payload []byte) error {
	var event domain.ServerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	r.published = append(r.published, publishedEvent{topic: topic, event: event})
	return nil
}

func (r *recordingBackplane) Subscribe(string, backplane.Handler) error { return nil }
func (r *recordingBackplane) Unsubscribe(string) error                 { return nil }
func (r *recordingBackplane) Close() error                             { return nil }

func newChatFixture() (*fakeMessageRepo, *fakeSocialGraph, *recordingBackplane, ChatService) {
	repo := newFakeMessageRepo()
	graph := &fakeSocialGraph{blocks: make(map[[2]string]bool)}
	bp := &recordingBackplane{}
	svc := NewChatService(repo, graph, bp, logger.New("error"))
	return repo, graph, bp, svc
}

func TestSendRejectsEmptyContent(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	_, err := svc.Send(context.Background(), "alice", "   ", "bob", "")

	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, repo.messages)
	assert.Empty(t, bp.published)
}

func TestSendRejectsAmbiguousTarget(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	_, err := svc.Send(context.Background(), "alice", "hi", "bob", "g1")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Send(context.Background(), "alice", "hi", "", "")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Empty(t, repo.messages, "no orphan messages on validation failure")
	assert.Empty(t, bp.published)
}

func TestSendToGroupPersistsAndBroadcasts(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	message, err := svc.Send(context.Background(), "alice", "hello", "", "g1")
	require.NoError(t, err)

	require.NotNil(t, message.GroupID)
	assert.Equal(t, "g1", *message.GroupID)
	assert.Nil(t, message.PeerChatID)
	assert.Equal(t, "alice", message.SenderID)
	assert.False(t, message.CreatedAt.IsZero())
	assert.Contains(t, repo.messages, message.ID.String())

	require.Len(t, bp.published, 1)
	assert.Equal(t, backplane.RoomTopic("g1"), bp.published[0].topic)
	assert.Equal(t, domain.EventMessageReceived, bp.published[0].event.Event)
}

func TestSendToPeerUsesCanonicalRoom(t *testing.T) {
	_, _, bp, svc := newChatFixture()

	message, err := svc.Send(context.Background(), "zoe", "hi", "adam", "")
	require.NoError(t, err)

	require.NotNil(t, message.PeerChatID)
	assert.Equal(t, domain.PeerConversationID("adam", "zoe"), *message.PeerChatID)
	require.Len(t, bp.published, 1)
	assert.Equal(t, backplane.RoomTopic(*message.PeerChatID), bp.published[0].topic)
}

func TestSendBlockedByRecipient(t *testing.T) {
	repo, graph, bp, svc := newChatFixture()
	graph.blocks[[2]string{"bob", "alice"}] = true // bob blocked alice

	_, err := svc.Send(context.Background(), "alice", "hi", "bob", "")

	require.ErrorIs(t, err, apperrors.ErrBlocked)
	assert.Empty(t, repo.messages, "blocked send must not persist")
	assert.Empty(t, bp.published, "blocked send must not broadcast")
}

func TestSendBlockedBySender(t *testing.T) {
	repo, graph, bp, svc := newChatFixture()
	graph.blocks[[2]string{"alice", "bob"}] = true // alice blocked bob herself

	_, err := svc.Send(context.Background(), "alice", "hi", "bob", "")

	require.ErrorIs(t, err, apperrors.ErrBlocked)
	assert.Empty(t, repo.messages)
	assert.Empty(t, bp.published)
}

func TestBlockDoesNotAffectGroupSends(t *testing.T) {
	_, graph, _, svc := newChatFixture()
	graph.blocks[[2]string{"bob", "alice"}] = true

	_, err := svc.Send(context.Background(), "alice", "hi", "", "g1")
	require.NoError(t, err)
}

func TestDeleteForEveryoneBySender(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	message, err := svc.Send(context.Background(), "alice", "bye", "", "g1")
	require.NoError(t, err)
	bp.published = nil

	err = svc.DeleteForEveryone(context.Background(), message.ID.String(), "alice")
	require.NoError(t, err)

	assert.NotContains(t, repo.messages, message.ID.String())
	require.Len(t, bp.published, 1)
	assert.Equal(t, backplane.GlobalTopic, bp.published[0].topic, "retraction goes out globally")
	assert.Equal(t, domain.EventMessageDeleted, bp.published[0].event.Event)
}

func TestDeleteForEveryoneByNonSenderForbidden(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	message, err := svc.Send(context.Background(), "alice", "bye", "", "g1")
	require.NoError(t, err)
	bp.published = nil

	err = svc.DeleteForEveryone(context.Background(), message.ID.String(), "mallory")

	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Contains(t, repo.messages, message.ID.String(), "message stays queryable")
	assert.Empty(t, bp.published)
}

func TestDeleteForEveryoneNotFound(t *testing.T) {
	_, _, _, svc := newChatFixture()

	err := svc.DeleteForEveryone(context.Background(), uuid.NewString(), "alice")
	require.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

func TestDeleteForMeIsIdempotent(t *testing.T) {
	repo, _, bp, svc := newChatFixture()

	message, err := svc.Send(context.Background(), "alice", "hm", "", "g1")
	require.NoError(t, err)
	bp.published = nil

	require.NoError(t, svc.DeleteForMe(context.Background(), message.ID.String(), "bob"))
	require.NoError(t, svc.DeleteForMe(context.Background(), message.ID.String(), "bob"), "repeat delete is a no-op")

	assert.True(t, repo.tombstones[message.ID.String()]["bob"])
	assert.Contains(t, repo.messages, message.ID.String(), "message itself is untouched")
	assert.Empty(t, bp.published, "delete-for-me is never broadcast")
}

func TestDeleteForMeNotFound(t *testing.T) {
	_, _, _, svc := newChatFixture()

	err := svc.DeleteForMe(context.Background(), uuid.NewString(), "bob")
	require.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}
