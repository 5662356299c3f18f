package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPeerConversationIDIsSymmetric(t *testing.T) {
	assert.Equal(t, PeerConversationID("alice", "bob"), PeerConversationID("bob", "alice"),
		"both parties must resolve the same conversation id")
	assert.Equal(t, "peer:alice:bob", PeerConversationID("bob", "alice"))
}

func TestPeerRoomAndGroupRoom(t *testing.T) {
	peer := PeerRoom("bob", "alice")
	assert.Equal(t, RoomKindPeer, peer.Kind)
	assert.Equal(t, "peer:alice:bob", peer.ID)

	group := GroupRoom("g1")
	assert.Equal(t, RoomKindGroup, group.Kind)
	assert.Equal(t, "g1", group.ID)
}

func TestMessageRoomID(t *testing.T) {
	groupID := "g1"
	peerID := PeerConversationID("a", "b")

	groupMessage := &Message{ID: uuid.New(), GroupID: &groupID}
	assert.Equal(t, "g1", groupMessage.RoomID())

	peerMessage := &Message{ID: uuid.New(), PeerChatID: &peerID}
	assert.Equal(t, peerID, peerMessage.RoomID())
}
