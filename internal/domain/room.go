package domain

import "strings"

type RoomKind string

const (
	RoomKindGroup RoomKind = "group"
	RoomKindPeer  RoomKind = "peer"
)

// RoomRef is the resolved target of a message: a group conversation or a
// two-party peer conversation. Resolved once at send time.
type RoomRef struct {
	Kind RoomKind
	ID   string
}

func GroupRoom(groupID string) RoomRef {
	return RoomRef{Kind: RoomKindGroup, ID: groupID}
}

func PeerRoom(a, b string) RoomRef {
	return RoomRef{Kind: RoomKindPeer, ID: PeerConversationID(a, b)}
}

// PeerConversationID builds the canonical id of a 1:1 conversation. The two
// principal ids are ordered lexicographically so both parties compute the
// same room id.
func PeerConversationID(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return "peer:" + a + ":" + b
}
