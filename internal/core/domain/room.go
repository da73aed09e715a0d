package domain

import "time"

// Room is a named group of peers sharing one media session. Rooms are created
// implicitly on the first join to an unknown identifier and deleted as soon
// as the last member leaves; an empty room never persists. Membership is
// tracked on the peers themselves (Peer.RoomID), the room record carries only
// metadata.
type Room struct {
	ID        RoomID
	CreatedAt time.Time
}

func NewRoom(id RoomID) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

// Roster converts a member list into the wire snapshot sent to a joining
// client, excluding the joiner itself.
func Roster(members []*Peer, exclude PeerID) []PeerInfo {
	roster := make([]PeerInfo, 0, len(members))
	for _, member := range members {
		if member.ID == exclude {
			continue
		}
		roster = append(roster, member.Info())
	}
	return roster
}
