package ports

import (
	"context"

	"roomcast/internal/core/domain"
)

// JoinResult is the outcome of registering a peer in a room. ExistingPeers is
// the roster snapshot captured atomically with the insertion: a concurrently
// joining peer is either fully included or fully excluded.
type JoinResult struct {
	Peer          *domain.Peer
	ExistingPeers []domain.PeerInfo
	RoomCreated   bool
	// Evicted is the previous connection holding the same room+identity, if
	// the join displaced one (last-write-wins).
	Evicted *domain.Peer
}

type LeaveResult struct {
	Peer        *domain.Peer
	RoomID      domain.RoomID
	RoomDeleted bool
}

type MuteResult struct {
	Peer  *domain.Peer
	Muted bool
}

type SpeakingResult struct {
	Peer *domain.Peer
	// Broadcast is false when the event was ignored because the peer is
	// muted; nothing changed and nothing must be relayed.
	Broadcast bool
	Speaking  bool
}

type AudioResult struct {
	Peer    *domain.Peer
	Enabled bool
}

// RoomService owns the peer/room registries and implements the signaling
// state transitions. All methods are driven from a single dispatch goroutine.
type RoomService interface {
	Join(ctx context.Context, peerID domain.PeerID, roomID domain.RoomID, name, identity string) (*JoinResult, error)
	Leave(ctx context.Context, peerID domain.PeerID) (*LeaveResult, error)
	SetMuted(ctx context.Context, peerID domain.PeerID, muted bool) (*MuteResult, error)
	SetSpeaking(ctx context.Context, peerID domain.PeerID, speaking bool) (*SpeakingResult, error)
	SetAudioEnabled(ctx context.Context, peerID domain.PeerID, enabled bool) (*AudioResult, error)
	GetPeer(ctx context.Context, peerID domain.PeerID) (*domain.Peer, error)
	GetRoomMembers(ctx context.Context, roomID domain.RoomID) ([]*domain.Peer, error)
	Stats(ctx context.Context) (rooms int, peers int, err error)
}

// Credential is the opaque capability handed to a client: a signed media
// token plus the media-server URL it is valid for.
type Credential struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// TokenService mints short-lived media-server access tokens scoped to a
// single (room, identity) pair.
type TokenService interface {
	MintJoinToken(ctx context.Context, roomID domain.RoomID, name, identity string) (*Credential, error)
}
