package domain

import "time"

type PeerID string
type RoomID string

// Peer is a single connected participant's signaling-visible state.
// Exactly one Peer exists per signaling connection; its flags are mutated
// only by messages from that same connection.
type Peer struct {
	ID   PeerID
	Name string
	// Identity is the media-token identity. It defaults to the connection id
	// and only differs when the client supplied its own.
	Identity     string
	RoomID       RoomID
	Muted        bool
	Speaking     bool
	AudioEnabled bool
	JoinedAt     time.Time
}

func NewPeer(id PeerID, name, identity string, roomID RoomID) *Peer {
	if identity == "" {
		identity = string(id)
	}
	return &Peer{
		ID:           id,
		Name:         name,
		Identity:     identity,
		RoomID:       roomID,
		AudioEnabled: true,
		JoinedAt:     time.Now(),
	}
}

// SetMuted updates the mute flag. Muting forces the speaking flag to false;
// a peer can never be speaking while muted.
func (p *Peer) SetMuted(muted bool) {
	p.Muted = muted
	if muted {
		p.Speaking = false
	}
}

// SetSpeaking updates the voice-activity flag. It reports false (and changes
// nothing) while the peer is muted.
func (p *Peer) SetSpeaking(speaking bool) bool {
	if p.Muted {
		return false
	}
	p.Speaking = speaking
	return true
}

func (p *Peer) SetAudioEnabled(enabled bool) {
	p.AudioEnabled = enabled
}

// Info returns the roster entry shape sent to clients.
func (p *Peer) Info() PeerInfo {
	return PeerInfo{
		ID:             p.ID,
		Name:           p.Name,
		IsMuted:        p.Muted,
		IsAudioEnabled: p.AudioEnabled,
	}
}

// PeerInfo is the wire representation of a peer in roster snapshots and
// peerJoined broadcasts.
type PeerInfo struct {
	ID             PeerID `json:"id"`
	Name           string `json:"name"`
	IsMuted        bool   `json:"isMuted"`
	IsAudioEnabled bool   `json:"isAudioEnabled"`
}
