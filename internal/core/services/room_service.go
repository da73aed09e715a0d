package services

import (
	"context"
	"errors"
	"fmt"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"go.uber.org/zap"
)

type roomService struct {
	rooms  ports.RoomRepository
	peers  ports.PeerRepository
	logger *zap.SugaredLogger
}

func NewRoomService(rooms ports.RoomRepository, peers ports.PeerRepository, logger *zap.SugaredLogger) ports.RoomService {
	return &roomService{
		rooms:  rooms,
		peers:  peers,
		logger: logger,
	}
}

// Join registers a peer in a room, creating the room if this is the first
// join to its identifier, and returns the roster snapshot of all other
// members. Registration is tentative until the caller has a token in hand;
// on token failure the caller rolls back with Leave.
func (s *roomService) Join(ctx context.Context, peerID domain.PeerID, roomID domain.RoomID, name, identity string) (*ports.JoinResult, error) {
	if _, err := s.peers.GetByID(ctx, peerID); err == nil {
		return nil, domain.ErrAlreadyJoined
	}

	room, created, err := s.rooms.GetOrCreate(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get or create room %s: %w", roomID, err)
	}

	peer := domain.NewPeer(peerID, name, identity, roomID)

	// Last-write-wins on identity: a second connection claiming the same
	// room+identity displaces the first.
	evicted, err := s.evictSameIdentity(ctx, peer)
	if err != nil {
		return nil, err
	}

	members, err := s.peers.FindByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members of room %s: %w", roomID, err)
	}

	if err := s.peers.Add(ctx, peer); err != nil {
		return nil, fmt.Errorf("register peer %s: %w", peerID, err)
	}

	s.logger.Infow("peer joined room",
		"peer_id", peerID,
		"room_id", room.ID,
		"name", name,
		"room_created", created,
	)

	return &ports.JoinResult{
		Peer:          peer,
		ExistingPeers: domain.Roster(members, peerID),
		RoomCreated:   created,
		Evicted:       evicted,
	}, nil
}

func (s *roomService) evictSameIdentity(ctx context.Context, joining *domain.Peer) (*domain.Peer, error) {
	members, err := s.peers.FindByRoom(ctx, joining.RoomID)
	if err != nil {
		return nil, fmt.Errorf("list members of room %s: %w", joining.RoomID, err)
	}
	for _, member := range members {
		if member.Identity != joining.Identity {
			continue
		}
		if err := s.peers.Remove(ctx, member.ID); err != nil {
			return nil, fmt.Errorf("evict peer %s: %w", member.ID, err)
		}
		s.logger.Infow("evicted previous connection for identity",
			"room_id", joining.RoomID,
			"identity", joining.Identity,
			"evicted_peer_id", member.ID,
		)
		return member, nil
	}
	return nil, nil
}

// Leave removes the peer and deletes its room when the peer was the last
// member. Unknown peers are reported as not found, never as a failure that
// mutated anything.
func (s *roomService) Leave(ctx context.Context, peerID domain.PeerID) (*ports.LeaveResult, error) {
	peer, err := s.peers.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	if err := s.peers.Remove(ctx, peerID); err != nil {
		return nil, fmt.Errorf("remove peer %s: %w", peerID, err)
	}

	remaining, err := s.peers.FindByRoom(ctx, peer.RoomID)
	if err != nil {
		return nil, fmt.Errorf("list members of room %s: %w", peer.RoomID, err)
	}

	deleted := false
	if len(remaining) == 0 {
		if err := s.rooms.Delete(ctx, peer.RoomID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			return nil, fmt.Errorf("delete room %s: %w", peer.RoomID, err)
		}
		deleted = true
	}

	s.logger.Infow("peer left room",
		"peer_id", peerID,
		"room_id", peer.RoomID,
		"room_deleted", deleted,
	)

	return &ports.LeaveResult{
		Peer:        peer,
		RoomID:      peer.RoomID,
		RoomDeleted: deleted,
	}, nil
}

func (s *roomService) SetMuted(ctx context.Context, peerID domain.PeerID, muted bool) (*ports.MuteResult, error) {
	peer, err := s.peers.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	peer.SetMuted(muted)
	if err := s.peers.Update(ctx, peer); err != nil {
		return nil, fmt.Errorf("update peer %s: %w", peerID, err)
	}

	return &ports.MuteResult{Peer: peer, Muted: muted}, nil
}

func (s *roomService) SetSpeaking(ctx context.Context, peerID domain.PeerID, speaking bool) (*ports.SpeakingResult, error) {
	peer, err := s.peers.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	if !peer.SetSpeaking(speaking) {
		// Muted peers cannot speak; the event is swallowed.
		return &ports.SpeakingResult{Peer: peer, Broadcast: false}, nil
	}
	if err := s.peers.Update(ctx, peer); err != nil {
		return nil, fmt.Errorf("update peer %s: %w", peerID, err)
	}

	return &ports.SpeakingResult{Peer: peer, Broadcast: true, Speaking: speaking}, nil
}

func (s *roomService) SetAudioEnabled(ctx context.Context, peerID domain.PeerID, enabled bool) (*ports.AudioResult, error) {
	peer, err := s.peers.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}

	peer.SetAudioEnabled(enabled)
	if err := s.peers.Update(ctx, peer); err != nil {
		return nil, fmt.Errorf("update peer %s: %w", peerID, err)
	}

	return &ports.AudioResult{Peer: peer, Enabled: enabled}, nil
}

func (s *roomService) GetPeer(ctx context.Context, peerID domain.PeerID) (*domain.Peer, error) {
	return s.peers.GetByID(ctx, peerID)
}

func (s *roomService) GetRoomMembers(ctx context.Context, roomID domain.RoomID) ([]*domain.Peer, error) {
	return s.peers.FindByRoom(ctx, roomID)
}

func (s *roomService) Stats(ctx context.Context) (int, int, error) {
	rooms, err := s.rooms.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	peers, err := s.peers.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return rooms, peers, nil
}
