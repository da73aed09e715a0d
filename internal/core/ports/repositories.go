package ports

import (
	"context"

	"roomcast/internal/core/domain"
)

type PeerRepository interface {
	Add(ctx context.Context, peer *domain.Peer) error
	GetByID(ctx context.Context, id domain.PeerID) (*domain.Peer, error)
	Update(ctx context.Context, peer *domain.Peer) error
	Remove(ctx context.Context, id domain.PeerID) error
	FindByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.Peer, error)
	Count(ctx context.Context) (int, error)
}

type RoomRepository interface {
	// GetOrCreate returns the room with the given identifier, creating it if
	// absent. The second return reports whether a new room was created.
	GetOrCreate(ctx context.Context, id domain.RoomID) (*domain.Room, bool, error)
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
	Count(ctx context.Context) (int, error)
}
