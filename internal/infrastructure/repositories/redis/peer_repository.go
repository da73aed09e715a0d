package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisPeerRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisPeerRepository(client *redis.Client) ports.PeerRepository {
	return &RedisPeerRepository{
		client: client,
		prefix: "roomcast:peer:",
	}
}

func (r *RedisPeerRepository) peerKey(id domain.PeerID) string {
	return r.prefix + string(id)
}

func (r *RedisPeerRepository) roomPeersKey(roomID domain.RoomID) string {
	return fmt.Sprintf("roomcast:room:%s:peers", roomID)
}

func (r *RedisPeerRepository) Add(ctx context.Context, peer *domain.Peer) error {
	data, err := json.Marshal(peer)
	if err != nil {
		return fmt.Errorf("failed to marshal peer: %w", err)
	}

	key := r.peerKey(peer.ID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set peer in Redis: %w", err)
	}

	roomKey := r.roomPeersKey(peer.RoomID)
	if err := r.client.SAdd(ctx, roomKey, string(peer.ID)).Err(); err != nil {
		return fmt.Errorf("failed to add peer to room set: %w", err)
	}

	return nil
}

func (r *RedisPeerRepository) GetByID(ctx context.Context, id domain.PeerID) (*domain.Peer, error) {
	key := r.peerKey(id)
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, domain.ErrPeerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get peer from Redis: %w", err)
	}

	var peer domain.Peer
	if err := json.Unmarshal([]byte(data), &peer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal peer: %w", err)
	}

	return &peer, nil
}

func (r *RedisPeerRepository) Update(ctx context.Context, peer *domain.Peer) error {
	if _, err := r.GetByID(ctx, peer.ID); err != nil {
		return err
	}

	data, err := json.Marshal(peer)
	if err != nil {
		return fmt.Errorf("failed to marshal peer: %w", err)
	}

	if err := r.client.Set(ctx, r.peerKey(peer.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update peer in Redis: %w", err)
	}

	return nil
}

func (r *RedisPeerRepository) Remove(ctx context.Context, id domain.PeerID) error {
	peer, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	roomKey := r.roomPeersKey(peer.RoomID)
	if err := r.client.SRem(ctx, roomKey, string(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove peer from room set: %w", err)
	}

	if err := r.client.Del(ctx, r.peerKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete peer from Redis: %w", err)
	}

	return nil
}

func (r *RedisPeerRepository) FindByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.Peer, error) {
	roomKey := r.roomPeersKey(roomID)
	peerIDs, err := r.client.SMembers(ctx, roomKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room peers from Redis: %w", err)
	}

	var members []*domain.Peer
	for _, peerID := range peerIDs {
		peer, err := r.GetByID(ctx, domain.PeerID(peerID))
		if err != nil {
			// Skip peers that no longer exist
			continue
		}
		members = append(members, peer)
	}

	return members, nil
}

func (r *RedisPeerRepository) Count(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count peers in Redis: %w", err)
	}
	return len(keys), nil
}
