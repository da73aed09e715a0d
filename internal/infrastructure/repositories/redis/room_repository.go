package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisRoomRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomRepository(client *redis.Client) ports.RoomRepository {
	return &RedisRoomRepository{
		client: client,
		prefix: "roomcast:roommeta:",
	}
}

func (r *RedisRoomRepository) roomKey(id domain.RoomID) string {
	return r.prefix + string(id)
}

func (r *RedisRoomRepository) GetOrCreate(ctx context.Context, id domain.RoomID) (*domain.Room, bool, error) {
	room, err := r.GetByID(ctx, id)
	if err == nil {
		return room, false, nil
	}
	if err != domain.ErrRoomNotFound {
		return nil, false, err
	}

	room = domain.NewRoom(id)
	data, err := json.Marshal(room)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal room: %w", err)
	}

	// SetNX keeps the first writer's record if two instances race on creation.
	created, err := r.client.SetNX(ctx, r.roomKey(id), data, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create room in Redis: %w", err)
	}
	if !created {
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return room, true, nil
}

func (r *RedisRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := r.client.Get(ctx, r.roomKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from Redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (r *RedisRoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	deleted, err := r.client.Del(ctx, r.roomKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room from Redis: %w", err)
	}
	if deleted == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RedisRoomRepository) Count(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rooms in Redis: %w", err)
	}
	return len(keys), nil
}
