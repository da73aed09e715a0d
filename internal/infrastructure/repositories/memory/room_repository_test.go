package memory

import (
	"context"
	"testing"

	"roomcast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRepository_GetOrCreate(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	room, created, err := repo.GetOrCreate(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoomID("demo"), room.ID)

	again, created, err := repo.GetOrCreate(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, room, again)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRoomRepository_GetByID(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, _, err = repo.GetOrCreate(ctx, "demo")
	require.NoError(t, err)

	room, err := repo.GetByID(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("demo"), room.ID)
}

func TestRoomRepository_Delete(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, "demo")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "demo"))

	_, err = repo.GetByID(ctx, "demo")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "demo"), domain.ErrRoomNotFound)
}
