package services

import (
	"context"
	"testing"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRoomService() ports.RoomService {
	return NewRoomService(
		memory.NewMemoryRoomRepository(),
		memory.NewMemoryPeerRepository(),
		zap.NewNop().Sugar(),
	)
}

func TestJoin_RosterExcludesRequester(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	resA, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)
	assert.True(t, resA.RoomCreated)
	assert.Empty(t, resA.ExistingPeers)

	resB, err := svc.Join(ctx, "conn-b", "demo", "Bob", "")
	require.NoError(t, err)
	assert.False(t, resB.RoomCreated)
	require.Len(t, resB.ExistingPeers, 1)
	assert.Equal(t, domain.PeerID("conn-a"), resB.ExistingPeers[0].ID)
	assert.Equal(t, "Alice", resB.ExistingPeers[0].Name)
	assert.False(t, resB.ExistingPeers[0].IsMuted)
	assert.True(t, resB.ExistingPeers[0].IsAudioEnabled)
}

func TestJoin_SameConnectionTwice(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "conn-a", "other", "Alice", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)
}

func TestJoin_DuplicateIdentityEvictsPrevious(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Join(ctx, "conn-a", "demo", "Alice", "alice")
	require.NoError(t, err)

	res, err := svc.Join(ctx, "conn-b", "demo", "Alice", "alice")
	require.NoError(t, err)
	require.NotNil(t, res.Evicted)
	assert.Equal(t, domain.PeerID("conn-a"), res.Evicted.ID)
	// The evicted connection must not appear in the roster.
	assert.Empty(t, res.ExistingPeers)

	_, err = svc.GetPeer(ctx, "conn-a")
	assert.ErrorIs(t, err, domain.ErrPeerNotFound)
}

func TestSetMuted_ForcesSpeakingFalse(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)

	speak, err := svc.SetSpeaking(ctx, "conn-a", true)
	require.NoError(t, err)
	assert.True(t, speak.Broadcast)
	assert.True(t, speak.Speaking)

	mute, err := svc.SetMuted(ctx, "conn-a", true)
	require.NoError(t, err)
	assert.True(t, mute.Muted)

	peer, err := svc.GetPeer(ctx, "conn-a")
	require.NoError(t, err)
	assert.True(t, peer.Muted)
	assert.False(t, peer.Speaking)
}

func TestSetSpeaking_IgnoredWhileMuted(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)

	_, err = svc.SetMuted(ctx, "conn-a", true)
	require.NoError(t, err)

	res, err := svc.SetSpeaking(ctx, "conn-a", true)
	require.NoError(t, err)
	assert.False(t, res.Broadcast)

	peer, err := svc.GetPeer(ctx, "conn-a")
	require.NoError(t, err)
	assert.False(t, peer.Speaking)
}

func TestSetAudioEnabled(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)

	res, err := svc.SetAudioEnabled(ctx, "conn-a", false)
	require.NoError(t, err)
	assert.False(t, res.Enabled)

	peer, err := svc.GetPeer(ctx, "conn-a")
	require.NoError(t, err)
	assert.False(t, peer.AudioEnabled)
}

func TestLeave_RoomDeletedWhenLastMemberLeaves(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	ids := []domain.PeerID{"conn-a", "conn-b", "conn-c"}
	for i, id := range ids {
		_, err := svc.Join(ctx, id, "demo", string(rune('A'+i)), "")
		require.NoError(t, err)
	}

	// Leave in arbitrary order; the room survives every non-final leave.
	res, err := svc.Leave(ctx, "conn-b")
	require.NoError(t, err)
	assert.False(t, res.RoomDeleted)

	res, err = svc.Leave(ctx, "conn-a")
	require.NoError(t, err)
	assert.False(t, res.RoomDeleted)

	res, err = svc.Leave(ctx, "conn-c")
	require.NoError(t, err)
	assert.True(t, res.RoomDeleted)

	rooms, peers, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, peers)

	// A later join to the same identifier starts a brand-new empty room.
	resNew, err := svc.Join(ctx, "conn-d", "demo", "Dave", "")
	require.NoError(t, err)
	assert.True(t, resNew.RoomCreated)
	assert.Empty(t, resNew.ExistingPeers)
}

func TestLeave_UnknownPeerIsNotFound(t *testing.T) {
	svc := newTestRoomService()

	_, err := svc.Leave(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrPeerNotFound)
}

func TestStateChanges_UnknownPeerIsNotFound(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.SetMuted(ctx, "nope", true)
	assert.ErrorIs(t, err, domain.ErrPeerNotFound)

	_, err = svc.SetSpeaking(ctx, "nope", true)
	assert.ErrorIs(t, err, domain.ErrPeerNotFound)

	_, err = svc.SetAudioEnabled(ctx, "nope", false)
	assert.ErrorIs(t, err, domain.ErrPeerNotFound)
}

func TestJoin_RollbackAfterTokenFailure(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	res, err := svc.Join(ctx, "conn-a", "demo", "Alice", "")
	require.NoError(t, err)
	require.NotNil(t, res)

	// The signaling layer rolls a failed join back with Leave; afterwards the
	// registries hold neither the peer nor the now-empty room.
	leave, err := svc.Leave(ctx, "conn-a")
	require.NoError(t, err)
	assert.True(t, leave.RoomDeleted)

	rooms, peers, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, peers)
}
