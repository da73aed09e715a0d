package services

import (
	"context"
	"testing"
	"time"

	"roomcast/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintJoinToken_GrantAndIdentity(t *testing.T) {
	svc := NewTokenService("devkey", "secret", "wss://media.example.com", time.Hour)

	cred, err := svc.MintJoinToken(context.Background(), "demo", "Alice", "alice-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://media.example.com", cred.URL)
	require.NotEmpty(t, cred.Token)

	var claims accessClaims
	token, err := jwt.ParseWithClaims(cred.Token, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "devkey", claims.Issuer)
	assert.Equal(t, "alice-1", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "demo", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
	assert.True(t, claims.Video.CanPublish)
	assert.True(t, claims.Video.CanSubscribe)
	assert.True(t, claims.Video.CanPublishData)

	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestMintJoinToken_MissingCredentials(t *testing.T) {
	svc := NewTokenService("", "", "wss://media.example.com", time.Hour)

	_, err := svc.MintJoinToken(context.Background(), "demo", "Alice", "alice-1")
	assert.ErrorIs(t, err, domain.ErrTokenUnavailable)
}

func TestMintJoinToken_CancelledContext(t *testing.T) {
	svc := NewTokenService("devkey", "secret", "wss://media.example.com", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.MintJoinToken(ctx, "demo", "Alice", "alice-1")
	assert.ErrorIs(t, err, context.Canceled)
}
