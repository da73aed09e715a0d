package services

import (
	"context"
	"fmt"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// videoGrant is the LiveKit capability claim granting a participant access to
// one room: join plus publish/subscribe/data-publish rights.
type videoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	CanPublish     bool   `json:"canPublish,omitempty"`
	CanSubscribe   bool   `json:"canSubscribe,omitempty"`
	CanPublishData bool   `json:"canPublishData,omitempty"`
}

type accessClaims struct {
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
	jwt.RegisteredClaims
}

type tokenService struct {
	apiKey    string
	apiSecret string
	serveURL  string
	ttl       time.Duration
}

// NewTokenService builds the media-token issuer. serveURL is the URL handed
// to clients (the externally reachable one, not the in-cluster address).
func NewTokenService(apiKey, apiSecret, serveURL string, ttl time.Duration) ports.TokenService {
	return &tokenService{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		serveURL:  serveURL,
		ttl:       ttl,
	}
}

// MintJoinToken signs an HS256 access token scoped to (roomID, identity).
// The token is the media server's standard access-token format: issuer is the
// API key, subject is the participant identity, and the video claim carries
// the room grant.
func (s *tokenService) MintJoinToken(ctx context.Context, roomID domain.RoomID, name, identity string) (*ports.Credential, error) {
	if s.apiKey == "" || s.apiSecret == "" {
		return nil, fmt.Errorf("%w: api key or secret is missing", domain.ErrTokenUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	claims := &accessClaims{
		Name: name,
		Video: videoGrant{
			Room:           string(roomID),
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			Subject:   identity,
			ID:        identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.apiSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}

	return &ports.Credential{Token: signed, URL: s.serveURL}, nil
}
