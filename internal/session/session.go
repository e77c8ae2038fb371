// Package session issues and resolves opaque bearer tokens.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"
)

const (
	tokenBytes   = 32
	bearerPrefix = "Bearer "
)

var (
	ErrUnauthenticated = errors.New("missing authorization header")
	ErrMalformedAuth   = errors.New("invalid authorization format")
	ErrInvalidToken    = fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
)

type Manager struct {
	store store.SessionStore
	now   func() time.Time
}

func NewManager(sessions store.SessionStore) *Manager {
	return &Manager{store: sessions, now: func() time.Time { return time.Now().UTC() }}
}

// NewToken returns 256 random bits, base64url encoded without padding.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	err = m.store.CreateSession(ctx, models.Session{Token: token, UserID: userID, CreatedAt: m.now()})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Resolve returns the user owning token. Unknown or revoked tokens yield
// ErrInvalidToken.
func (m *Manager) Resolve(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}
	_, user, err := m.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthenticated
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMalformedAuth
	}
	return strings.TrimPrefix(header, bearerPrefix), nil
}
