package session

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessions struct {
	users    map[string]models.User
	sessions map[string]models.Session
	failGet  error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{users: map[string]models.User{}, sessions: map[string]models.Session{}}
}

func (m *memorySessions) CreateSession(_ context.Context, s models.Session) error {
	m.sessions[s.Token] = s
	return nil
}

func (m *memorySessions) GetSession(_ context.Context, token string) (models.Session, models.User, error) {
	if m.failGet != nil {
		return models.Session{}, models.User{}, m.failGet
	}
	s, ok := m.sessions[token]
	if !ok {
		return models.Session{}, models.User{}, store.ErrSessionNotFound
	}
	return s, m.users[s.UserID], nil
}

func (m *memorySessions) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func TestNewTokenEntropy(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	st := newMemorySessions()
	st.users["u1"] = models.User{UserID: "u1", Email: "alice@example.com", Role: models.RoleUser}
	m := NewManager(st)

	t1, err := m.Issue(ctx, "u1")
	require.NoError(t, err)
	t2, err := m.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	user, err := m.Resolve(ctx, t1)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	require.NoError(t, m.Revoke(ctx, t1))
	require.NoError(t, m.Revoke(ctx, t1))

	_, err = m.Resolve(ctx, t1)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.Resolve(ctx, t2)
	assert.NoError(t, err, "other sessions survive logout")
}

func TestResolveRejectsUnknownAndEmpty(t *testing.T) {
	m := NewManager(newMemorySessions())
	_, err := m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = m.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	st := newMemorySessions()
	st.failGet = errors.New("db down")
	m := NewManager(st)
	_, err := m.Resolve(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
}

func TestParseBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{"", "", ErrUnauthenticated},
		{"Bearer abc", "abc", nil},
		{"Bearer  abc ", " abc ", nil},
		{"Bearer abc\t", "abc\t", nil},
		{"bearer abc", "", ErrMalformedAuth},
		{"Token abc", "", ErrMalformedAuth},
		{"Bearerabc", "", ErrMalformedAuth},
	}
	for _, tt := range cases {
		token, err := ParseBearer(tt.header)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "header=%q", tt.header)
			continue
		}
		require.NoError(t, err, "header=%q", tt.header)
		assert.Equal(t, tt.token, token)
	}
}
