package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/userdesk/backend/internal/model"
)

var adminUser = model.SessionUser{ID: 1, Email: "admin2@gmail.com", Name: "Admin User"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T, latency time.Duration) *Gate {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := NewStaticVerifier(adminUser, string(hash))
	require.NoError(t, err)
	tokens, err := NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	return NewGate(verifier, tokens, NewRegistry(), latency, discardLogger())
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := m.GenerateToken(adminUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, adminUser, claims.User())
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManager_Rejects(t *testing.T) {
	_, err := NewJWTManager("", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	m, _ := NewJWTManager("secret", time.Hour)
	other, _ := NewJWTManager("other", time.Hour)
	token, _, err := other.GenerateToken(adminUser)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := NewJWTManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err = expired.GenerateToken(adminUser)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }

	r.Add(model.Session{Token: "live", User: adminUser, ExpiresAt: now.Add(time.Minute)})
	r.Add(model.Session{Token: "stale", User: adminUser, ExpiresAt: now.Add(-time.Minute)})

	s, ok := r.Lookup("live")
	require.True(t, ok)
	assert.Equal(t, adminUser, s.User)

	_, ok = r.Lookup("stale")
	assert.False(t, ok)

	assert.Equal(t, 1, r.Purge())
	assert.Equal(t, 1, r.Len())

	r.Revoke("live")
	r.Revoke("unknown")
	_, ok = r.Lookup("live")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestGate_Login(t *testing.T) {
	gate := newTestGate(t, 0)
	ctx := context.Background()

	session, err := gate.Login(ctx, "admin2@gmail.com", "12345678")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, adminUser, session.User)

	got, err := gate.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User, got.User)
}

func TestGate_LoginRejectsBadCredentials(t *testing.T) {
	gate := newTestGate(t, 0)
	ctx := context.Background()

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "admin2@gmail.com", "wrong"},
		{"wrong email", "other@gmail.com", "12345678"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.Login(ctx, tt.email, tt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, "Invalid email or password", err.Error())
		})
	}
	assert.Zero(t, gate.sessions.Len())
}

func TestGate_LoginHonoursCancellation(t *testing.T) {
	gate := newTestGate(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gate.Login(ctx, "admin2@gmail.com", "12345678")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGate_Logout(t *testing.T) {
	gate := newTestGate(t, 0)
	session, err := gate.Login(context.Background(), "admin2@gmail.com", "12345678")
	require.NoError(t, err)

	require.NoError(t, gate.Logout(context.Background(), session.Token))

	_, err = gate.Authenticate(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticVerifier_RejectsBadHash(t *testing.T) {
	_, err := NewStaticVerifier(adminUser, "plaintext")
	assert.Error(t, err)
}
