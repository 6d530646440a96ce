package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
)

// ErrInvalidCredentials is returned when the email/password pair is rejected.
var ErrInvalidCredentials = errors.New("Invalid email or password")

// Verifier checks a credential pair and returns the matching identity.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (model.SessionUser, error)
}

// StaticVerifier accepts a single configured account whose password is held
// as a bcrypt hash.
type StaticVerifier struct {
	user model.SessionUser
	hash []byte
}

// NewStaticVerifier creates a verifier for user with the given bcrypt hash.
func NewStaticVerifier(user model.SessionUser, passwordHash string) (*StaticVerifier, error) {
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	user.Email = normalizeEmail(user.Email)
	return &StaticVerifier{user: user, hash: []byte(passwordHash)}, nil
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, email, password string) (model.SessionUser, error) {
	// Always run the hash comparison so a wrong email costs the same as a wrong password.
	hashErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if normalizeEmail(email) != v.user.Email || hashErr != nil {
		return model.SessionUser{}, ErrInvalidCredentials
	}
	return v.user, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Gate issues and revokes sessions.
type Gate struct {
	verifier Verifier
	tokens   *JWTManager
	sessions *Registry
	latency  time.Duration
	logger   *slog.Logger
}

// NewGate creates a Gate. latency is applied before every login attempt.
func NewGate(verifier Verifier, tokens *JWTManager, sessions *Registry, latency time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		tokens:   tokens,
		sessions: sessions,
		latency:  latency,
		logger:   logger,
	}
}

// Login verifies the credentials and opens a session.
func (g *Gate) Login(ctx context.Context, email, password string) (model.Session, error) {
	if err := repository.Wait(ctx, g.latency); err != nil {
		return model.Session{}, err
	}

	user, err := g.verifier.Verify(ctx, email, password)
	if err != nil {
		g.logger.Info("login rejected", "email", email)
		return model.Session{}, err
	}

	token, expiresAt, err := g.tokens.GenerateToken(user)
	if err != nil {
		return model.Session{}, err
	}
	session := model.Session{Token: token, User: user, ExpiresAt: expiresAt}
	g.sessions.Add(session)

	g.logger.Info("login", "user_id", user.ID, "email", user.Email)
	return session, nil
}

// Logout destroys the session for token. Unknown tokens are ignored.
func (g *Gate) Logout(_ context.Context, token string) error {
	g.sessions.Revoke(token)
	return nil
}

// Authenticate returns the live session for token.
func (g *Gate) Authenticate(_ context.Context, token string) (model.Session, error) {
	if _, err := g.tokens.ValidateToken(token); err != nil {
		return model.Session{}, err
	}
	session, ok := g.sessions.Lookup(token)
	if !ok {
		return model.Session{}, ErrInvalidToken
	}
	return session, nil
}

// PurgeExpired drops expired sessions.
func (g *Gate) PurgeExpired() int {
	return g.sessions.Purge()
}
