// Package auth provides authentication for the user directory API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/userdesk/backend/internal/model"
)

// Claims represents the JWT claims for a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// User returns the identity encoded in the claims.
func (c *Claims) User() model.SessionUser {
	id, _ := strconv.Atoi(c.Subject)
	return model.SessionUser{ID: id, Email: c.Email, Name: c.Name}
}

// Errors returned by JWT operations.
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidSecret = errors.New("jwt secret must not be empty")
)

// JWTManager handles token generation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewJWTManager creates a new JWTManager with the given secret and token lifetime.
func NewJWTManager(secret string, expiry time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrInvalidSecret
	}
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// GenerateToken creates a signed HS256 token for user and returns its expiry.
func (m *JWTManager) GenerateToken(user model.SessionUser) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Name:  user.Name,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a JWT string, returning its claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
