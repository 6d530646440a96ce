// Package web serves the server-rendered admin console.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/userdesk/backend/internal/model"
)

// SessionName is the console cookie name.
const SessionName = "userdesk-session"

const (
	tokenKey = "token"
	userKey  = "user"
)

// SessionStore holds the console session (token and user) in a signed cookie.
type SessionStore struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewSessionStore creates a cookie-backed session holder. secure marks cookies
// Secure with SameSite=None; otherwise SameSite=Lax is used for local http.
func NewSessionStore(key string, secure bool, logger *slog.Logger) (*SessionStore, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("session key must be at least 32 characters")
	}
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return &SessionStore{store: store, logger: logger}, nil
}

func (s *SessionStore) get(r *http.Request) *sessions.Session {
	sess, err := s.store.Get(r, SessionName)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			s.logger.Warn("session cookie invalid, using fresh session", "error", err)
		} else {
			s.logger.Error("session store error, using fresh session", "error", err)
		}
	}
	return sess
}

// Load returns the token and user of the current session.
func (s *SessionStore) Load(r *http.Request) (string, model.SessionUser, bool) {
	sess := s.get(r)
	token, _ := sess.Values[tokenKey].(string)
	if token == "" {
		return "", model.SessionUser{}, false
	}
	var user model.SessionUser
	if raw, ok := sess.Values[userKey].(string); ok {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("session user unreadable", "error", err)
		}
	}
	return token, user, true
}

// Save writes session into the cookie.
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, session model.Session) error {
	raw, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	sess := s.get(r)
	sess.Values[tokenKey] = session.Token
	sess.Values[userKey] = string(raw)
	sess.Options.MaxAge = 0
	return sess.Save(r, w)
}

// Clear removes the token and user and expires the cookie.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	delete(sess.Values, tokenKey)
	delete(sess.Values, userKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
