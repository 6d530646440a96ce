package model

import "time"

// SessionUser is the authenticated identity carried by a session.
type SessionUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is created on login and destroyed on logout.
type Session struct {
	Token     string      `json:"access_token"`
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}
