package upstream

import (
	"context"
	"net/http"

	"github.com/userdesk/backend/internal/model"
)

type tokenResponse struct {
	AccessToken string            `json:"access_token"`
	User        model.SessionUser `json:"user"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	body, err := newFormBody([][2]string{{"email", email}, {"password", password}})
	if err != nil {
		return model.Session{}, err
	}
	var resp tokenResponse
	if err := c.call(ctx, http.MethodPost, "/login", body, &resp, "Login failed"); err != nil {
		return model.Session{}, err
	}
	return model.Session{Token: resp.AccessToken, User: resp.User}, nil
}

// Logout revokes token upstream.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.WithToken(token).call(ctx, http.MethodPost, "/logout", nil, nil, "Logout failed")
}

// Authenticate resolves token to its session.
func (c *Client) Authenticate(ctx context.Context, token string) (model.Session, error) {
	var env envelope
	if err := c.WithToken(token).call(ctx, http.MethodGet, "/me", nil, &env, "Session expired"); err != nil {
		return model.Session{}, err
	}
	session := model.Session{Token: token}
	if err := decodeData(env, &session.User); err != nil {
		return model.Session{}, err
	}
	return session, nil
}
