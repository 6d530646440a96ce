package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
)

var _ repository.DirectoryStore = (*Client)(nil)

func (c *Client) List(ctx context.Context, filter model.StatusFilter) ([]model.User, error) {
	path := "/user"
	if v := filter.WireValue(); v != "" {
		path += "?status=" + v
	}

	var env envelope
	if err := c.call(ctx, http.MethodGet, path, nil, &env, "Failed to fetch users"); err != nil {
		return nil, err
	}
	users := []model.User{}
	if err := decodeData(env, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Get(ctx context.Context, id int) (*model.User, error) {
	var env envelope
	if err := c.call(ctx, http.MethodGet, userPath(id), nil, &env, "Failed to fetch user"); err != nil {
		return nil, err
	}
	var user model.User
	if err := decodeData(env, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Create(ctx context.Context, draft model.Draft) (model.Ack, error) {
	body, err := newFormBody(draftFields(draft))
	if err != nil {
		return model.Ack{}, err
	}
	return c.ack(ctx, http.MethodPost, "/user", body, "Failed to add user")
}

// Update posts the draft with _method=put, the way a form-only client would.
func (c *Client) Update(ctx context.Context, id int, draft model.Draft) (model.Ack, error) {
	body, err := newFormBody(append(draftFields(draft), [2]string{"_method", "put"}))
	if err != nil {
		return model.Ack{}, err
	}
	ack, err := c.ack(ctx, http.MethodPost, userPath(id), body, "Failed to update user")
	if err != nil {
		return model.Ack{}, err
	}
	return withID(ack, id), nil
}

func (c *Client) Delete(ctx context.Context, id int) (model.Ack, error) {
	ack, err := c.ack(ctx, http.MethodDelete, userPath(id), nil, "Failed to delete user")
	if err != nil {
		return model.Ack{}, err
	}
	return withID(ack, id), nil
}

func (c *Client) SetStatus(ctx context.Context, id int, active bool) (model.Ack, error) {
	status := "0"
	if active {
		status = "1"
	}
	body, err := newFormBody([][2]string{{"status", status}})
	if err != nil {
		return model.Ack{}, err
	}
	ack, err := c.ack(ctx, http.MethodPost, userPath(id)+"/status", body, "Failed to change status")
	if err != nil {
		return model.Ack{}, err
	}
	return withID(ack, id), nil
}

func (c *Client) Roles(ctx context.Context) (model.RoleDropdown, error) {
	body, err := newFormBody([][2]string{{"type", "1"}})
	if err != nil {
		return model.RoleDropdown{}, err
	}
	var env envelope
	if err := c.call(ctx, http.MethodPost, "/role/dropdown", body, &env, "Failed to fetch roles"); err != nil {
		return model.RoleDropdown{}, err
	}
	var roles model.RoleDropdown
	if err := decodeData(env, &roles); err != nil {
		return model.RoleDropdown{}, err
	}
	return roles, nil
}

// Responsibilities accepts either a bare list or an enveloped one.
func (c *Client) Responsibilities(ctx context.Context) ([]model.Responsibility, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/user/dropdown-responsibility", nil, &raw, "Failed to fetch responsibilities"); err != nil {
		return nil, err
	}

	list := []model.Responsibility{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode responsibilities: %w", err)
		}
		return list, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode responsibilities: %w", err)
	}
	if err := decodeData(env, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ack(ctx context.Context, method, path string, body *formBody, fallback string) (model.Ack, error) {
	var env envelope
	if err := c.call(ctx, method, path, body, &env, fallback); err != nil {
		return model.Ack{}, err
	}
	ack := model.Ack{Message: env.Message}
	if len(env.Data) > 0 {
		var data struct {
			ID int `json:"id"`
		}
		if json.Unmarshal(env.Data, &data) == nil {
			ack.ID = data.ID
		}
	}
	return ack, nil
}

// withID fills in the id when the server acknowledged without one.
func withID(ack model.Ack, id int) model.Ack {
	if ack.ID == 0 {
		ack.ID = id
	}
	return ack
}

func decodeData(env envelope, out any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func userPath(id int) string {
	return "/user/" + strconv.Itoa(id)
}

// draftFields lists the form fields of a draft. Responsibilities are sent as
// one comma-separated value.
func draftFields(d model.Draft) [][2]string {
	ids := make([]string, 0, len(d.Responsibilities))
	for _, id := range d.Responsibilities {
		ids = append(ids, strconv.Itoa(id))
	}
	return [][2]string{
		{"name", d.Name},
		{"email", d.Email},
		{"phone", d.Phone},
		{"role", d.Role},
		{"title", d.Title},
		{"initials", d.Initials},
		{"user_picture", d.UserPicture},
		{"responsibility", strings.Join(ids, ",")},
	}
}
