// Package upstream provides a client for a remote user directory API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/correlation"
	"github.com/userdesk/backend/internal/repository"
)

// CompanyHeader carries the tenant identifier on directory requests.
const CompanyHeader = "company_id"

// ErrUnauthorized is matched by errors for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response. Message is the server's message when it sent
// one, otherwise the operation's generic failure text.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets callers match 404 and 401 responses with errors.Is.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return repository.ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// Client provides access to a remote directory API. A Client is bound to one
// session token; use WithToken to derive a client for another session.
type Client struct {
	baseURL    string
	companyID  string
	token      string
	httpClient *http.Client
	cb         *CircuitBreaker
}

// NewClient creates a new upstream client.
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q", cfg.BaseURL)
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		companyID: cfg.CompanyID,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &correlation.Transport{},
		},
		cb: NewCircuitBreaker(cfg.CircuitBreaker),
	}, nil
}

// WithToken returns a client that authenticates as token. The HTTP client and
// circuit breaker are shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// envelope is the {status, data|message} wrapper of every JSON response.
type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// call performs a request and decodes a successful body into out (which may
// be nil). fallback becomes the error message when the server sends none.
func (c *Client) call(ctx context.Context, method, path string, body *formBody, out any, fallback string) error {
	if err := c.cb.Allow(); err != nil {
		return err
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		c.cb.RecordFailure()
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.cb.RecordFailure()
		return fmt.Errorf("%s: %w", fallback, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.cb.RecordFailure()
	} else {
		c.cb.RecordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: messageOf(raw, fallback)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body *formBody) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body.buf.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.companyID != "" {
		req.Header.Set(CompanyHeader, c.companyID)
	}

	return c.httpClient.Do(req)
}

func messageOf(raw []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallback
}

// formBody is a multipart/form-data request body.
type formBody struct {
	buf         bytes.Buffer
	contentType string
}

// newFormBody encodes fields in order, skipping empty values.
func newFormBody(fields [][2]string) (*formBody, error) {
	fb := &formBody{}
	mw := multipart.NewWriter(&fb.buf)
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	fb.contentType = mw.FormDataContentType()
	return fb, nil
}
