package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/userdesk/backend/internal/auth"
	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/handler"
	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/seed"
)

// newDirectoryServer serves the real REST stack over a seeded memory store.
func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	data, err := seed.Default()
	require.NoError(t, err)
	store := repository.NewMemoryUserRepository(data.Users, data.Roles, data.Responsibilities, repository.Latency{})

	hash, err := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier, err := auth.NewStaticVerifier(model.SessionUser{ID: 1, Email: "admin2@gmail.com", Name: "Admin User"}, string(hash))
	require.NoError(t, err)
	tokens, err := auth.NewJWTManager("secret", time.Hour)
	require.NoError(t, err)
	gate := auth.NewGate(verifier, tokens, auth.NewRegistry(), 0, logger)

	authHandler := auth.NewHandler(gate)
	users := handler.NewUserHandler(store, handler.NewDraftDecoder(nil), logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(gate))
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireCompany("4"))
				users.Routes(r)
			})
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.UpstreamConfig{
		BaseURL:   baseURL,
		CompanyID: "4",
		Timeout:   5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   2,
			ResetTimeout:  time.Minute,
			HalfOpenLimit: 1,
		},
	})
	require.NoError(t, err)
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	srv := newDirectoryServer(t)
	ctx := context.Background()
	base := newTestClient(t, srv.URL+"/api")

	_, err := base.Login(ctx, "admin2@gmail.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.ErrorIs(t, err, ErrUnauthorized)

	session, err := base.Login(ctx, "admin2@gmail.com", "12345678")
	require.NoError(t, err)
	assert.Equal(t, "Admin User", session.User.Name)

	me, err := base.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User, me.User)

	c := base.WithToken(session.Token)

	users, err := c.List(ctx, model.StatusActive)
	require.NoError(t, err)
	assert.Len(t, users, 9)

	ack, err := c.Create(ctx, model.Draft{
		Name:             "Remote Ron",
		Email:            "ron@example.com",
		Role:             "6",
		Responsibilities: []int{2, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.MsgCreated, ack.Message)
	assert.Equal(t, 13, ack.ID)

	u, err := c.Get(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, "Viewer", u.Role.Title)
	assert.Equal(t, []int{2, 4}, u.Responsibilities)

	ack, err = c.Update(ctx, 13, model.Draft{Name: "Ron", Email: "ron@example.com", Role: "6", Responsibilities: []int{2}})
	require.NoError(t, err)
	assert.Equal(t, repository.MsgUpdated, ack.Message)

	ack, err = c.SetStatus(ctx, 13, false)
	require.NoError(t, err)
	assert.Equal(t, repository.MsgStatusChanged, ack.Message)

	roles, err := c.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, roles.Owner)
	assert.Equal(t, 3, roles.Admin)

	resp, err := c.Responsibilities(ctx)
	require.NoError(t, err)
	assert.Len(t, resp, 5)

	ack, err = c.Delete(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, repository.MsgDeleted, ack.Message)

	_, err = c.Get(ctx, 13)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, base.Logout(ctx, session.Token))
	_, err = c.List(ctx, model.StatusAll)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_GenericMessageOnBareFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.List(context.Background(), model.StatusAll)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch users", err.Error())

	var upErr *Error
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.StatusCode)
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Roles(ctx)
		require.Error(t, err)
	}
	_, err := c.Roles(ctx)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestClient_SendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "4", r.Header.Get(CompanyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`[{"id":1,"title":"Ops"}]`))
	}))
	defer srv.Close()

	list, err := newTestClient(t, srv.URL).WithToken("tok").Responsibilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Responsibility{{ID: 1, Title: "Ops"}}, list)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(config.UpstreamConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(config.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, HalfOpenLimit: 1})
	now := time.Now()
	cb.now = func() time.Time { return now }

	require.NoError(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, stateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, stateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	cb.RecordSuccess()
	assert.Equal(t, stateClosed, cb.State())
}
