package container

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdesk/backend/internal/auth"
	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/upstream"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenExpiry:   time.Hour,
			AdminEmail:    "admin2@gmail.com",
			AdminName:     "Admin User",
			AdminPassword: "12345678",
			CompanyID:     "4",
		},
		Avatars: config.AvatarConfig{Dir: t.TempDir(), PublicPath: "/avatars/", MaxBytes: 1 << 20},
		Web:     config.WebConfig{SessionKey: "0123456789abcdef0123456789abcdef", ToastTTL: time.Second},
		Jobs:    config.JobsConfig{SessionCleanupSchedule: "0 */10 * * * *", ConsoleIdleTimeout: time.Hour},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(t), discardLogger())
	require.NoError(t, err)

	users, err := c.Store().List(ctx, model.StatusAll)
	require.NoError(t, err)
	assert.Len(t, users, 12)

	require.True(t, c.LocalAPI())
	session, err := c.Authenticator().Login(ctx, "admin2@gmail.com", "12345678")
	require.NoError(t, err)
	assert.Equal(t, "Admin User", session.User.Name)

	_, err = c.Authenticator().Login(ctx, "admin2@gmail.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.Nil(t, c.HealthBackend())
	assert.NotEmpty(t, c.AvatarRoot())
	assert.Same(t, c.Store(), c.storeFor("any-token"))

	require.NoError(t, c.Start())
	require.Len(t, c.Scheduler().ListJobs(), 1)
	require.NoError(t, c.Scheduler().RunNow("session-cleanup"))
	require.NoError(t, c.Stop(ctx))
}

func TestNew_RemoteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRemote
	cfg.Upstream = config.UpstreamConfig{BaseURL: "http://127.0.0.1:9", CompanyID: "4", Timeout: time.Second}

	c, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.False(t, c.LocalAPI())
	assert.Nil(t, c.Store())
	_, ok := c.Authenticator().(*upstream.Client)
	assert.True(t, ok)
	_, ok = c.storeFor("token").(*upstream.Client)
	assert.True(t, ok)
	require.NoError(t, c.Stop(context.Background()))
}

func TestNew_BadSeedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.SeedFile = "does-not-exist.hcl"
	_, err := New(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}
