package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD", "12345678")
	t.Setenv("SESSION_KEY", strings.Repeat("k", 32))
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 1.0, cfg.Store.LatencyScale)
	assert.Equal(t, "admin2@gmail.com", cfg.Auth.AdminEmail)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, "4", cfg.Auth.CompanyID)
	assert.Equal(t, 3*time.Second, cfg.Web.ToastTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Web.RedirectDelay)
	assert.Equal(t, "Responsibility", cfg.Web.TagLabel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_LATENCY_SCALE", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NOTIFICATION_WEBHOOK_URLS", "https://h1,,https://h2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Zero(t, cfg.Store.LatencyScale)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"https://h1", "https://h2"}, cfg.Notification.WebhookList())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"missing admin password", map[string]string{"ADMIN_PASSWORD": ""}, "ADMIN_PASSWORD"},
		{"short session key", map[string]string{"SESSION_KEY": "short"}, "SESSION_KEY"},
		{"postgres without password", map[string]string{"STORE_BACKEND": "postgres"}, "DB_PASSWORD"},
		{"remote without url", map[string]string{"STORE_BACKEND": "remote"}, "UPSTREAM_URL"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "redis"}, "STORE_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", db.DSN())
}
