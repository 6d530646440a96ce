// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Store        StoreConfig
	Auth         AuthConfig
	Upstream     UpstreamConfig
	Avatars      AvatarConfig
	Web          WebConfig
	Jobs         JobsConfig
	Logging      LoggingConfig
	Notification NotificationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// StoreConfig selects and tunes the Directory Store.
type StoreConfig struct {
	Backend      string
	SeedFile     string
	LatencyScale float64
}

// AuthConfig holds authentication settings. The admin password is only ever
// held as a bcrypt hash; AdminPassword is hashed at startup when no hash is given.
type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	AdminEmail        string
	AdminName         string
	AdminPassword     string
	AdminPasswordHash string
	LoginLatency      time.Duration
	CompanyID         string
}

// UpstreamConfig points the console at a remote directory API.
type UpstreamConfig struct {
	BaseURL        string
	CompanyID      string
	Timeout        time.Duration
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int
	ResetTimeout  time.Duration
	HalfOpenLimit int
}

// AvatarConfig holds avatar storage settings. S3 is used when Bucket is set.
type AvatarConfig struct {
	Dir         string
	PublicPath  string
	MaxBytes    int64
	Bucket      string
	Region      string
	AccessKeyID string
	SecretKey   string
	Endpoint    string
	PublicURL   string
}

// WebConfig holds console settings.
type WebConfig struct {
	SessionKey    string
	SecureCookies bool
	ToastTTL      time.Duration
	RedirectDelay time.Duration
	TagLabel      string
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	SessionCleanupSchedule string
	ConsoleIdleTimeout     time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	SlackWebhookURL string
	WebhookURLs     string // comma-separated
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "userdesk"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "userdesk"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			SeedFile:     getEnv("STORE_SEED_FILE", ""),
			LatencyScale: getEnvFloat("STORE_LATENCY_SCALE", 1),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenExpiry:       getEnvDuration("JWT_EXPIRY", 24*time.Hour),
			AdminEmail:        getEnv("ADMIN_EMAIL", "admin2@gmail.com"),
			AdminName:         getEnv("ADMIN_NAME", "Admin User"),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			LoginLatency:      getEnvDuration("LOGIN_LATENCY", 800*time.Millisecond),
			CompanyID:         getEnv("COMPANY_ID", "4"),
		},
		Upstream: UpstreamConfig{
			BaseURL:   getEnv("UPSTREAM_URL", ""),
			CompanyID: getEnv("UPSTREAM_COMPANY_ID", "4"),
			Timeout:   getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures:   getEnvInt("UPSTREAM_CB_MAX_FAILURES", 5),
				ResetTimeout:  getEnvDuration("UPSTREAM_CB_RESET_TIMEOUT", 30*time.Second),
				HalfOpenLimit: getEnvInt("UPSTREAM_CB_HALF_OPEN_LIMIT", 1),
			},
		},
		Avatars: AvatarConfig{
			Dir:         getEnv("AVATAR_DIR", "data/avatars"),
			PublicPath:  getEnv("AVATAR_PUBLIC_PATH", "/avatars/"),
			MaxBytes:    int64(getEnvInt("AVATAR_MAX_BYTES", 2<<20)),
			Bucket:      getEnv("AVATAR_S3_BUCKET", ""),
			Region:      getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:    getEnv("AVATAR_S3_ENDPOINT", ""),
			PublicURL:   getEnv("AVATAR_S3_PUBLIC_URL", ""),
		},
		Web: WebConfig{
			SessionKey:    getEnv("SESSION_KEY", ""),
			SecureCookies: getEnvBool("SESSION_SECURE", false),
			ToastTTL:      getEnvDuration("TOAST_TTL", 3*time.Second),
			RedirectDelay: getEnvDuration("FORM_REDIRECT_DELAY", 1500*time.Millisecond),
			TagLabel:      getEnv("FORM_TAG_LABEL", "Responsibility"),
		},
		Jobs: JobsConfig{
			SessionCleanupSchedule: getEnv("JOB_SESSION_CLEANUP", "0 */10 * * * *"),
			ConsoleIdleTimeout:     getEnvDuration("CONSOLE_IDLE_TIMEOUT", 2*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Notification: NotificationConfig{
			SlackWebhookURL: getEnv("NOTIFICATION_SLACK_WEBHOOK", ""),
			WebhookURLs:     getEnv("NOTIFICATION_WEBHOOK_URLS", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
		}
	case BackendRemote:
		if c.Upstream.BaseURL == "" {
			return fmt.Errorf("UPSTREAM_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, postgres, remote; got %q", c.Store.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if len(c.Web.SessionKey) < 32 {
		return fmt.Errorf("SESSION_KEY must be at least 32 characters")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// WebhookList splits the configured webhook URLs.
func (c *NotificationConfig) WebhookList() []string {
	return splitList(c.WebhookURLs)
}

// Helper functions
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return splitList(v)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
