// Package container provides dependency injection.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/userdesk/backend/internal/auth"
	"github.com/userdesk/backend/internal/avatars"
	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/console"
	"github.com/userdesk/backend/internal/handler"
	"github.com/userdesk/backend/internal/jobs"
	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/notification"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/seed"
	"github.com/userdesk/backend/internal/upstream"
	"github.com/userdesk/backend/internal/web"
)

// Container holds all application dependencies.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	// store is the local directory; nil for the remote backend.
	store    repository.DirectoryStore
	notifier *notification.Store
	upstream *upstream.Client
	gate     *auth.Gate

	avatarDisk *avatars.DiskStorage
	drafts     *handler.DraftDecoder

	sessions  *web.SessionStore
	consoles  *web.Consoles
	scheduler *jobs.Scheduler
}

// New creates a new dependency container.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		cfg:    cfg,
		logger: logger,
	}

	if err := c.initStore(ctx); err != nil {
		c.closeDB()
		return nil, err
	}
	if err := c.initAvatars(ctx); err != nil {
		c.closeDB()
		return nil, err
	}
	if err := c.initAuth(); err != nil {
		c.closeDB()
		return nil, err
	}

	sessions, err := web.NewSessionStore(cfg.Web.SessionKey, cfg.Web.SecureCookies, logger)
	if err != nil {
		c.closeDB()
		return nil, err
	}
	c.sessions = sessions
	c.consoles = web.NewConsoles(c.storeFor, cfg.Jobs.ConsoleIdleTimeout,
		console.WithLogger(logger),
		console.WithToastTTL(cfg.Web.ToastTTL),
		console.WithRedirectDelay(cfg.Web.RedirectDelay),
	)

	c.scheduler = jobs.NewScheduler(logger)
	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	cfg := c.cfg
	if cfg.Store.Backend == config.BackendRemote {
		client, err := upstream.NewClient(cfg.Upstream)
		if err != nil {
			return fmt.Errorf("failed to create upstream client: %w", err)
		}
		c.upstream = client
		c.logger.Info("using remote directory", "url", cfg.Upstream.BaseURL)
		return nil
	}

	data, err := seed.Load(cfg.Store.SeedFile)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	var store repository.DirectoryStore
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.MaxLifetime)
		c.db = db

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		c.logger.Info("database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)

		repo := repository.NewPostgresUserRepository(db, data.Roles, data.Responsibilities)
		if err := repo.EnsureTable(pingCtx); err != nil {
			return fmt.Errorf("failed to ensure users table: %w", err)
		}
		n, err := repo.SeedIfEmpty(pingCtx, data.Users)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		if n > 0 {
			c.logger.Info("seeded users table", "users", n)
		}
		store = repo
	default:
		latency := repository.DefaultLatency().Scaled(cfg.Store.LatencyScale)
		store = repository.NewMemoryUserRepository(data.Users, data.Roles, data.Responsibilities, latency)
		c.logger.Info("using in-memory directory", "users", len(data.Users), "latency_scale", cfg.Store.LatencyScale)
	}

	notifier := notification.NewService(cfg.Notification, c.logger)
	if notifier.Enabled() {
		c.notifier = notification.NewStore(store, notifier, c.logger)
		store = c.notifier
		c.logger.Info("change notifications enabled")
	}
	c.store = store
	return nil
}

func (c *Container) initAvatars(ctx context.Context) error {
	cfg := c.cfg.Avatars
	var storage avatars.Storage
	if cfg.Bucket != "" {
		s3, err := avatars.NewS3Storage(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize avatar bucket: %w", err)
		}
		storage = s3
		c.logger.Info("avatars stored in S3", "bucket", cfg.Bucket, "region", cfg.Region)
	} else {
		c.avatarDisk = avatars.NewDiskStorage(cfg.Dir, cfg.PublicPath)
		storage = c.avatarDisk
		c.logger.Info("avatars stored on disk", "dir", cfg.Dir)
	}
	c.drafts = handler.NewDraftDecoder(avatars.NewUploader(storage, cfg.MaxBytes))
	return nil
}

func (c *Container) initAuth() error {
	if c.upstream != nil {
		return nil
	}
	cfg := c.cfg.Auth
	hash := cfg.AdminPasswordHash
	if hash == "" {
		var err error
		if hash, err = auth.HashPassword(cfg.AdminPassword); err != nil {
			return err
		}
	}
	verifier, err := auth.NewStaticVerifier(model.SessionUser{ID: 1, Name: cfg.AdminName, Email: cfg.AdminEmail}, hash)
	if err != nil {
		return fmt.Errorf("failed to initialize credential verifier: %w", err)
	}
	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenExpiry)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	c.gate = auth.NewGate(verifier, tokens, auth.NewRegistry(), cfg.LoginLatency, c.logger)
	return nil
}

// storeFor returns the directory a console session works against.
func (c *Container) storeFor(token string) repository.DirectoryStore {
	if c.upstream != nil {
		return c.upstream.WithToken(token)
	}
	return c.store
}

// Start registers and starts background jobs.
func (c *Container) Start() error {
	var expired jobs.Purger
	if c.gate != nil {
		expired = jobs.PurgeFunc(c.gate.PurgeExpired)
	}
	cleanup := jobs.NewSessionCleanup(expired, jobs.PurgeFunc(c.consoles.PurgeIdle), c.logger)
	if err := c.scheduler.Register(jobs.SessionCleanupJob, c.cfg.Jobs.SessionCleanupSchedule, cleanup.Run); err != nil {
		return err
	}
	c.scheduler.Start()
	return nil
}

// Stop gracefully stops all components.
func (c *Container) Stop(ctx context.Context) error {
	c.logger.Info("stopping container components")

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.notifier != nil {
		done := make(chan struct{})
		go func() {
			c.notifier.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Warn("pending notifications abandoned", "error", ctx.Err())
		}
	}

	return c.closeDB()
}

func (c *Container) closeDB() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Accessors

func (c *Container) Config() *config.Config           { return c.cfg }
func (c *Container) Logger() *slog.Logger             { return c.logger }
func (c *Container) Store() repository.DirectoryStore { return c.store }
func (c *Container) Gate() *auth.Gate                 { return c.gate }
func (c *Container) Drafts() *handler.DraftDecoder    { return c.drafts }
func (c *Container) Sessions() *web.SessionStore      { return c.sessions }
func (c *Container) Consoles() *web.Consoles          { return c.consoles }
func (c *Container) Scheduler() *jobs.Scheduler       { return c.scheduler }
func (c *Container) AvatarDisk() *avatars.DiskStorage { return c.avatarDisk }
func (c *Container) LocalAPI() bool                   { return c.gate != nil }

// Authenticator returns the login boundary for the console: the local gate,
// or the upstream API for the remote backend.
func (c *Container) Authenticator() web.Authenticator {
	if c.upstream != nil {
		return c.upstream
	}
	return c.gate
}

// HealthBackend returns the database to ping, or nil without one.
func (c *Container) HealthBackend() handler.Pinger {
	if c.db == nil {
		return nil
	}
	return c.db
}

// AvatarRoot is the directory served under the public avatar path.
func (c *Container) AvatarRoot() string {
	if c.avatarDisk == nil {
		return ""
	}
	return filepath.Join(c.avatarDisk.Dir(), "avatars")
}
