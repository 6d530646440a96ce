package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/userdesk/backend/internal/apierrors"
	"github.com/userdesk/backend/internal/auth"
	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/container"
	"github.com/userdesk/backend/internal/correlation"
	"github.com/userdesk/backend/internal/handler"
	"github.com/userdesk/backend/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize dependency container
	ctr, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	r, err := newRouter(ctr)
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	// Start background jobs
	if err := ctr.Start(); err != nil {
		logger.Error("failed to start background jobs", "error", err)
	}

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}

		if err := ctr.Stop(shutdownCtx); err != nil {
			logger.Error("container shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("UserDesk server starting", "addr", addr, "backend", cfg.Store.Backend)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newRouter(ctr *container.Container) (http.Handler, error) {
	cfg := ctr.Config()
	logger := ctr.Logger()

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlation.Middleware)
	r.Use(middleware.Logger)
	r.Use(apierrors.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.CompanyHeader, correlation.HeaderName},
		ExposedHeaders:   []string{correlation.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (unauthenticated)
	r.Get("/health", handler.NewHealthHandler(ctr.HealthBackend()).Health)

	if root := ctr.AvatarRoot(); root != "" {
		prefix := cfg.Avatars.PublicPath
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(root))))
	}

	// REST surface, served when this process owns the directory
	if ctr.LocalAPI() {
		gate := ctr.Gate()
		authHandler := auth.NewHandler(gate)
		userHandler := handler.NewUserHandler(ctr.Store(), ctr.Drafts(), logger)

		r.Route("/api", func(r chi.Router) {
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(gate))
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireCompany(cfg.Auth.CompanyID))
					userHandler.Routes(r)
				})
			})
		})
	}

	// Console pages
	consoleHandler, err := web.NewHandler(ctr.Authenticator(), ctr.Sessions(), ctr.Consoles(), ctr.Drafts(), web.Config{
		TagLabel:      cfg.Web.TagLabel,
		ToastTTL:      cfg.Web.ToastTTL,
		RedirectDelay: cfg.Web.RedirectDelay,
	}, logger)
	if err != nil {
		return nil, err
	}
	consoleHandler.Routes(r)

	return r, nil
}
