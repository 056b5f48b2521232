// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: every dependency is built here,
// once, and handed down. No other package constructs its own collaborators.
//
//	config.Config
//	  → user store (sqlite | postgres)   → auth.CredentialStore
//	  → chat backend (memory | redis)    → service.ChatService
//	  → token services, issuer, sessions → service.AuthService
//	  → handlers → chi routes
//
// Resources the server opened (database, Redis client, broker) are closed
// by Close, in reverse order of creation.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/chat"
	"github.com/sakif/chat-auth/internal/config"
	"github.com/sakif/chat-auth/internal/handler"
	"github.com/sakif/chat-auth/internal/middleware"
	"github.com/sakif/chat-auth/internal/repository"
	"github.com/sakif/chat-auth/internal/repository/postgres"
	sqliteRepo "github.com/sakif/chat-auth/internal/repository/sqlite"
	"github.com/sakif/chat-auth/internal/service"
)

const shutdownTimeout = 30 * time.Second

// userStore is what the server needs from either database backend.
type userStore interface {
	repository.UserRepository
	Ping() error
	Close() error
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	broker  chat.Broker
	closers []func() error
}

// New builds every dependency from cfg and mounts the routes. On error,
// anything already opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
	}
	built := false
	defer func() {
		if !built {
			_ = s.Close()
		}
	}()

	users, err := s.openUserStore(ctx)
	if err != nil {
		return nil, err
	}

	messages, broker, redisPing, err := s.openChat(ctx)
	if err != nil {
		return nil, err
	}

	access, err := auth.NewTokenService(cfg.JWTSecret, auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating access token service: %w", err)
	}
	refresh, err := auth.NewTokenService(cfg.JWTRefreshSecret, auth.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating refresh token service: %w", err)
	}
	sessions, err := auth.NewFilesystemSessions(cfg.SessionDir, []byte(cfg.SessionSecret), cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	store := auth.NewCredentialStore(users, auth.NewPasswordService(cfg.BcryptCost))
	issuer := auth.NewIssuer(access, refresh, cfg.IsProduction())
	guard := auth.NewGuard(auth.NewAccessBearer(access, store), sessions, store, logger)

	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return users.Ping() },
	}
	if redisPing != nil {
		checks["redis"] = redisPing
	}

	s.routes(
		handler.NewAuthHandler(service.NewAuthService(store, access, refresh, issuer, logger), issuer, sessions, logger),
		handler.NewChatHandler(service.NewChatService(messages, broker, logger), cfg.FrontendBaseURL, logger),
		handler.NewHealthHandler(checks),
		guard,
	)
	built = true
	return s, nil
}

func (s *Server) openUserStore(ctx context.Context) (userStore, error) {
	switch s.cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		return db, nil

	default:
		if s.cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(s.cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(s.cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		return db, nil
	}
}

// openChat returns the message store and broker, plus a Redis health check
// when the Redis backend is in use.
func (s *Server) openChat(ctx context.Context) (chat.Store, chat.Broker, handler.HealthCheck, error) {
	if s.cfg.ChatBackend != config.ChatRedis {
		broker := chat.NewMemoryBroker()
		s.broker = broker
		s.closers = append(s.closers, broker.Close)
		return chat.NewMemoryStore(), broker, nil, nil
	}

	client, err := chat.NewRedisClient(ctx, chat.RedisOptions{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	s.closers = append(s.closers, client.Close)

	broker := chat.NewRedisBroker(client, chat.DefaultChannel, s.logger)
	s.broker = broker
	s.closers = append(s.closers, broker.Close)

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return chat.NewRedisStore(client, chat.DefaultListKey), broker, ping, nil
}

// routes mounts middleware and handlers.
//
// ROUTES:
//
//	GET  /healthz                  → dependency health
//	POST /api/auth/login           → password login
//	POST /api/auth/register        → create account
//	POST /api/auth/access-token    → verify accessToken cookie
//	POST /api/auth/refresh-token   → new token pair
//	POST /api/auth/logout          → clear cookies and session
//	GET  /api/auth/check-session   → session status
//	GET  /api/chat/messages        → list        (auth required)
//	POST /api/chat/messages        → post        (auth required)
//	GET  /api/chat/subscribe       → WebSocket   (auth required)
//
// MIDDLEWARE ORDER MATTERS: RequestID runs before Logger so every log line
// carries the ID, and Recoverer sits inside Logger so a recovered panic is
// still logged with its 500.
func (s *Server) routes(authH *handler.AuthHandler, chatH *handler.ChatHandler, healthH *handler.HealthHandler, guard *auth.Guard) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.cfg.FrontendBaseURL))

	s.router.Get("/healthz", healthH.HandleHealth)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authH.HandleLogin)
		r.Post("/register", authH.HandleRegister)
		r.Post("/access-token", authH.HandleAccessToken)
		r.Post("/refresh-token", authH.HandleRefreshToken)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/check-session", authH.HandleCheckSession)
	})

	s.router.Route("/api/chat", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Get("/messages", chatH.HandleList)
		r.Post("/messages", chatH.HandlePost)
		r.Get("/subscribe", chatH.HandleSubscribe)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases everything New opened, newest first.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to 30s for in-flight requests
//  3. close the broker (ends WebSocket streams), Redis and the database
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// WebSocket connections are hijacked and invisible to Shutdown.
	// Closing the broker ends their streams. Close is idempotent.
	srv.RegisterOnShutdown(func() { _ = s.broker.Close() })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", s.cfg.AppEnv),
			slog.String("store", s.cfg.StoreDriver),
			slog.String("chat", s.cfg.ChatBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
