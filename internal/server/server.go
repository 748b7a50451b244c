// Package server is the composition root: it builds every dependency from
// a config.Config, wires handlers to routes and runs the HTTP server until
// it is told to stop.
//
// DEPENDENCY FLOW:
//
//	config -> sqlite.DB (tokens sealed with auth.Sealer)
//	       -> session store (Redis when configured, memory otherwise)
//	       -> identity.GoogleClient
//	       -> worker.Pool -> service.GraphSyncer
//	       -> services -> handlers -> chi routes
//
// Nothing below this package constructs its own dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/photohunt/internal/auth"
	"github.com/sakif/photohunt/internal/config"
	"github.com/sakif/photohunt/internal/handler"
	"github.com/sakif/photohunt/internal/identity"
	"github.com/sakif/photohunt/internal/metrics"
	"github.com/sakif/photohunt/internal/middleware"
	sqliteRepo "github.com/sakif/photohunt/internal/repository/sqlite"
	"github.com/sakif/photohunt/internal/service"
	"github.com/sakif/photohunt/internal/session"
	"github.com/sakif/photohunt/internal/worker"
)

const (
	shutdownTimeout  = 30 * time.Second
	redisPingTimeout = 5 * time.Second
	sessionKeyPrefix = "photohunt"
)

// Server owns the router and every resource that must be released on
// shutdown: the database, the session store and the worker pool.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions session.Store
	pool     *worker.Pool
	registry *prometheus.Registry
	client   identity.Client
}

type Option func(*Server)

// WithIdentityClient replaces the Google client, for tests and staging
// environments with a fake provider.
func WithIdentityClient(c identity.Client) Option {
	return func(s *Server) { s.client = c }
}

// WithSessionStore replaces the store New would pick from the config.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) { s.sessions = store }
}

// New builds the server. On error every resource opened so far is closed.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *Server, err error) {
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	sealer, err := auth.NewSealer(cfg.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	s.db, err = sqliteRepo.New(cfg.DBPath, sqliteRepo.WithTokenCipher(sealer))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if s.sessions == nil {
		s.sessions, err = newSessionStore(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	if s.client == nil {
		s.client = identity.NewGoogleClient(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Google.RedirectURL,
			cfg.Google.Timeout,
		)
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	sessions := auth.NewSessions(tokens, s.sessions).WithSecureCookies(cfg.SecureCookies)

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(s.registry)

	s.pool = worker.NewPool(worker.Config{
		Workers:     cfg.Sync.Workers,
		QueueSize:   cfg.Sync.QueueSize,
		TaskTimeout: cfg.Sync.Timeout,
	}, logger)
	s.pool.Start()

	s.setupRoutes(sessions, m)
	return s, nil
}

// newSessionStore picks Redis when an address is configured, so sessions
// survive restarts and are shared between replicas.
func newSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("session store: memory")
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info("session store: redis", slog.String("addr", cfg.Redis.Addr))
	return session.NewRedisStore(client, sessionKeyPrefix), nil
}

// setupRoutes configures middleware and routes.
//
//	POST   /api/connect      connect a Google account, open a session
//	POST   /api/disconnect   revoke tokens, delete the user       (session)
//	GET    /api/users        the signed-in user                   (session)
//	GET    /api/friends      the signed-in user's friends         (session)
//	GET    /api/themes       all themes, today's created on demand
//	GET    /api/photos       one photo or a filtered list
//	DELETE /api/photos       delete an own photo                  (session)
//	PUT    /api/votes        vote on a photo                      (session)
//	POST   /api/images       upload URL for image data
//	GET    /metrics          Prometheus exposition
//	GET    /healthz          database reachability
//
// Middleware order: RequestID must precede Logger so log lines carry the
// id, and Recoverer sits inside Logger so a panic is logged as a 500.
func (s *Server) setupRoutes(sessions *auth.Sessions, m *metrics.Metrics) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.BaseURL)
	s.router.Use(middleware.Metrics(m))

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	s.router.Get("/healthz", s.handleHealth)

	syncer := service.NewGraphSyncer(s.client, s.db.Graph(), s.pool, m, s.logger)
	connections := service.NewConnectionService(
		s.client,
		auth.NewVerifier(s.client, s.config.Google.ClientID),
		s.db.Users(),
		s.db.Graph(),
		syncer,
		m,
		s.logger,
	)
	photos := service.NewPhotoService(s.db.Photos(), s.db.Votes(), s.db.Users(), s.db.Graph(), s.logger)
	themes := service.NewThemeService(s.db.Themes())

	connectionHandler := handler.NewConnectionHandler(connections, sessions, s.logger)
	photoHandler := handler.NewPhotoHandler(photos, s.logger)
	themeHandler := handler.NewThemeHandler(themes, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(sessions))
			r.Post("/connect", connectionHandler.HandleConnect)
			r.Get("/themes", themeHandler.HandleList)
			r.Get("/photos", photoHandler.HandleList)
			r.Post("/images", photoHandler.HandleUploadURL)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(sessions))
			r.Post("/disconnect", connectionHandler.HandleDisconnect)
			r.Get("/users", connectionHandler.HandleCurrentUser)
			r.Get("/friends", connectionHandler.HandleFriends)
			r.Delete("/photos", photoHandler.HandleDelete)
			r.Put("/votes", photoHandler.HandleVote)
		})
	})

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down in order:
// stop accepting requests, let in-flight ones finish, drain queued syncs,
// and finally close the session store and the database the syncs write to.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := s.pool.Stop(ctx); err != nil {
		s.logger.Warn("background syncs did not finish", slog.String("error", err.Error()))
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Close releases what New opened. It is safe on a partially built Server.
func (s *Server) Close() {
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = s.pool.Stop(ctx)
		cancel()
	}
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			s.logger.Warn("closing session store", slog.String("error", err.Error()))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database", slog.String("error", err.Error()))
		}
	}
}
