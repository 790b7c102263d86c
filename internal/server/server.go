package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fortina-rp/intake/internal/config"
	"github.com/fortina-rp/intake/internal/handler"
	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/server/middleware"
	"github.com/fortina-rp/intake/internal/service"
)

// adminPagesPrefix is the administrative UI namespace of the static site.
// Mutating requests under it require a valid session of any role.
const adminPagesPrefix = "/pages/admin"

// Config holds the HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	StaticDir          string // empty disables static file serving
	LoginRatePerMinute int
	RepairAccount      config.RepairConfig
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               3000,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"*"},
		LoginRatePerMinute: 10,
		RepairAccount:      config.RepairConfig{Username: "Fortina", Role: "Owner"},
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the backing
// store, the auth service, and the session table.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	authSvc    *service.AuthService
	sessions   service.SessionStore
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, store *config.Store, authSvc *service.AuthService, sessions service.SessionStore, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		authSvc:  authSvc,
		sessions: sessions,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	adminHandler := handler.NewAdminHandler(s.store, s.authSvc, s.cfg.RepairAccount)
	appHandler := handler.NewApplicationHandler(s.store)

	// --- Probes (no auth required) ---
	r.Get("/api/ping", s.handlePing)
	r.Get("/healthz", s.handleHealthz)

	// --- Admin API ---
	r.Route("/api/admin", func(r chi.Router) {
		// Login is unauthenticated but rate-limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.LoginRatePerMinute))
			r.Post("/login", adminHandler.Login)
		})

		// Logout is self-authenticated and idempotent.
		r.Post("/logout", adminHandler.Logout)

		// Status endpoints report authentication without enforcing it.
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaybeAuthenticate(s.sessions))
			r.Get("/status", adminHandler.Status)
			r.Post("/status-token", adminHandler.Status)
		})

		// Account management requires an Owner session, whether the token
		// arrives in the cookie or the request body.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.sessions))
			r.Use(middleware.RequireRole(model.RoleOwner))
			r.Post("/users", adminHandler.CreateUser)
			r.Get("/users", adminHandler.ListUsers)
			r.Post("/users-list", adminHandler.ListUsers)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
		})

		// Unauthenticated maintenance hook; see RepairAccount.
		r.Post("/fix-fortina", adminHandler.RepairAccount)
	})

	// --- Applicant API (public) ---
	r.Route("/api/apps", func(r chi.Router) {
		r.Post("/", appHandler.Submit)
		r.Get("/", appHandler.List)
		r.Get("/search", appHandler.Search)
	})

	// --- Static site ---
	if s.cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.cfg.StaticDir))
		gate := middleware.AdminPagesGate(s.sessions, adminPagesPrefix)
		r.Handle("/*", gate(fileServer))
	}

	s.router = r
}

// handlePing is the liveness probe. Returns 200 if the process is running.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ok":true}`))
}

// handleHealthz is the readiness probe. Returns 200 when the backing store
// is reachable, 503 otherwise.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
