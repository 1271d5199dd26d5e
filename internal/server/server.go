package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Jonathanferreras/watch-the-hutch/internal/handler"
	hutchmcp "github.com/Jonathanferreras/watch-the-hutch/internal/mcp"
	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/server/middleware"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
	"github.com/Jonathanferreras/watch-the-hutch/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	EnableMCP       bool
	CookieSecure    bool
	LoginRateLimit  int // requests per minute per IP, 0 disables
	EventRateLimit  int // requests per minute per IP, 0 disables
	WHEPUpstream    string
	WHEPTimeout     time.Duration
	Version         string

	// TrustProxyHeaders takes the client IP from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		EnableMCP:       true,
		LoginRateLimit:  10,
		EventRateLimit:  120,
		WHEPTimeout:     10 * time.Second,
		Version:         "dev",
	}
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the top-level HTTP server. It owns the chi router and the
// services the handlers call into.
type Server struct {
	cfg        Config
	router     chi.Router
	db         Pinger
	authSvc    *service.AuthService
	events     *service.EventService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, db Pinger, authSvc *service.AuthService, events *service.EventService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		db:      db,
		authSvc: authSvc,
		events:  events,
		logger:  logger,
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
	if s.cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5, "application/json", "text/html", "text/css", "application/javascript"))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	adminHandler := handler.NewAdminHandler(s.authSvc, s.cfg.CookieSecure, s.logger)
	eventHandler := handler.NewEventHandler(s.events, s.logger)
	whep := handler.NewWHEPProxy(s.cfg.WHEPUpstream, s.cfg.WHEPTimeout, s.logger)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.Version).ServeSpec)

		// Devices report events without a session; the ingest path is
		// throttled per IP instead.
		r.Get("/events", eventHandler.ListEvents)
		r.With(middleware.RateLimit(s.cfg.EventRateLimit)).Post("/events", eventHandler.CreateEvent)
		r.Get("/state", eventHandler.CurrentState)

		r.Post("/camera/whep", whep.ServeHTTP)

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RateLimit(s.cfg.LoginRateLimit)).Post("/login", adminHandler.Login)
			r.Post("/logout", adminHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(s.authSvc))

				r.Get("/me", adminHandler.Me)
				r.With(middleware.RequireRole(model.RoleEditor)).Get("/users", adminHandler.ListAdmins)
				// The service enforces ADMIN for these so it can say why.
				r.Post("/users", adminHandler.CreateAdmin)
				r.Patch("/users/{id}", adminHandler.UpdateAdmin)
			})
		})
	})

	// The player page posts its offer here.
	r.Post("/camera/whep", whep.ServeHTTP)

	// --- MCP over Streamable HTTP (admin session required) ---
	if s.cfg.EnableMCP {
		mcpSrv := hutchmcp.NewMCPServer(s.events, s.cfg.Version, s.logger)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))
			r.Use(middleware.RequireRole(model.RoleViewer))
			r.Handle("/mcp", mcpSrv.Handler("/mcp"))
		})
	}

	// --- Embedded pages ---
	if s.cfg.EnableUI {
		pages, err := ui.Pages()
		if err != nil {
			s.logger.Error("failed to create sub filesystem for UI", "error", err)
		} else {
			r.Handle("/static/*", http.FileServer(http.FS(pages)))
			r.Get("/", servePage(pages, "index.html"))
			r.Get("/admin", servePage(pages, "admin.html"))
		}
	}

	s.router = r
}

// servePage serves a single embedded HTML file.
func servePage(pages fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := pages.Open(name)
		if err != nil {
			http.Error(w, "page not available", http.StatusNotFound)
			return
		}
		defer f.Close()
		stat, err := f.Stat()
		if err != nil {
			http.Error(w, "page not available", http.StatusNotFound)
			return
		}
		rs, ok := f.(io.ReadSeeker)
		if !ok {
			http.Error(w, "page not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, name, stat.ModTime(), rs)
	}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database answers
// a ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	if s.cfg.WHEPUpstream == "" {
		checks["webrtc"] = "not configured"
	} else {
		checks["webrtc"] = "configured"
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests. Closing the store is left to the caller.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Listen for shutdown signals
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

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
