package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/dsviz/internal/config"
	"github.com/me/dsviz/internal/session"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server is the dsviz REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	sessions  *session.Manager
	janitor   *session.Janitor // optional; evicts idle sessions
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithJanitor sets the idle-session janitor started by StartJanitor.
func WithJanitor(j *session.Janitor) Option {
	return func(s *Server) {
		s.janitor = j
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, sessions *session.Manager, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		sessions:  sessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// StartJanitor begins the idle-session sweep in a background goroutine.
func (s *Server) StartJanitor(ctx context.Context) {
	if s.janitor == nil {
		return
	}
	go func() {
		if err := s.janitor.Start(ctx); err != nil && err != context.Canceled {
			s.logger.Error("janitor stopped", "error", err)
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// Action-dispatch endpoint used by the visualizer front end.
	r.With(s.sessionMiddleware).Post("/api/priority_scheduler", s.handlePriorityScheduler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/scheduler", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Route("/processes", func(r chi.Router) {
				r.Get("/", s.handleListProcesses)
				r.Post("/", s.handleAddProcess)
				r.Delete("/", s.handleReset)
			})
			r.Post("/schedule", s.handleComputeSchedule)
			r.Get("/runs", s.handleListRuns)
		})
	})
}
