// Package server hosts the local preview server. It serves the generated
// site tree and exposes a small JSON API over the post index so drafts and
// metadata can be inspected without rebuilding.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ssnover/lab-blog/internal/content"
	"github.com/ssnover/lab-blog/internal/index"
	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// ErrSiteDirRequired indicates the server was configured without a site directory.
var ErrSiteDirRequired = errors.New("server: site directory is required")

// Config controls the preview server.
type Config struct {
	Addr    string `json:"addr" yaml:"addr"`
	SiteDir string `json:"site_dir" yaml:"site_dir"`
}

// ProjectSource supplies the current project descriptors for the API.
type ProjectSource func() ([]content.Project, error)

// Server serves the generated site and the post API.
type Server struct {
	cfg      Config
	index    *index.Service
	projects ProjectSource
	logger   interfaces.Logger
	http     *http.Server
}

// Option mutates the server during construction.
type Option func(*Server)

// WithLogger overrides the logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProjectSource wires the project descriptor provider for /api/projects.
func WithProjectSource(source ProjectSource) Option {
	return func(s *Server) {
		s.projects = source
	}
}

// New builds a preview server. The index service is optional; without it the
// API endpoints respond 503.
func New(cfg Config, idx *index.Service, opts ...Option) (*Server, error) {
	if strings.TrimSpace(cfg.SiteDir) == "" {
		return nil, ErrSiteDirRequired
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}
	srv := &Server{
		cfg:    cfg,
		index:  idx,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, nil
}

// Routes assembles the router. Exposed so tests can drive it with httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.handleListPosts)
		r.Get("/posts/{slug}", s.handleGetPost)
		r.Get("/projects", s.handleListProjects)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	fileServer := http.FileServer(http.Dir(s.cfg.SiteDir))
	r.Handle("/*", fileServer)

	return r
}

// ListenAndServe blocks until the context is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", s.cfg.Addr, "site_dir", s.cfg.SiteDir)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}
