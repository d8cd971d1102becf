// Package web provides the HTTP server, the JSON API and the page for MoodTune.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/justestif/moodtune/internal/auth"
	"github.com/justestif/moodtune/internal/logging"
	"github.com/justestif/moodtune/internal/metrics"
	"github.com/justestif/moodtune/internal/mood"
	"github.com/justestif/moodtune/internal/session"
	"github.com/justestif/moodtune/internal/spotify"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	Secure         bool
	TemplatesFS    fs.FS
	StaticFS       fs.FS
	Logger         zerolog.Logger

	Auth     *auth.Authenticator
	Catalog  *spotify.Catalog
	Sessions session.Store
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   zerolog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(cfg.Auth, cfg.Catalog, cfg.Sessions, templates, cfg.Secure, countMood)

	s := &Server{
		router:   chi.NewRouter(),
		handlers: handlers,
		logger:   cfg.Logger,
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func countMood(e mood.Entry) {
	metrics.MoodsRecorded.WithLabelValues(string(e.Emotion)).Inc()
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if len(allowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", logging.RequestIDHeader},
			ExposedHeaders:   []string{logging.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	h := s.handlers

	fileServer := http.FileServer(http.FS(staticFS))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/", h.Home)
	s.router.Get("/healthz", h.Healthz)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/spotify", func(r chi.Router) {
			r.Get("/auth", h.Auth)
			r.Get("/callback", h.Callback)
			r.Get("/status", h.Status)
			r.Post("/search", h.Search)
			r.Post("/playlist", h.Playlist)
			r.Post("/logout", h.Logout)
		})

		r.Get("/moods", h.Moods)
		r.Post("/mood/record", h.RecordMood)
		r.Post("/mood/stats", h.MoodStats)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msgf("Starting server at http://%s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}
