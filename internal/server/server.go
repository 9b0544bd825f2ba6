// Package server serves a local read-only preview of saved articles.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ghostwriter/internal/config"
	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
)

// Library is the read side of the article library.
type Library interface {
	List(ctx context.Context) ([]*core.Article, error)
	Load(ctx context.Context, id int64) (*core.Article, error)
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	library    Library
	config     config.Server
	policy     *bluemonday.Policy
}

// New creates a new HTTP server instance
func New(library Library, cfg config.Server) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		library: library,
		config:  cfg,
		policy:  articlePolicy(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  config.ParseDuration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: config.ParseDuration(cfg.WriteTimeout, 30*time.Second),
	}

	return s
}

// articlePolicy allows the markup the renderer produces: user-generated
// content plus class hooks, chart data and inline image payloads.
func articlePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("data-chart", "data-key").OnElements("div")
	p.AllowDataURIImages()
	p.AllowElements("figure", "aside")
	return p
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Get("/", s.handleIndex)
	s.router.Route("/articles/{id}", func(r chi.Router) {
		r.Get("/", s.handleArticle)
		r.Get("/markdown", s.handleMarkdown)
	})
	s.router.Get("/api/articles", s.handleListArticles)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.Info("Starting preview server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down preview server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
