// Package server exposes the query engine over HTTP: a JSON API for
// questions, books, and stats, plus a WebSocket chat with an optional
// speaking avatar.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nlerner/breslov-rag/internal/avatar"
	"github.com/nlerner/breslov-rag/internal/engine"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	// DefaultTopK is used when a query does not specify retrieval depth.
	DefaultTopK int
	// RatePerMinute and RatePerHour cap query traffic per client IP;
	// zero disables the respective cap.
	RatePerMinute int
	RatePerHour   int
}

// Server serves the RAG API.
type Server struct {
	cfg        Config
	engine     *engine.Engine
	avatar     *avatar.Client // nil when the avatar is disabled
	limiter    *ipLimiter
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server around an initialized engine. avatarClient may be
// nil, which turns chat into text-only mode.
func New(cfg Config, eng *engine.Engine, avatarClient *avatar.Client) *Server {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = engine.DefaultTopK
	}
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		avatar:  avatarClient,
		limiter: newIPLimiter(cfg.RatePerMinute, cfg.RatePerHour),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Middleware).Post("/query", s.handleQuery)
		r.Get("/books", s.handleBooks)
		r.Get("/stats", s.handleStats)
		r.Post("/admin/reindex", s.handleReindex)
	})

	r.Get("/ws/chat", s.handleChat)

	return r
}

// Router returns the chi router, mostly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("breslov-rag server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
