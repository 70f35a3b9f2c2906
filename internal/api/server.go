// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the presentation model over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/tmbridge/internal/api/middleware"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/ui"
)

// maxBodyBytes bounds request bodies of the command endpoints.
const maxBodyBytes = 1 << 16

// Presenter is the subset of ui.Presenter the control surface drives.
type Presenter interface {
	View() ui.View
	SubmitCredential(ctx context.Context, input string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SubmitMetadata(ctx context.Context, key, value string) error
}

// Prompts lists and answers open confirmation dialogs.
type Prompts interface {
	Pending() []permission.Prompt
	Answer(id string, accept bool) error
}

// HealthChecker reports whether the native module is reachable.
type HealthChecker interface {
	Connected() bool
}

// Config configures the control surface.
type Config struct {
	Version        string
	TracingService string
	RateLimit      int
	RateWindow     time.Duration
}

// Server routes HTTP requests to the presentation model.
type Server struct {
	cfg       Config
	presenter Presenter
	prompts   Prompts
	health    HealthChecker
	started   time.Time
	router    *chi.Mux
}

// NewServer builds the router. health may be nil.
func NewServer(cfg Config, p Presenter, prompts Prompts, health HealthChecker) *Server {
	s := &Server{
		cfg:       cfg,
		presenter: p,
		prompts:   prompts,
		health:    health,
		started:   time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		TracingService: s.cfg.TracingService,
		RateLimit:      s.cfg.RateLimit,
		RateWindow:     s.cfg.RateWindow,
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Post("/credential", s.handleCredential)
		r.Post("/recording/start", s.handleStart)
		r.Post("/recording/stop", s.handleStop)
		r.Post("/metadata", s.handleMetadata)
		r.Get("/prompts", s.handlePrompts)
		r.Post("/prompts/{id}", s.handleAnswer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})
	return r
}
