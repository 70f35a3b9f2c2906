// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/tmbridge/internal/log"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// ServerConfig configures the HTTP control surface listener.
type ServerConfig struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// Listener overrides Listen when set.
	Listener net.Listener
}

// Manager serves the HTTP surface and runs shutdown hooks.
type Manager struct {
	cfg     ServerConfig
	handler http.Handler
	logger  zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	started  bool
	stopping bool
	addr     net.Addr
	ready    chan struct{}
	hooks    []namedHook
}

// namedHook represents a shutdown hook with a name for logging
type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a manager serving handler.
func NewManager(cfg ServerConfig, handler http.Handler) (*Manager, error) {
	if handler == nil {
		return nil, ErrMissingHandler
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		handler: handler,
		logger:  xglog.WithComponent("manager"),
		ready:   make(chan struct{}),
	}, nil
}

// RegisterShutdownHook registers a function to be called during shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}

// Ready is closed once the listener is bound.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Addr returns the bound address, nil before Ready.
func (m *Manager) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Start serves until ctx is cancelled or the server fails, then shuts down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	ln := m.cfg.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", m.cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", m.cfg.Listen, err)
		}
	}

	srv := &http.Server{
		Handler:           m.handler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	m.mu.Lock()
	m.server = srv
	m.addr = ln.Addr()
	m.mu.Unlock()
	close(m.ready)

	m.logger.Info().
		Str(xglog.FieldAddress, ln.Addr().String()).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("API server listening (HTTP)")

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str(xglog.FieldEvent, "api.server.failed").Msg("API server failed")
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		// Use a detached-but-bounded context so shutdown can complete even if parent is canceled.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the HTTP server, then runs hooks in reverse order.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	m.stopping = true
	srv := m.server
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(ctx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().Str("hook", h.name).Msg("Shutdown hook completed")
	}

	m.logger.Info().Msg("Shutdown complete")
	return errors.Join(errs...)
}
