// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires the bridge components and owns their lifecycle.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/config"
	xglog "github.com/ManuGH/tmbridge/internal/log"
)

// App owns the long-lived runtime lifecycle (bridge, native backend,
// render loop, reload wiring) and delegates the HTTP server to Manager.
type App struct {
	logger       zerolog.Logger
	runtime      *Runtime
	manager      *Manager
	cfgHolder    *config.ConfigHolder
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(rt *Runtime, manager *Manager, cfgHolder *config.ConfigHolder) *App {
	return &App{
		logger:       xglog.WithComponent("daemon"),
		runtime:      rt,
		manager:      manager,
		cfgHolder:    cfgHolder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or a
// fatal error occurs. The bridge is stopped before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.runtime == nil {
		return ErrMissingRuntime
	}
	rt := a.runtime

	// Subscriptions exist before the native side can emit anything.
	if err := rt.Bridge.Start(ctx); err != nil {
		return err
	}
	defer rt.Bridge.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return rt.Presenter.Run(ctx) })
	g.Go(func() error { return rt.native.Run(ctx) })

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Stop()

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.manager != nil {
		g.Go(func() error { return a.manager.Start(ctx) })
	}

	return g.Wait()
}

// apply hot-swaps the settings that can change without a restart.
func (a *App) apply(cfg config.AppConfig) {
	if !xglog.SetLevel(cfg.LogLevel) {
		a.logger.Warn().Str("level", cfg.LogLevel).Msg("ignoring unknown log level")
	}
	policy, err := bridge.ParseErrorClearPolicy(cfg.Bridge.ErrorClearPolicy)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring error clear policy")
		return
	}
	a.runtime.Bridge.SetErrorPolicy(policy)
	a.logger.Info().
		Str("log_level", cfg.LogLevel).
		Str("error_clear_policy", string(policy)).
		Msg("applied reloaded configuration")
}
