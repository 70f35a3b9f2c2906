// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/tmbridge/internal/log"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ConfigHolder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file, SIGHUP or manual trigger.
type ConfigHolder struct {
	mu       sync.RWMutex
	current  AppConfig
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewConfigHolder creates a new configuration holder with initial config.
func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current:  initial,
		loader:   loader,
		debounce: DefaultDebounce,
		logger:   xglog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration and validates it. On failure the old
// configuration is kept and an error is returned.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}
	if err := Validate(newCfg); err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.validation_failed").
			Msg("new configuration failed validation")
		return fmt.Errorf("validate config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file for changes. The parent directory is
// watched so that editors replacing the file are noticed. Without a config
// file this is a no-op.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.watchLoop(ctx, watcher, filepath.Clean(path))
	}()
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(xglog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running) and waits for it.
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
	h.wg.Wait()
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload succeeds.
// The caller is responsible for closing the channel.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all registered listeners (non-blocking).
func (h *ConfigHolder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the differences between old and new configuration. Fields
// that are only read at startup are reported as needing a restart.
func (h *ConfigHolder) logChanges(old, newCfg AppConfig) {
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: logLevel")
	}
	if old.Bridge.ErrorClearPolicy != newCfg.Bridge.ErrorClearPolicy {
		h.logger.Info().
			Str("old", old.Bridge.ErrorClearPolicy).
			Str("new", newCfg.Bridge.ErrorClearPolicy).
			Msg("config changed: bridge.errorClearPolicy")
	}
	if old.Credential != newCfg.Credential {
		h.logger.Warn().
			Str("old", old.Credential.Backend).
			Str("new", newCfg.Credential.Backend).
			Msg("config changed: credential store (restart required)")
	}
	if old.Native != newCfg.Native {
		h.logger.Warn().
			Str("old", old.Native.Address).
			Str("new", newCfg.Native.Address).
			Msg("config changed: native helper (restart required)")
	}
	if old.API.Listen != newCfg.API.Listen {
		h.logger.Warn().
			Str("old", old.API.Listen).
			Str("new", newCfg.API.Listen).
			Msg("config changed: api.listen (restart required)")
	}
}
