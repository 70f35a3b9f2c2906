// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/credential"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

var (
	// ErrInvalidInput rejects a submit whose fields are blank after trimming.
	ErrInvalidInput = errors.New("invalid input")
	// ErrActionUnavailable rejects an action the current view does not offer.
	ErrActionUnavailable = errors.New("action not available in current state")
)

// SnapshotSource is the bridge's read side.
type SnapshotSource interface {
	Snapshot() bridge.Snapshot
}

// Commands is the controller surface used by the view.
type Commands interface {
	Initialize(ctx context.Context) (bool, error)
	Activate(ctx context.Context, input string) (bool, error)
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	LogMetadata(ctx context.Context, key, value string) error
}

// Presenter re-renders the view whenever the bridge publishes a snapshot.
// Each render with a stored credential replays initialization.
type Presenter struct {
	bus     bus.Bus
	src     SnapshotSource
	ctl     Commands
	store   credential.Store
	prompts *PromptBroker
	logger  zerolog.Logger

	mu      sync.RWMutex
	view    View
	renders uint64
}

// NewPresenter wires a presenter. prompts may be nil.
func NewPresenter(b bus.Bus, src SnapshotSource, ctl Commands, store credential.Store, prompts *PromptBroker) *Presenter {
	if prompts == nil {
		prompts = NewPromptBroker()
	}
	return &Presenter{
		bus:     b,
		src:     src,
		ctl:     ctl,
		store:   store,
		prompts: prompts,
		logger:  xglog.WithComponent("ui"),
		view:    BuildView(src.Snapshot(), false),
	}
}

// Prompts returns the dialog broker.
func (p *Presenter) Prompts() *PromptBroker { return p.prompts }

// Run renders once and then on every snapshot until ctx ends.
func (p *Presenter) Run(ctx context.Context) error {
	sub, err := p.bus.Subscribe(ctx, sdk.TopicSnapshot)
	if err != nil {
		return fmt.Errorf("subscribe snapshots: %w", err)
	}
	defer sub.Close()

	if _, err := p.Render(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("initial render failed")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			if _, err := p.Render(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn().Err(err).Msg("render failed")
			}
		}
	}
}

// Render builds the view from the current snapshot and stored credential.
// When a credential is stored it also issues initialize, as every render of
// the screen does.
func (p *Presenter) Render(ctx context.Context) (View, error) {
	key, err := p.store.Get(ctx)
	if err != nil {
		return p.View(), fmt.Errorf("read credential: %w", err)
	}
	hasCredential := key != ""

	var initErr error
	if hasCredential {
		_, initErr = p.ctl.Initialize(ctx)
	}

	v := BuildView(p.src.Snapshot(), hasCredential)
	p.mu.Lock()
	p.view = v
	p.renders++
	p.mu.Unlock()

	v.Prompts = p.prompts.Pending()
	return v, initErr
}

// View returns the last rendered view with the currently open prompts.
func (p *Presenter) View() View {
	p.mu.RLock()
	v := p.view
	p.mu.RUnlock()
	v.Prompts = p.prompts.Pending()
	return v
}

// Renders counts completed render passes.
func (p *Presenter) Renders() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renders
}

// SubmitCredential is the credential entry's submit action.
func (p *Presenter) SubmitCredential(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrInvalidInput
	}
	if _, err := p.ctl.Activate(ctx, input); err != nil {
		return err
	}
	_, err := p.Render(ctx)
	return err
}

// Start is the start recording button.
func (p *Presenter) Start(ctx context.Context) error {
	if !p.View().ShowStart {
		return ErrActionUnavailable
	}
	return p.ctl.StartRecording(ctx)
}

// Stop is the stop recording button.
func (p *Presenter) Stop(ctx context.Context) error {
	if !p.View().ShowStop {
		return ErrActionUnavailable
	}
	return p.ctl.StopRecording(ctx)
}

// SubmitMetadata is the metadata form's submit action. Both fields must be
// non-blank; they are forwarded as entered.
func (p *Presenter) SubmitMetadata(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
		return ErrInvalidInput
	}
	if !p.View().ShowMetadataForm {
		return ErrActionUnavailable
	}
	return p.ctl.LogMetadata(ctx, key, value)
}
