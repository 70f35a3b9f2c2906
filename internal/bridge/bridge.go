// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bridge reconciles the native SDK event stream into one lifecycle
// state and error slot, and hands permission requests to the coordinator.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tmbridge/internal/bus"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// channelUnknown labels events whose payload type names no SDK channel.
const channelUnknown = "unknown"

var (
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrStopped        = errors.New("bridge stopped")
)

// PermissionHandler runs one permission flow.
type PermissionHandler interface {
	Handle(ctx context.Context, identifiers []string) (permission.Outcome, error)
}

// Bridge owns the lifecycle state and error slot. A single dispatcher
// goroutine applies events; readers may call Snapshot concurrently.
type Bridge struct {
	bus    bus.Bus
	perms  PermissionHandler
	logger zerolog.Logger

	mu      sync.RWMutex
	snap    Snapshot
	policy  ErrorClearPolicy
	started bool
	stopped bool

	// pubMu keeps snapshot notifications in version order.
	pubMu sync.Mutex

	cancel context.CancelFunc
	sub    bus.Subscriber
	wg     sync.WaitGroup
}

// New returns an unstarted bridge.
func New(b bus.Bus, perms PermissionHandler, policy ErrorClearPolicy) *Bridge {
	if policy == "" {
		policy = ClearOnStateChange
	}
	return &Bridge{
		bus:    b,
		perms:  perms,
		policy: policy,
		logger: xglog.WithComponent("bridge"),
	}
}

// Snapshot returns a copy of the current state.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// SetErrorPolicy swaps the error clear policy. It applies to future events.
func (b *Bridge) SetErrorPolicy(p ErrorClearPolicy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p == "" {
		p = ClearOnStateChange
	}
	b.policy = p
}

// Start subscribes to the three SDK channels and starts dispatching. The
// bridge runs until ctx ends or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.mu.Unlock()

	sub, err := b.bus.Subscribe(ctx, sdk.TopicEvents)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", sdk.TopicEvents, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		cancel()
		_ = sub.Close()
		return ErrStopped
	}
	b.cancel = cancel
	b.sub = sub
	b.mu.Unlock()

	metrics.SetLifecycleState(sdk.MetricLabels(), b.Snapshot().State.MetricLabel())
	metrics.SetErrorActive(false)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatch(runCtx, sub.C())
	}()
	b.logger.Info().
		Str("topic", sdk.TopicEvents).
		Strs("channels", []string{sdk.ChannelState, sdk.ChannelPermissions, sdk.ChannelError}).
		Msg("subscribed to sdk channels")
	return nil
}

// Stop unsubscribes, cancels in-flight permission flows and waits for them.
// No state changes are applied once Stop begins. Safe to call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	cancel, sub := b.cancel, b.sub
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
	b.wg.Wait()
	b.logger.Info().Msg("unsubscribed from sdk channels")
}

// dispatch applies events in publish order. The three SDK channels share one
// subscription, so events never overtake each other across channels.
func (b *Bridge) dispatch(ctx context.Context, events <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			channel, known := sdk.ChannelOf(msg)
			switch {
			case !known:
				b.malformed(channelUnknown, msg)
			case channel == sdk.ChannelState:
				b.onState(ctx, msg)
			case channel == sdk.ChannelPermissions:
				b.onPermissions(ctx, msg)
			case channel == sdk.ChannelError:
				b.onError(ctx, msg)
			}
		}
	}
}

func (b *Bridge) onState(ctx context.Context, msg bus.Message) {
	var ev sdk.StateChanged
	switch v := msg.(type) {
	case sdk.StateChanged:
		ev = v
	case *sdk.StateChanged:
		if v == nil {
			b.malformed(sdk.ChannelState, msg)
			return
		}
		ev = *v
	default:
		b.malformed(sdk.ChannelState, msg)
		return
	}
	metrics.IncBridgeEvent(sdk.ChannelState)

	var old sdk.LifecycleState
	b.apply(ctx, func(s *Snapshot, policy ErrorClearPolicy) {
		old = s.State
		s.State = ev.NewState
		if policy == ClearOnStateChange {
			s.Error = ""
		}
	}, func() {
		le := b.logger.Info().
			Str(xglog.FieldOldState, string(old)).
			Str(xglog.FieldNewState, string(ev.NewState))
		if !ev.NewState.Known() {
			le = le.Bool("unknown", true)
		}
		le.Msg("sdk state changed")
	})
}

func (b *Bridge) onError(ctx context.Context, msg bus.Message) {
	var ev sdk.ErrorReported
	switch v := msg.(type) {
	case sdk.ErrorReported:
		ev = v
	case *sdk.ErrorReported:
		if v == nil {
			b.malformed(sdk.ChannelError, msg)
			return
		}
		ev = *v
	default:
		b.malformed(sdk.ChannelError, msg)
		return
	}
	metrics.IncBridgeEvent(sdk.ChannelError)

	b.apply(ctx, func(s *Snapshot, _ ErrorClearPolicy) {
		s.Error = ev.Error
	}, func() {
		b.logger.Warn().Str("sdk_error", ev.Error).Msg("sdk reported error")
	})
}

func (b *Bridge) onPermissions(ctx context.Context, msg bus.Message) {
	var ev sdk.PermissionsRequested
	switch v := msg.(type) {
	case sdk.PermissionsRequested:
		ev = v
	case *sdk.PermissionsRequested:
		if v == nil {
			b.malformed(sdk.ChannelPermissions, msg)
			return
		}
		ev = *v
	default:
		b.malformed(sdk.ChannelPermissions, msg)
		return
	}
	metrics.IncBridgeEvent(sdk.ChannelPermissions)

	if b.perms == nil {
		b.logger.Warn().Strs(xglog.FieldPermissions, ev.Permissions).Msg("no permission handler, ignoring request")
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		out, err := b.perms.Handle(ctx, ev.Permissions)
		logger := b.logger.With().Str(xglog.FieldFlowID, out.FlowID).Logger()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Err(err).Msg("permission flow abandoned")
				return
			}
			logger.Warn().Err(err).Msg("permission flow failed")
			return
		}
		b.apply(ctx, func(s *Snapshot, _ ErrorClearPolicy) {
			s.Permission = &out
		}, nil)
	}()
}

// apply mutates the snapshot and, if anything observable changed, publishes
// it on TopicSnapshot. It is a no-op after Stop.
func (b *Bridge) apply(ctx context.Context, mutate func(*Snapshot, ErrorClearPolicy), onApplied func()) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	before := b.snap
	next := b.snap
	mutate(&next, b.policy)
	changed := next.State != before.State || next.Error != before.Error || next.Permission != before.Permission
	if changed {
		next.Version = before.Version + 1
	}
	b.snap = next
	b.mu.Unlock()

	if onApplied != nil {
		onApplied()
	}
	if !changed {
		return
	}

	metrics.SetLifecycleState(sdk.MetricLabels(), next.State.MetricLabel())
	metrics.SetErrorActive(next.Error != "")

	if err := b.bus.Publish(ctx, sdk.TopicSnapshot, next); err != nil && ctx.Err() == nil {
		b.logger.Warn().Err(err).Msg("publish snapshot failed")
	}
}

func (b *Bridge) malformed(channel string, msg bus.Message) {
	metrics.IncBridgeMalformed(channel)
	b.logger.Warn().
		Str(xglog.FieldChannel, channel).
		Str("payload_type", fmt.Sprintf("%T", msg)).
		Msg("ignoring malformed sdk event")
}
