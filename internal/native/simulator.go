// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package native

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tmbridge/internal/bus"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// Publisher receives simulator events. *bus.MemoryBus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg bus.Message) error
}

// SimulatorConfig shapes simulated SDK and OS behaviour.
type SimulatorConfig struct {
	// Permissions is sent on SDK_PERMISSIONS after the first initialization.
	Permissions []string
	// Grants answers foreground requests per token; missing tokens are
	// answered with DefaultGrant.
	Grants       permission.Results
	DefaultGrant any
	// BackgroundGrant answers the background-location request.
	BackgroundGrant any
}

// DefaultSimulatorConfig asks for every permission the SDK knows and grants
// them.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Permissions: []string{
			string(permission.ReadPhoneState),
			string(permission.ActivityRecognition),
			string(permission.AccessCoarseLocation),
			string(permission.AccessFineLocation),
			string(permission.AccessBackgroundLocation),
		},
		DefaultGrant:    permission.GrantGranted,
		BackgroundGrant: permission.GrantGranted,
	}
}

// Simulator stands in for the native SDK and the OS permission layer. Events
// are queued by commands and published in order by Run.
type Simulator struct {
	cfg    SimulatorConfig
	pub    Publisher
	logger zerolog.Logger

	mu       sync.Mutex
	state    sdk.LifecycleState
	apiKey   string
	metadata []sdk.MetadataEntry
	requests [][]permission.Permission

	events chan bus.Message
}

// NewSimulator returns a simulator publishing to pub.
func NewSimulator(cfg SimulatorConfig, pub Publisher) *Simulator {
	return &Simulator{
		cfg:    cfg,
		pub:    pub,
		state:  sdk.StateUninitialized,
		logger: xglog.WithComponent("simulator"),
		events: make(chan bus.Message, 256),
	}
}

// Run publishes queued events until ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.events:
			if err := s.pub.Publish(ctx, sdk.TopicEvents, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				channel, _ := sdk.ChannelOf(msg)
				s.logger.Warn().Err(err).Str(xglog.FieldEvent, channel).Msg("publish simulated event failed")
			}
		}
	}
}

func (s *Simulator) emit(ctx context.Context, msg bus.Message) error {
	select {
	case s.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition moves to next and queues the state event. Caller holds mu.
func (s *Simulator) transition(ctx context.Context, next sdk.LifecycleState) error {
	s.state = next
	return s.emit(ctx, sdk.StateChanged{NewState: next})
}

func (s *Simulator) InitializeSdk(ctx context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiKey == "" {
		return s.emit(ctx, sdk.ErrorReported{Error: "INVALID_API_KEY:api key is empty"})
	}
	if s.state.Kind() != sdk.KindUninitialized {
		// Repeated initialization is tolerated and silent.
		return nil
	}
	s.apiKey = apiKey
	if err := s.transition(ctx, sdk.StateInitialized); err != nil {
		return err
	}
	if len(s.cfg.Permissions) > 0 {
		perms := append([]string(nil), s.cfg.Permissions...)
		return s.emit(ctx, sdk.PermissionsRequested{Permissions: perms})
	}
	return nil
}

func (s *Simulator) StartRecording(ctx context.Context) error {
	return s.command(ctx, sdk.CommandStartRecording)
}

func (s *Simulator) StopRecording(ctx context.Context) error {
	return s.command(ctx, sdk.CommandStopRecording)
}

func (s *Simulator) command(ctx context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := sdk.Next(s.state, command)
	if !ok {
		return s.emit(ctx, sdk.ErrorReported{
			Error: "INVALID_STATE:" + command + " not allowed in " + string(s.state),
		})
	}
	return s.transition(ctx, next)
}

func (s *Simulator) LogMetadata(ctx context.Context, entry sdk.MetadataEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Kind() == sdk.KindUninitialized {
		return s.emit(ctx, sdk.ErrorReported{Error: "NOT_INITIALIZED:sdk is not initialized"})
	}
	s.metadata = append(s.metadata, entry)
	return nil
}

func (s *Simulator) RequestMultiple(ctx context.Context, tokens []permission.Permission) (permission.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, append([]permission.Permission(nil), tokens...))
	res := make(permission.Results, len(tokens))
	for _, t := range tokens {
		if g, ok := s.cfg.Grants[t]; ok {
			res[t] = g
			continue
		}
		res[t] = s.cfg.DefaultGrant
	}
	return res, nil
}

func (s *Simulator) Request(ctx context.Context, token permission.Permission) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, []permission.Permission{token})
	if token == permission.AccessBackgroundLocation {
		return s.cfg.BackgroundGrant, nil
	}
	if g, ok := s.cfg.Grants[token]; ok {
		return g, nil
	}
	if token == "" {
		return nil, errors.New("empty permission token")
	}
	return s.cfg.DefaultGrant, nil
}

// State returns the simulated lifecycle state.
func (s *Simulator) State() sdk.LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// APIKey returns the key the simulator was initialized with.
func (s *Simulator) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// Metadata returns the logged metadata entries.
func (s *Simulator) Metadata() []sdk.MetadataEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sdk.MetadataEntry(nil), s.metadata...)
}

// Requests returns every OS permission request in order.
func (s *Simulator) Requests() [][]permission.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]permission.Permission, len(s.requests))
	copy(out, s.requests)
	return out
}

var (
	_ sdk.NativeModule = (*Simulator)(nil)
	_ permission.OS    = (*Simulator)(nil)
)
