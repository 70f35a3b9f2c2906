// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/controller"
	"github.com/ManuGH/tmbridge/internal/credential"
	"github.com/ManuGH/tmbridge/internal/native"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// countingNative counts commands on their way to the simulator.
type countingNative struct {
	*native.Simulator
	inits atomic.Int32
	stops atomic.Int32
}

func (c *countingNative) InitializeSdk(ctx context.Context, key string) error {
	c.inits.Add(1)
	return c.Simulator.InitializeSdk(ctx, key)
}

func (c *countingNative) StopRecording(ctx context.Context) error {
	c.stops.Add(1)
	return c.Simulator.StopRecording(ctx)
}

type harness struct {
	bus    *bus.MemoryBus
	sim    *native.Simulator
	native *countingNative
	store  *credential.MemoryStore
	bridge *bridge.Bridge
	pres   *Presenter

	cancel context.CancelFunc
	group  *errgroup.Group
}

func newHarness(t *testing.T, cfg native.SimulatorConfig) *harness {
	t.Helper()
	b := bus.NewMemoryBus()
	sim := native.NewSimulator(cfg, b)
	counting := &countingNative{Simulator: sim}
	store := credential.NewMemoryStore()
	prompts := NewPromptBroker()

	br := bridge.New(b, permission.NewCoordinator(sim, prompts), bridge.ClearOnStateChange)
	ctl := controller.New(counting, store)
	pres := NewPresenter(b, br, ctl, store, prompts)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, br.Start(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx) })
	g.Go(func() error { return pres.Run(gctx) })

	h := &harness{bus: b, sim: sim, native: counting, store: store, bridge: br, pres: pres, cancel: cancel, group: g}
	require.Eventually(t, func() bool { return pres.Renders() > 0 }, time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) close(t *testing.T) {
	t.Helper()
	h.cancel()
	h.bridge.Stop()
	require.NoError(t, h.group.Wait())
}

func (h *harness) eventually(t *testing.T, cond func(View) bool) View {
	t.Helper()
	var last View
	require.Eventually(t, func() bool {
		last = h.pres.View()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func quietConfig() native.SimulatorConfig {
	cfg := native.DefaultSimulatorConfig()
	cfg.Permissions = nil
	return cfg
}

func TestCredentialEntryActivatesSdk(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, quietConfig())
	defer h.close(t)

	v := h.pres.View()
	assert.True(t, v.ShowCredentialEntry)
	assert.False(t, v.ShowStart)
	assert.Zero(t, h.native.inits.Load(), "no credential means no initialize")

	require.NoError(t, h.pres.SubmitCredential(context.Background(), "abc123"))

	stored, err := h.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", stored)
	assert.Equal(t, "abc123", h.sim.APIKey())

	v = h.eventually(t, func(v View) bool { return v.State == sdk.StateInitialized })
	assert.Equal(t, "SDK status: INITIALIZED", v.Status)
	assert.False(t, v.ShowCredentialEntry)
	assert.True(t, v.ShowStart)
	assert.False(t, v.ShowStop)
	assert.True(t, v.ShowMetadataForm)
}

func TestStoredCredentialInitializesOnEveryRender(t *testing.T) {
	h := newHarness(t, quietConfig())
	defer h.close(t)
	ctx := context.Background()

	require.NoError(t, h.store.Set(ctx, "abc123"))
	_, err := h.pres.Render(ctx)
	require.NoError(t, err)
	h.eventually(t, func(v View) bool { return v.State == sdk.StateInitialized })

	before := h.native.inits.Load()
	require.NoError(t, h.bus.Publish(ctx, sdk.TopicEvents, sdk.ErrorReported{Error: "E1:first"}))
	h.eventually(t, func(v View) bool { return v.ErrorBanner == "Error: E1:first" })

	assert.Greater(t, h.native.inits.Load(), before)
	assert.Equal(t, sdk.StateInitialized, h.sim.State(), "repeated initialize is harmless")
}

func TestStopIsIssuedOnceWhileRecording(t *testing.T) {
	h := newHarness(t, quietConfig())
	defer h.close(t)
	ctx := context.Background()

	require.NoError(t, h.pres.SubmitCredential(ctx, "abc123"))
	h.eventually(t, func(v View) bool { return v.ShowStart })
	require.NoError(t, h.pres.Start(ctx))

	v := h.eventually(t, func(v View) bool { return v.State == sdk.StateRecordingInProgress })
	assert.True(t, v.ShowStop)
	assert.False(t, v.ShowStart)

	require.NoError(t, h.pres.Stop(ctx))
	h.eventually(t, func(v View) bool { return v.State == sdk.StateRecordingStopped })
	assert.Equal(t, int32(1), h.native.stops.Load())

	require.ErrorIs(t, h.pres.Stop(ctx), ErrActionUnavailable)
	assert.Equal(t, int32(1), h.native.stops.Load())
}

func TestErrorBannerScenario(t *testing.T) {
	h := newHarness(t, quietConfig())
	defer h.close(t)
	ctx := context.Background()

	require.NoError(t, h.bus.Publish(ctx, sdk.TopicEvents, sdk.ErrorReported{Error: "network timeout"}))
	v := h.eventually(t, func(v View) bool { return v.ErrorBanner != "" })
	assert.Equal(t, "Error: network timeout", v.ErrorBanner)

	require.NoError(t, h.bus.Publish(ctx, sdk.TopicEvents, sdk.StateChanged{NewState: sdk.StateInitialized}))
	v = h.eventually(t, func(v View) bool { return v.State == sdk.StateInitialized })
	assert.Empty(t, v.ErrorBanner, "a state change clears the banner")
}

func TestUnknownStateOffersNoActions(t *testing.T) {
	h := newHarness(t, quietConfig())
	defer h.close(t)
	ctx := context.Background()

	require.NoError(t, h.store.Set(ctx, "abc123"))
	require.NoError(t, h.bus.Publish(ctx, sdk.TopicEvents, sdk.StateChanged{NewState: "CALIBRATING"}))
	v := h.eventually(t, func(v View) bool { return v.State == "CALIBRATING" })
	assert.Equal(t, "SDK status: CALIBRATING", v.Status)
	assert.False(t, v.ShowStart)
	assert.False(t, v.ShowStop)
	require.ErrorIs(t, h.pres.Start(ctx), ErrActionUnavailable)
}

func TestInvalidInputIsRejectedLocally(t *testing.T) {
	h := newHarness(t, quietConfig())
	defer h.close(t)
	ctx := context.Background()

	require.ErrorIs(t, h.pres.SubmitCredential(ctx, "   "), ErrInvalidInput)
	stored, _ := h.store.Get(ctx)
	assert.Empty(t, stored)
	assert.Zero(t, h.native.inits.Load())

	require.NoError(t, h.pres.SubmitCredential(ctx, "abc123"))
	h.eventually(t, func(v View) bool { return v.ShowMetadataForm && v.State == sdk.StateInitialized })

	require.ErrorIs(t, h.pres.SubmitMetadata(ctx, "trip", " "), ErrInvalidInput)
	require.ErrorIs(t, h.pres.SubmitMetadata(ctx, "", "42"), ErrInvalidInput)
	assert.Empty(t, h.sim.Metadata())

	require.NoError(t, h.pres.SubmitMetadata(ctx, "trip", "42"))
	assert.Equal(t, []sdk.MetadataEntry{{Key: "trip", Value: "42"}}, h.sim.Metadata())
}

func TestBackgroundLocationPromptFlow(t *testing.T) {
	cfg := native.DefaultSimulatorConfig()
	cfg.Permissions = []string{
		string(permission.AccessFineLocation),
		string(permission.AccessBackgroundLocation),
	}
	h := newHarness(t, cfg)
	defer h.close(t)
	ctx := context.Background()

	require.NoError(t, h.pres.SubmitCredential(ctx, "abc123"))

	v := h.eventually(t, func(v View) bool { return len(v.Prompts) == 1 })
	assert.Equal(t, "Open Settings", v.Prompts[0].ConfirmLabel)

	// The SDK keeps working while the dialog is open.
	assert.Equal(t, sdk.StateInitialized, v.State)

	require.NoError(t, h.pres.Prompts().Answer(v.Prompts[0].ID, true))
	v = h.eventually(t, func(v View) bool { return v.Permission != nil })
	assert.Equal(t, permission.EscalationRequested, v.Permission.Escalation)
	assert.Empty(t, v.Prompts)

	reqs := h.sim.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []permission.Permission{permission.AccessFineLocation}, reqs[0])
	assert.Equal(t, []permission.Permission{permission.AccessBackgroundLocation}, reqs[1])
}
