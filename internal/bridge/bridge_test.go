// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

type handlerFunc func(ctx context.Context, ids []string) (permission.Outcome, error)

func (f handlerFunc) Handle(ctx context.Context, ids []string) (permission.Outcome, error) {
	return f(ctx, ids)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func startBridge(t *testing.T, perms PermissionHandler, policy ErrorClearPolicy) (*Bridge, *bus.MemoryBus, bus.Subscriber) {
	t.Helper()
	b := bus.NewMemoryBus()
	snaps, err := b.Subscribe(context.Background(), sdk.TopicSnapshot)
	require.NoError(t, err)

	br := New(b, perms, policy)
	require.NoError(t, br.Start(context.Background()))
	t.Cleanup(func() {
		br.Stop()
		_ = snaps.Close()
	})
	return br, b, snaps
}

func nextSnapshot(t *testing.T, sub bus.Subscriber) Snapshot {
	t.Helper()
	select {
	case msg := <-sub.C():
		snap, ok := msg.(Snapshot)
		require.True(t, ok, "unexpected snapshot message %T", msg)
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func publish(t *testing.T, b bus.Bus, msg bus.Message) {
	t.Helper()
	require.NoError(t, b.Publish(context.Background(), sdk.TopicEvents, msg))
}

func TestBridgeInitialSnapshotIsUninitialized(t *testing.T) {
	br := New(bus.NewMemoryBus(), nil, "")
	snap := br.Snapshot()
	assert.Equal(t, sdk.KindUninitialized, snap.Kind())
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.Permission)
	assert.Equal(t, ClearOnStateChange, br.policy)
}

func TestBridgeStateEventsApplyInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	br, b, snaps := startBridge(t, nil, ClearOnStateChange)
	defer br.Stop()

	states := []sdk.LifecycleState{
		sdk.StateInitialized,
		sdk.StateRecordingInProgress,
		sdk.StateRecordingStopped,
		sdk.StateRecordingInProgress,
	}
	for _, s := range states {
		publish(t, b, sdk.StateChanged{NewState: s})
	}

	var got []sdk.LifecycleState
	for range states {
		got = append(got, nextSnapshot(t, snaps).State)
	}
	if diff := cmp.Diff(states, got); diff != "" {
		t.Fatalf("applied states mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, sdk.StateRecordingInProgress, br.Snapshot().State)
	assert.Equal(t, uint64(len(states)), br.Snapshot().Version)
}

func TestBridgeRepeatedStateDoesNotRepublish(t *testing.T) {
	br, b, snaps := startBridge(t, nil, ClearOnStateChange)

	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	publish(t, b, &sdk.StateChanged{NewState: sdk.StateInitialized})
	publish(t, b, sdk.StateChanged{NewState: sdk.StateRecordingInProgress})

	first := nextSnapshot(t, snaps)
	second := nextSnapshot(t, snaps)
	assert.Equal(t, sdk.StateInitialized, first.State)
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, sdk.StateRecordingInProgress, second.State)
	assert.Equal(t, uint64(2), second.Version)
	assert.Equal(t, uint64(2), br.Snapshot().Version)
}

func TestBridgeUnknownStatePassesThrough(t *testing.T) {
	_, b, snaps := startBridge(t, nil, ClearOnStateChange)

	publish(t, b, sdk.StateChanged{NewState: "CALIBRATING"})
	snap := nextSnapshot(t, snaps)
	assert.Equal(t, sdk.LifecycleState("CALIBRATING"), snap.State)
	assert.Equal(t, sdk.KindUnknown, snap.Kind())
	assert.Empty(t, snap.Allowed())
}

func TestBridgeErrorBannerClearsOnNextState(t *testing.T) {
	br, b, snaps := startBridge(t, nil, ClearOnStateChange)

	publish(t, b, sdk.ErrorReported{Error: "network timeout"})
	snap := nextSnapshot(t, snaps)
	assert.Equal(t, "network timeout", snap.Error)
	assert.Equal(t, sdk.KindUninitialized, snap.Kind(), "an error does not reset the lifecycle state")

	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	snap = nextSnapshot(t, snaps)
	assert.Equal(t, sdk.StateInitialized, snap.State)
	assert.Empty(t, snap.Error)
	assert.Empty(t, br.Snapshot().Error)
}

func TestBridgeErrorBannerPersistsWithClearNever(t *testing.T) {
	_, b, snaps := startBridge(t, nil, ClearNever)

	publish(t, b, sdk.ErrorReported{Error: "network timeout"})
	require.Equal(t, "network timeout", nextSnapshot(t, snaps).Error)

	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	snap := nextSnapshot(t, snaps)
	assert.Equal(t, sdk.StateInitialized, snap.State)
	assert.Equal(t, "network timeout", snap.Error)

	publish(t, b, sdk.ErrorReported{Error: "E42:quota exceeded"})
	assert.Equal(t, "E42:quota exceeded", nextSnapshot(t, snaps).Error, "last error wins")
}

func TestBridgeSetErrorPolicyAppliesToLaterEvents(t *testing.T) {
	br, b, snaps := startBridge(t, nil, ClearNever)

	publish(t, b, sdk.ErrorReported{Error: "boom"})
	nextSnapshot(t, snaps)

	br.SetErrorPolicy(ClearOnStateChange)
	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	assert.Empty(t, nextSnapshot(t, snaps).Error)
}

func TestBridgeSkipsMalformedEvents(t *testing.T) {
	stateBefore := counterValue(t, metrics.BridgeMalformedTotal.WithLabelValues(sdk.ChannelState))
	unknownBefore := counterValue(t, metrics.BridgeMalformedTotal.WithLabelValues(channelUnknown))

	_, b, snaps := startBridge(t, nil, ClearOnStateChange)

	publish(t, b, "INITIALIZED")
	publish(t, b, (*sdk.StateChanged)(nil))
	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})

	assert.Equal(t, sdk.StateInitialized, nextSnapshot(t, snaps).State)
	assert.Equal(t, 1.0, counterValue(t, metrics.BridgeMalformedTotal.WithLabelValues(sdk.ChannelState))-stateBefore)
	assert.Equal(t, 1.0, counterValue(t, metrics.BridgeMalformedTotal.WithLabelValues(channelUnknown))-unknownBefore)
}

func TestBridgeKeepsOrderAcrossChannels(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for i := 0; i < 100; i++ {
		b := bus.NewMemoryBus()
		snaps, err := b.Subscribe(context.Background(), sdk.TopicSnapshot)
		require.NoError(t, err)
		br := New(b, nil, ClearOnStateChange)
		require.NoError(t, br.Start(context.Background()))

		// Queued back to back on the shared topic.
		publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
		publish(t, b, sdk.ErrorReported{Error: "network timeout"})

		first := nextSnapshot(t, snaps)
		second := nextSnapshot(t, snaps)
		assert.Equal(t, sdk.StateInitialized, first.State)
		assert.Empty(t, first.Error)
		assert.Equal(t, sdk.StateInitialized, second.State)
		require.Equal(t, "network timeout", second.Error, "run %d: error emitted after the state change was cleared", i)

		br.Stop()
		_ = snaps.Close()
	}
}

func TestBridgeErrorThenStateClearsInOrder(t *testing.T) {
	_, b, snaps := startBridge(t, nil, ClearOnStateChange)

	publish(t, b, sdk.ErrorReported{Error: "E1:first"})
	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	publish(t, b, sdk.ErrorReported{Error: "E2:second"})

	assert.Equal(t, "E1:first", nextSnapshot(t, snaps).Error)
	snap := nextSnapshot(t, snaps)
	assert.Equal(t, sdk.StateInitialized, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "E2:second", nextSnapshot(t, snaps).Error)
}

func TestBridgePermissionFlowDoesNotBlockStateEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	var gotIDs []string
	perms := handlerFunc(func(ctx context.Context, ids []string) (permission.Outcome, error) {
		gotIDs = ids
		<-release
		return permission.Outcome{FlowID: "flow-1", Escalation: permission.EscalationNotNeeded}, nil
	})
	br, b, snaps := startBridge(t, perms, ClearOnStateChange)
	defer br.Stop()

	publish(t, b, sdk.PermissionsRequested{
		Permissions: []string{"android.permission.ACCESS_FINE_LOCATION"},
	})
	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	assert.Equal(t, sdk.StateInitialized, nextSnapshot(t, snaps).State)

	close(release)
	snap := nextSnapshot(t, snaps)
	require.NotNil(t, snap.Permission)
	assert.Equal(t, "flow-1", snap.Permission.FlowID)
	assert.Equal(t, []string{"android.permission.ACCESS_FINE_LOCATION"}, gotIDs)
	assert.Equal(t, sdk.StateInitialized, br.Snapshot().State)
}

func TestBridgeStopMakesLateFlowResultsNoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entered := make(chan struct{})
	perms := handlerFunc(func(ctx context.Context, ids []string) (permission.Outcome, error) {
		close(entered)
		<-ctx.Done()
		// Resolve after teardown as if the OS answered late.
		return permission.Outcome{FlowID: "late", Escalation: permission.EscalationRequested}, nil
	})

	b := bus.NewMemoryBus()
	br := New(b, perms, ClearOnStateChange)
	require.NoError(t, br.Start(context.Background()))

	publish(t, b, sdk.PermissionsRequested{Permissions: []string{"android.permission.ACCESS_FINE_LOCATION"}})
	<-entered

	br.Stop()
	assert.Nil(t, br.Snapshot().Permission)

	// Publishing after Stop reaches nobody and changes nothing.
	publish(t, b, sdk.StateChanged{NewState: sdk.StateInitialized})
	assert.Equal(t, sdk.LifecycleState(""), br.Snapshot().State)

	br.Stop()
}

func TestBridgeStartTwiceAndAfterStop(t *testing.T) {
	b := bus.NewMemoryBus()
	br := New(b, nil, "")
	require.NoError(t, br.Start(context.Background()))
	require.ErrorIs(t, br.Start(context.Background()), ErrAlreadyStarted)
	br.Stop()
	require.ErrorIs(t, br.Start(context.Background()), ErrStopped)
}

func TestBridgeStartFailsOnClosedBus(t *testing.T) {
	b := bus.NewMemoryBus()
	require.NoError(t, b.Close())
	br := New(b, nil, "")
	require.ErrorIs(t, br.Start(context.Background()), bus.ErrClosed)
}

func TestBridgeConcurrentReaders(t *testing.T) {
	br, b, snaps := startBridge(t, nil, ClearOnStateChange)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = br.Snapshot()
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		s := sdk.StateRecordingInProgress
		if i%2 == 1 {
			s = sdk.StateRecordingStopped
		}
		publish(t, b, sdk.StateChanged{NewState: s})
		nextSnapshot(t, snaps)
	}
	close(stop)
	wg.Wait()

	want := Snapshot{Version: 20, State: sdk.StateRecordingStopped}
	if diff := cmp.Diff(want, br.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrorClearPolicy(t *testing.T) {
	p, err := ParseErrorClearPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ClearOnStateChange, p)

	p, err = ParseErrorClearPolicy("never")
	require.NoError(t, err)
	assert.Equal(t, ClearNever, p)

	_, err = ParseErrorClearPolicy("sometimes")
	require.Error(t, err)
}
