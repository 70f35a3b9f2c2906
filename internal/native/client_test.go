// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package native

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

func testConfig() Config {
	cfg := DefaultConfig("pipe", "test")
	cfg.RequestTimeout = 2 * time.Second
	cfg.RedialInterval = 10 * time.Millisecond
	return cfg
}

// pipeClient returns a client whose first dial yields the bridge end of a
// pipe, and the helper end for the test to drive.
func pipeClient(t *testing.T, b bus.Bus) (*Client, *frameConn, context.CancelFunc, <-chan error) {
	t.Helper()
	bridgeEnd, helperEnd := net.Pipe()

	c := NewClient(testConfig(), b)
	var dials atomic.Int32
	c.dial = func(ctx context.Context) (net.Conn, error) {
		if dials.Add(1) == 1 {
			return bridgeEnd, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, c.Connected, time.Second, 5*time.Millisecond)
	return c, newFrameConn(helperEnd, time.Second), cancel, done
}

func waitMessage(t *testing.T, sub bus.Subscriber) bus.Message {
	t.Helper()
	select {
	case msg := <-sub.C():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bus message")
		return nil
	}
}

func TestClientPublishesEventsAndSkipsGarbage(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	events, err := b.Subscribe(context.Background(), sdk.TopicEvents)
	require.NoError(t, err)
	defer events.Close()

	_, helper, cancel, done := pipeClient(t, b)

	_, err = helper.conn.Write([]byte("not json\n"))
	require.NoError(t, err)
	require.NoError(t, helper.write(Frame{Event: "SDK_UNKNOWN", Payload: json.RawMessage(`{}`)}))
	ev, err := NewEvent(sdk.ChannelState, sdk.StateChanged{NewState: sdk.StateInitialized})
	require.NoError(t, err)
	require.NoError(t, helper.write(ev))
	ev, err = NewEvent(sdk.ChannelError, sdk.ErrorReported{Error: "NETWORK:timeout"})
	require.NoError(t, err)
	require.NoError(t, helper.write(ev))

	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateInitialized}, waitMessage(t, events))
	assert.Equal(t, sdk.ErrorReported{Error: "NETWORK:timeout"}, waitMessage(t, events), "wire order is kept across channels")

	cancel()
	require.NoError(t, <-done)
	_ = helper.close()
}

func TestClientCommandsAreFireAndForget(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c, helper, cancel, done := pipeClient(t, bus.NewMemoryBus())

	go func() {
		_ = c.InitializeSdk(context.Background(), "abc123")
		_ = c.LogMetadata(context.Background(), sdk.MetadataEntry{Key: "k", Value: "v"})
	}()

	f, err := helper.read()
	require.NoError(t, err)
	assert.Equal(t, FrameCommand, f.Kind())
	assert.Equal(t, sdk.CommandInitialize, f.Method)
	assert.JSONEq(t, `{"apiKey":"abc123"}`, string(f.Params))
	assert.NotEmpty(t, f.ID)

	f, err = helper.read()
	require.NoError(t, err)
	assert.Equal(t, sdk.CommandLogMetadata, f.Method)
	assert.JSONEq(t, `{"key":"k","value":"v"}`, string(f.Params))

	cancel()
	require.NoError(t, <-done)
	_ = helper.close()
}

func TestClientRequestMultipleCorrelatesReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c, helper, cancel, done := pipeClient(t, bus.NewMemoryBus())

	go func() {
		f, err := helper.read()
		if err != nil {
			return
		}
		// An unrelated reply first, then the real one.
		_ = helper.write(Frame{ID: "someone-else", Result: json.RawMessage(`{}`)})
		reply, _ := NewReply(f.ID, map[string]any{"results": map[string]any{
			string(permission.AccessFineLocation):   true,
			string(permission.AccessCoarseLocation): "denied",
		}}, nil)
		_ = helper.write(reply)
	}()

	res, err := c.RequestMultiple(context.Background(), []permission.Permission{
		permission.AccessFineLocation, permission.AccessCoarseLocation,
	})
	require.NoError(t, err)
	assert.Equal(t, true, res[permission.AccessFineLocation])
	assert.Equal(t, "denied", res[permission.AccessCoarseLocation])

	cancel()
	require.NoError(t, <-done)
	_ = helper.close()
}

func TestClientRequestReturnsRemoteError(t *testing.T) {
	c, helper, cancel, done := pipeClient(t, bus.NewMemoryBus())
	defer func() {
		cancel()
		<-done
		_ = helper.close()
	}()

	go func() {
		f, err := helper.read()
		if err != nil {
			return
		}
		reply, _ := NewReply(f.ID, nil, assert.AnError)
		_ = helper.write(reply)
	}()

	_, err := c.Request(context.Background(), permission.AccessBackgroundLocation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), assert.AnError.Error())
}

func TestClientConnectionLossFailsPendingRequest(t *testing.T) {
	c, helper, cancel, done := pipeClient(t, bus.NewMemoryBus())
	defer func() {
		cancel()
		<-done
	}()

	go func() {
		_, _ = helper.read()
		_ = helper.close()
	}()

	_, err := c.RequestMultiple(context.Background(), nil)
	require.ErrorIs(t, err, ErrConnectionLost)
	assert.Eventually(t, func() bool { return !c.Connected() }, time.Second, 5*time.Millisecond)
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient(testConfig(), bus.NewMemoryBus())
	require.ErrorIs(t, c.StartRecording(context.Background()), ErrNotConnected)
	_, err := c.RequestMultiple(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClientRedialsAfterLoss(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewClient(testConfig(), bus.NewMemoryBus())
	var dials atomic.Int32
	helpers := make(chan net.Conn, 4)
	c.dial = func(ctx context.Context) (net.Conn, error) {
		dials.Add(1)
		a, b := net.Pipe()
		helpers <- b
		return a, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	first := <-helpers
	require.NoError(t, first.Close())
	second := <-helpers
	require.Eventually(t, c.Connected, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, dials.Load(), int32(2))

	cancel()
	require.NoError(t, <-done)
	_ = second.Close()
	for len(helpers) > 0 {
		_ = (<-helpers).Close()
	}
}

func TestClientAgainstSimulatedHelper(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	events, err := b.Subscribe(context.Background(), sdk.TopicEvents)
	require.NoError(t, err)
	defer events.Close()

	srv := NewServer(DefaultSimulatorConfig())
	bridgeEnd, helperEnd := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	simDone := make(chan error, 1)
	go func() { simDone <- srv.Simulator().Run(ctx) }()
	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.ServeConn(ctx, helperEnd) }()

	c := NewClient(testConfig(), b)
	var dials atomic.Int32
	c.dial = func(ctx context.Context) (net.Conn, error) {
		if dials.Add(1) == 1 {
			return bridgeEnd, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()
	require.Eventually(t, c.Connected, time.Second, 5*time.Millisecond)

	require.NoError(t, c.InitializeSdk(ctx, "abc123"))
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateInitialized}, waitMessage(t, events))
	req, ok := waitMessage(t, events).(sdk.PermissionsRequested)
	require.True(t, ok)
	assert.Contains(t, req.Permissions, string(permission.AccessBackgroundLocation))

	res, err := c.RequestMultiple(ctx, []permission.Permission{permission.AccessFineLocation})
	require.NoError(t, err)
	assert.Equal(t, permission.GrantGranted, res[permission.AccessFineLocation])

	bg, err := c.Request(ctx, permission.AccessBackgroundLocation)
	require.NoError(t, err)
	assert.Equal(t, permission.GrantGranted, bg)

	require.NoError(t, c.StartRecording(ctx))
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateRecordingInProgress}, waitMessage(t, events))
	assert.Equal(t, "abc123", srv.Simulator().APIKey())

	cancel()
	require.NoError(t, <-runDone)
	require.NoError(t, <-srvDone)
	require.NoError(t, <-simDone)
}
