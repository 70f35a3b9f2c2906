// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package native

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

type recorder struct {
	events   []bus.Message
	channels []string
}

func (r *recorder) Publish(_ context.Context, topic string, msg bus.Message) error {
	if topic != sdk.TopicEvents {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	channel, _ := sdk.ChannelOf(msg)
	r.channels = append(r.channels, channel)
	r.events = append(r.events, msg)
	return nil
}

// drain publishes everything queued so far.
func drain(t *testing.T, s *Simulator) {
	t.Helper()
	for {
		select {
		case msg := <-s.events:
			require.NoError(t, s.pub.Publish(context.Background(), sdk.TopicEvents, msg))
		default:
			return
		}
	}
}

func TestSimulatorInitializeIsIdempotent(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultSimulatorConfig()
	cfg.Permissions = []string{string(permission.AccessFineLocation)}
	s := NewSimulator(cfg, rec)
	ctx := context.Background()

	require.NoError(t, s.InitializeSdk(ctx, "abc123"))
	require.NoError(t, s.InitializeSdk(ctx, "abc123"))
	require.NoError(t, s.InitializeSdk(ctx, "abc123"))
	drain(t, s)

	assert.Equal(t, []string{sdk.ChannelState, sdk.ChannelPermissions}, rec.channels)
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateInitialized}, rec.events[0])
	assert.Equal(t, sdk.StateInitialized, s.State())
}

func TestSimulatorEmptyKeyReportsError(t *testing.T) {
	rec := &recorder{}
	s := NewSimulator(DefaultSimulatorConfig(), rec)
	require.NoError(t, s.InitializeSdk(context.Background(), ""))
	drain(t, s)

	require.Len(t, rec.events, 1)
	assert.Equal(t, sdk.ChannelError, rec.channels[0])
	assert.Equal(t, sdk.StateUninitialized, s.State())
}

func TestSimulatorRecordingCycle(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultSimulatorConfig()
	cfg.Permissions = nil
	s := NewSimulator(cfg, rec)
	ctx := context.Background()

	require.NoError(t, s.StartRecording(ctx))
	require.NoError(t, s.InitializeSdk(ctx, "k"))
	require.NoError(t, s.StartRecording(ctx))
	require.NoError(t, s.StopRecording(ctx))
	require.NoError(t, s.StartRecording(ctx))
	drain(t, s)

	require.Len(t, rec.events, 5)
	assert.Equal(t, sdk.ChannelError, rec.channels[0], "start before initialize is rejected by the sdk")
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateInitialized}, rec.events[1])
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateRecordingInProgress}, rec.events[2])
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateRecordingStopped}, rec.events[3])
	assert.Equal(t, sdk.StateChanged{NewState: sdk.StateRecordingInProgress}, rec.events[4])
}

func TestSimulatorMetadataNeedsInitialization(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultSimulatorConfig()
	cfg.Permissions = nil
	s := NewSimulator(cfg, rec)
	ctx := context.Background()
	entry := sdk.MetadataEntry{Key: "trip", Value: "1"}

	require.NoError(t, s.LogMetadata(ctx, entry))
	assert.Empty(t, s.Metadata())

	require.NoError(t, s.InitializeSdk(ctx, "k"))
	require.NoError(t, s.LogMetadata(ctx, entry))
	assert.Equal(t, []sdk.MetadataEntry{entry}, s.Metadata())
}

func TestSimulatorGrants(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Grants = permission.Results{permission.AccessCoarseLocation: true}
	cfg.BackgroundGrant = permission.GrantDenied
	s := NewSimulator(cfg, &recorder{})
	ctx := context.Background()

	res, err := s.RequestMultiple(ctx, []permission.Permission{permission.AccessCoarseLocation, permission.ReadPhoneState})
	require.NoError(t, err)
	assert.Equal(t, true, res[permission.AccessCoarseLocation])
	assert.Equal(t, permission.GrantGranted, res[permission.ReadPhoneState])

	bg, err := s.Request(ctx, permission.AccessBackgroundLocation)
	require.NoError(t, err)
	assert.Equal(t, permission.GrantDenied, bg)

	assert.Len(t, s.Requests(), 2)
}
