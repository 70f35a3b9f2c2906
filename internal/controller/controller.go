// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package controller is the only issuer of commands to the native SDK module.
package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tmbridge/internal/credential"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/ManuGH/tmbridge/internal/sdk"
	"github.com/ManuGH/tmbridge/internal/telemetry"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

// Controller forwards user intents to the native module. It does not gate
// commands on the lifecycle state; that is advisory and left to the UI.
type Controller struct {
	native sdk.NativeModule
	store  credential.Store
	tracer trace.Tracer
	logger zerolog.Logger
}

// New returns a controller issuing commands to native and reading the
// credential from store.
func New(native sdk.NativeModule, store credential.Store) *Controller {
	return &Controller{
		native: native,
		store:  store,
		tracer: telemetry.Tracer("tmbridge/controller"),
		logger: xglog.WithComponent("controller"),
	}
}

// Initialize replays the stored credential. With no credential stored it
// issues nothing and reports false. It is safe to call on every render; the
// native side tolerates repeated initialization.
func (c *Controller) Initialize(ctx context.Context) (bool, error) {
	key, err := c.store.Get(ctx)
	if err != nil {
		metrics.IncNativeCommand(sdk.CommandInitialize, outcomeFailure)
		return false, fmt.Errorf("read credential: %w", err)
	}
	if key == "" {
		metrics.IncNativeCommand(sdk.CommandInitialize, outcomeSkipped)
		return false, nil
	}
	if err := c.run(ctx, sdk.CommandInitialize, func(ctx context.Context) error {
		return c.native.InitializeSdk(ctx, key)
	}); err != nil {
		return false, err
	}
	return true, nil
}

// Activate handles a submitted credential. Input that is blank after trimming
// is ignored. Otherwise the input is persisted as entered and used to
// initialize the SDK. A persistence failure aborts before any native call.
func (c *Controller) Activate(ctx context.Context, input string) (bool, error) {
	if strings.TrimSpace(input) == "" {
		metrics.IncNativeCommand(sdk.CommandInitialize, outcomeSkipped)
		return false, nil
	}
	if err := c.store.Set(ctx, input); err != nil {
		metrics.IncNativeCommand(sdk.CommandInitialize, outcomeFailure)
		return false, fmt.Errorf("store credential: %w", err)
	}
	c.logger.Info().Int("key_len", len(input)).Msg("credential stored")

	if err := c.run(ctx, sdk.CommandInitialize, func(ctx context.Context) error {
		return c.native.InitializeSdk(ctx, input)
	}); err != nil {
		return false, err
	}
	return true, nil
}

// StartRecording forwards the start command.
func (c *Controller) StartRecording(ctx context.Context) error {
	return c.run(ctx, sdk.CommandStartRecording, c.native.StartRecording)
}

// StopRecording forwards the stop command.
func (c *Controller) StopRecording(ctx context.Context) error {
	return c.run(ctx, sdk.CommandStopRecording, c.native.StopRecording)
}

// LogMetadata forwards one metadata entry verbatim.
func (c *Controller) LogMetadata(ctx context.Context, key, value string) error {
	entry := sdk.MetadataEntry{Key: key, Value: value}
	return c.run(ctx, sdk.CommandLogMetadata, func(ctx context.Context) error {
		return c.native.LogMetadata(ctx, entry)
	})
}

func (c *Controller) run(ctx context.Context, command string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "sdk."+command, trace.WithAttributes(telemetry.CommandAttributes(command)...))
	defer span.End()

	logger := xglog.WithContext(ctx, c.logger).With().Str(xglog.FieldCommand, command).Logger()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes("native_command")...)
		metrics.IncNativeCommand(command, outcomeFailure)
		logger.Warn().Err(err).Msg("native command failed")
		return fmt.Errorf("%s: %w", command, err)
	}
	metrics.IncNativeCommand(command, outcomeSuccess)
	logger.Debug().Msg("native command issued")
	return nil
}
