// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/ManuGH/tmbridge/internal/telemetry"
)

// OS is the request/response surface of the OS permission subsystem.
type OS interface {
	// RequestMultiple asks for all tokens in one batch and reports a result
	// per token. An empty batch is valid.
	RequestMultiple(ctx context.Context, tokens []Permission) (Results, error)
	// Request asks for a single token.
	Request(ctx context.Context, token Permission) (any, error)
}

// Escalation is the outcome of the background-location step.
type Escalation string

const (
	EscalationNotNeeded Escalation = "not_needed"
	EscalationDeclined  Escalation = "declined"
	EscalationRequested Escalation = "requested"
	EscalationAborted   Escalation = "aborted"
)

// Outcome summarises one permission flow.
type Outcome struct {
	FlowID     string       `json:"flowId"`
	Requested  []Permission `json:"requested"`
	Unmapped   []string     `json:"unmapped,omitempty"`
	Results    Results      `json:"results,omitempty"`
	Escalation Escalation   `json:"escalation"`
	// IncludesLocation is set when the SDK asked for any location access.
	IncludesLocation bool `json:"includesLocation"`
	// Background is the raw result of the background-location request.
	Background any `json:"background,omitempty"`
}

// Coordinator runs permission flows. OS requests take the single dialog slot;
// the in-app confirmation does not, so an unanswered prompt never holds back
// later flows.
type Coordinator struct {
	os       OS
	prompter Prompter
	sem      *semaphore.Weighted
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewCoordinator returns a coordinator. A nil prompter declines every
// escalation.
func NewCoordinator(os OS, prompter Prompter) *Coordinator {
	if prompter == nil {
		prompter = DeclineAll{}
	}
	return &Coordinator{
		os:       os,
		prompter: prompter,
		sem:      semaphore.NewWeighted(1),
		tracer:   telemetry.Tracer("tmbridge/permission"),
		logger:   xglog.WithComponent("permission"),
	}
}

// Handle requests the mapped subset of identifiers and, when location access
// came back in the eligible shape, offers the background-location escalation.
// Denials are outcomes, not errors. Errors are returned for OS failures and
// for cancellation of ctx, in which case the flow stops where it is.
func (c *Coordinator) Handle(ctx context.Context, identifiers []string) (out Outcome, err error) {
	start := time.Now()
	out.FlowID = uuid.NewString()
	ctx = xglog.ContextWithFlowID(ctx, out.FlowID)
	logger := xglog.WithContext(ctx, c.logger)

	ctx, span := c.tracer.Start(ctx, "permission.handle")
	defer func() {
		span.SetAttributes(telemetry.PermissionAttributes(len(out.Requested), len(out.Unmapped), string(out.Escalation))...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.ObservePermissionFlow(string(out.Escalation), len(out.Unmapped), time.Since(start).Seconds())
		emitOutcome(ctx, out, err != nil)
	}()

	out.Requested, out.Unmapped = Map(identifiers)
	out.IncludesLocation = IncludesLocation(identifiers)
	out.Escalation = EscalationAborted

	if len(out.Unmapped) > 0 {
		logger.Debug().
			Strs(xglog.FieldPermissions, out.Unmapped).
			Msg("dropping permission identifiers without platform mapping")
	}

	var res Results
	err = c.exclusive(ctx, func() error {
		var rerr error
		res, rerr = c.os.RequestMultiple(ctx, out.Requested)
		return rerr
	})
	if err != nil {
		return out, fmt.Errorf("request permissions: %w", err)
	}
	out.Results = res

	if !BackgroundEligible(res) {
		out.Escalation = EscalationNotNeeded
		logger.Info().
			Str(xglog.FieldEscalation, string(out.Escalation)).
			Int("requested", len(out.Requested)).
			Bool("includes_location", out.IncludesLocation).
			Msg("permission request completed")
		return out, nil
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	prompt := BackgroundLocationPrompt()
	prompt.ID = out.FlowID
	ok, err := c.prompter.Confirm(ctx, prompt)
	if err != nil {
		return out, fmt.Errorf("confirm background location: %w", err)
	}
	if !ok {
		out.Escalation = EscalationDeclined
		logger.Info().
			Str(xglog.FieldEscalation, string(out.Escalation)).
			Msg("background location declined, continuing with foreground permissions")
		return out, nil
	}

	var bg any
	err = c.exclusive(ctx, func() error {
		var rerr error
		bg, rerr = c.os.Request(ctx, AccessBackgroundLocation)
		return rerr
	})
	if err != nil {
		return out, fmt.Errorf("request background location: %w", err)
	}
	out.Background = bg
	out.Escalation = EscalationRequested
	logger.Info().
		Str(xglog.FieldEscalation, string(out.Escalation)).
		Interface("result", bg).
		Msg("background location requested")
	return out, nil
}

// exclusive runs fn while holding the OS dialog slot.
func (c *Coordinator) exclusive(ctx context.Context, fn func() error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for permission dialog: %w", err)
	}
	defer c.sem.Release(1)
	return fn()
}
