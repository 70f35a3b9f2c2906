// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/tmbridge/internal/bus"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

var (
	ErrNotConnected   = errors.New("native helper not connected")
	ErrConnectionLost = errors.New("native helper connection lost")
	ErrTimeout        = errors.New("native helper request timeout")
)

// Config configures the helper connection.
type Config struct {
	Network        string
	Address        string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// RedialInterval is the minimum spacing between dial attempts.
	RedialInterval time.Duration
	RedialBurst    int
}

// DefaultConfig returns the defaults for a helper listening on address.
func DefaultConfig(network, address string) Config {
	return Config{
		Network:        network,
		Address:        address,
		DialTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		RequestTimeout: 5 * time.Minute,
		RedialInterval: 2 * time.Second,
		RedialBurst:    1,
	}
}

// Client is the bridge side of the helper connection. It implements
// sdk.NativeModule and permission.OS, and publishes helper events on the bus.
type Client struct {
	cfg     Config
	bus     bus.Bus
	limiter *rate.Limiter
	logger  zerolog.Logger
	dial    func(ctx context.Context) (net.Conn, error)

	mu   sync.RWMutex
	conn *frameConn

	connected atomic.Bool

	pendingMu sync.Mutex
	pending   map[string]chan Frame
}

// NewClient returns a client. Call Run to connect.
func NewClient(cfg Config, b bus.Bus) *Client {
	if cfg.RedialInterval <= 0 {
		cfg.RedialInterval = 2 * time.Second
	}
	if cfg.RedialBurst <= 0 {
		cfg.RedialBurst = 1
	}
	c := &Client{
		cfg:     cfg,
		bus:     b,
		limiter: rate.NewLimiter(rate.Every(cfg.RedialInterval), cfg.RedialBurst),
		logger:  xglog.WithComponent("native"),
		pending: make(map[string]chan Frame),
	}
	c.dial = func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: cfg.DialTimeout}
		return d.DialContext(ctx, cfg.Network, cfg.Address)
	}
	return c
}

// Connected reports whether the helper connection is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Run dials the helper and serves the connection, redialing after a loss at
// the configured pace, until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	logger := c.logger.With().Str(xglog.FieldAddress, c.cfg.Address).Logger()
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.IncNativeDial("failure")
			logger.Warn().Err(err).Msg("dial native helper failed")
			continue
		}
		metrics.IncNativeDial("success")
		connLogger := xglog.Derive(func(zc *zerolog.Context) {
			*zc = zc.Str(xglog.FieldComponent, "native").
				Str(xglog.FieldAddress, c.cfg.Address).
				Str(xglog.FieldConnID, uuid.NewString())
		})
		connLogger.Info().Msg("connected to native helper")

		err = c.serve(ctx, conn, connLogger)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn().Err(err).Msg("native helper connection lost")
	}
}

func (c *Client) serve(ctx context.Context, raw net.Conn, logger zerolog.Logger) error {
	fc := newFrameConn(raw, c.cfg.WriteTimeout)
	c.mu.Lock()
	c.conn = fc
	c.mu.Unlock()
	c.connected.Store(true)
	metrics.SetNativeConnected(true)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = fc.close()
		case <-stop:
		}
	}()

	defer c.disconnect(fc)

	for {
		f, err := fc.read()
		if errors.Is(err, ErrInvalidFrame) {
			logger.Warn().Err(err).Msg("skipping malformed frame")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrConnectionLost
			}
			return err
		}
		switch f.Kind() {
		case FrameReply:
			c.resolve(f)
		case FrameEvent:
			msg, err := DecodeEvent(f)
			if err != nil {
				logger.Warn().Err(err).Str(xglog.FieldEvent, f.Event).Msg("skipping event")
				continue
			}
			if err := c.bus.Publish(ctx, sdk.TopicEvents, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn().Err(err).Str(xglog.FieldEvent, f.Event).Msg("publish event failed")
			}
		default:
			logger.Warn().Str("method", f.Method).Msg("ignoring unexpected frame")
		}
	}
}

func (c *Client) disconnect(fc *frameConn) {
	_ = fc.close()
	c.mu.Lock()
	if c.conn == fc {
		c.conn = nil
	}
	c.mu.Unlock()
	c.connected.Store(false)
	metrics.SetNativeConnected(false)

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Client) resolve(f Frame) {
	c.pendingMu.Lock()
	ch, ok := c.pending[f.ID]
	if ok {
		delete(c.pending, f.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Debug().Str(xglog.FieldFrameID, f.ID).Msg("reply without pending request")
		return
	}
	ch <- f
}

func (c *Client) current() (*frameConn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// send writes a fire-and-forget command.
func (c *Client) send(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fc, err := c.current()
	if err != nil {
		return err
	}
	f, err := NewCommand(uuid.NewString(), method, params)
	if err != nil {
		return err
	}
	return fc.write(f)
}

// call writes a command and waits for its reply.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	fc, err := c.current()
	if err != nil {
		return err
	}
	id := uuid.NewString()
	f, err := NewCommand(id, method, params)
	if err != nil {
		return err
	}

	ch := make(chan Frame, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := fc.write(f); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if c.cfg.RequestTimeout > 0 {
		t := time.NewTimer(c.cfg.RequestTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return ErrConnectionLost
		}
		if reply.Error != "" {
			return fmt.Errorf("%s: %s", method, reply.Error)
		}
		if out != nil && len(reply.Result) > 0 {
			if err := json.Unmarshal(reply.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timeout:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) InitializeSdk(ctx context.Context, apiKey string) error {
	return c.send(ctx, sdk.CommandInitialize, initializeParams{APIKey: apiKey})
}

func (c *Client) StartRecording(ctx context.Context) error {
	return c.send(ctx, sdk.CommandStartRecording, nil)
}

func (c *Client) StopRecording(ctx context.Context) error {
	return c.send(ctx, sdk.CommandStopRecording, nil)
}

func (c *Client) LogMetadata(ctx context.Context, entry sdk.MetadataEntry) error {
	return c.send(ctx, sdk.CommandLogMetadata, entry)
}

// RequestMultiple asks the helper's OS layer for tokens.
func (c *Client) RequestMultiple(ctx context.Context, tokens []permission.Permission) (permission.Results, error) {
	if tokens == nil {
		tokens = []permission.Permission{}
	}
	var res requestMultipleResult
	if err := c.call(ctx, MethodRequestMultiple, requestMultipleParams{Permissions: tokens}, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		res.Results = permission.Results{}
	}
	return res.Results, nil
}

// Request asks the helper's OS layer for a single token.
func (c *Client) Request(ctx context.Context, token permission.Permission) (any, error) {
	var res requestResult
	if err := c.call(ctx, MethodRequest, requestParams{Permission: token}, &res); err != nil {
		return nil, err
	}
	return res.Result, nil
}

var (
	_ sdk.NativeModule = (*Client)(nil)
	_ permission.OS    = (*Client)(nil)
)
