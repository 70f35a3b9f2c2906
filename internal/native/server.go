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
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tmbridge/internal/bus"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// Server is a stand-in native helper: it serves the JSON-lines protocol on
// top of a Simulator. One bridge connection is served at a time.
type Server struct {
	sim    *Simulator
	logger zerolog.Logger

	mu   sync.Mutex
	conn *frameConn
}

// NewServer returns a helper server simulating cfg.
func NewServer(cfg SimulatorConfig) *Server {
	s := &Server{logger: xglog.WithComponent("helper")}
	s.sim = NewSimulator(cfg, s)
	return s
}

// Simulator exposes the simulated SDK for inspection.
func (s *Server) Simulator() *Simulator { return s.sim }

// Publish writes a simulator event to the connected bridge.
func (s *Server) Publish(_ context.Context, _ string, msg bus.Message) error {
	s.mu.Lock()
	fc := s.conn
	s.mu.Unlock()
	if fc == nil {
		return ErrNotConnected
	}
	f, err := EncodeEvent(msg)
	if err != nil {
		return err
	}
	return fc.write(f)
}

// Serve accepts bridge connections on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sim.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			if err := s.ServeConn(ctx, conn); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("bridge connection ended")
			}
		}
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ServeConn serves one bridge connection until it closes or ctx ends. The
// simulator's event loop must be running (Serve starts it).
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	fc := newFrameConn(conn, 5*time.Second)
	s.mu.Lock()
	s.conn = fc
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = fc.close()
		case <-stop:
		}
	}()
	defer func() {
		s.mu.Lock()
		if s.conn == fc {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = fc.close()
	}()

	for {
		f, err := fc.read()
		if errors.Is(err, ErrInvalidFrame) {
			s.logger.Warn().Err(err).Msg("skipping malformed frame")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if f.Kind() != FrameCommand {
			continue
		}
		if err := s.handle(ctx, fc, f); err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, fc *frameConn, f Frame) error {
	logger := s.logger.With().Str(xglog.FieldCommand, f.Method).Str(xglog.FieldFrameID, f.ID).Logger()

	var callErr error
	var result any
	reply := false

	switch f.Method {
	case sdk.CommandInitialize:
		var p initializeParams
		if callErr = decodeParams(f, &p); callErr == nil {
			callErr = s.sim.InitializeSdk(ctx, p.APIKey)
		}
	case sdk.CommandStartRecording:
		callErr = s.sim.StartRecording(ctx)
	case sdk.CommandStopRecording:
		callErr = s.sim.StopRecording(ctx)
	case sdk.CommandLogMetadata:
		var entry sdk.MetadataEntry
		if callErr = decodeParams(f, &entry); callErr == nil {
			callErr = s.sim.LogMetadata(ctx, entry)
		}
	case MethodRequestMultiple:
		reply = true
		var p requestMultipleParams
		if callErr = decodeParams(f, &p); callErr == nil {
			res, err := s.sim.RequestMultiple(ctx, p.Permissions)
			result, callErr = requestMultipleResult{Results: res}, err
		}
	case MethodRequest:
		reply = true
		var p requestParams
		if callErr = decodeParams(f, &p); callErr == nil {
			res, err := s.sim.Request(ctx, p.Permission)
			result, callErr = requestResult{Result: res}, err
		}
	default:
		reply = f.ID != ""
		callErr = fmt.Errorf("unknown method %q", f.Method)
	}

	if callErr != nil {
		logger.Warn().Err(callErr).Msg("command failed")
	}
	if !reply {
		return nil
	}
	out, err := NewReply(f.ID, result, callErr)
	if err != nil {
		return err
	}
	return fc.write(out)
}

func decodeParams(f Frame, v any) error {
	if len(f.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Params, v); err != nil {
		return fmt.Errorf("decode %s params: %w", f.Method, err)
	}
	return nil
}
