// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/tmbridge/internal/daemon"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/native"
)

// runHelperCLI serves the simulated native helper on the configured socket,
// for development against a bridge in client mode.
func runHelperCLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return helperCLI(ctx, args, os.Stderr)
}

func helperCLI(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmbridge helper", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg, _, ok := loadForCLI(fs, args, stderr)
	if !ok {
		return 1
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: logOutput(cfg.LogFormat, os.Stdout), Service: "tmbridge-helper"})
	logger := xglog.WithComponent("helper")

	if cfg.Native.Network == "unix" {
		_ = os.Remove(cfg.Native.Address)
	}
	ln, err := net.Listen(cfg.Native.Network, cfg.Native.Address)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger.Info().
		Str(xglog.FieldAddress, ln.Addr().String()).
		Msg("simulated native helper listening")

	srv := native.NewServer(daemon.SimulatorConfig(cfg.Simulator))
	if err := srv.Serve(ctx, ln); err != nil {
		logger.Error().Err(err).Msg("helper stopped with error")
		return 1
	}
	return 0
}
