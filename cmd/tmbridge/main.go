// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tmbridge/internal/config"
	"github.com/ManuGH/tmbridge/internal/credential"
	"github.com/ManuGH/tmbridge/internal/daemon"
	xglog "github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/telemetry"
	"github.com/ManuGH/tmbridge/internal/validate"
	"github.com/ManuGH/tmbridge/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "store":
			os.Exit(runStoreCLI(os.Args[2:]))
		case "helper":
			os.Exit(runHelperCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML or TOML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{Level: "info", Service: "tmbridge", Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(resolveConfigPath(configPath))
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.load_failed").Str("config_path", loader.Path()).Msg("failed to load configuration")
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.invalid").Msg("invalid configuration")
		return 1
	}

	// Re-configure logger with loaded configuration
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  logOutput(cfg.LogFormat, os.Stdout),
		Service: "tmbridge",
		Version: version.Version,
	})
	logger = xglog.WithComponent("main")

	source := "env+defaults"
	if loader.Path() != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", loader.Path()).
		Str("native_mode", cfg.Native.Mode).
		Str("credential_backend", cfg.Credential.Backend).
		Msg("loaded configuration")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "tmbridge",
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "telemetry.init_failed").Msg("failed to initialise tracing")
		return 1
	}

	store, err := credential.Open(ctx, credentialOptions(cfg))
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "credential.open_failed").Msg("failed to open credential store")
		_ = tp.Shutdown(context.Background())
		return 1
	}

	rt, err := daemon.BuildRuntime(cfg, store, version.Version)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.wiring_failed").Msg("failed to wire runtime")
		_ = store.Close()
		_ = tp.Shutdown(context.Background())
		return 1
	}

	mgr, err := daemon.NewManager(daemon.ServerConfig{
		Listen:          cfg.API.Listen,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
	}, rt.API.Handler())
	if err != nil {
		logger.Error().Err(err).Msg("failed to create manager")
		_ = store.Close()
		_ = tp.Shutdown(context.Background())
		return 1
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("credential-store", func(context.Context) error { return store.Close() })

	var holder *config.ConfigHolder
	if loader.Path() != "" {
		holder = config.NewConfigHolder(cfg, loader)
	}

	if err := daemon.NewApp(rt, mgr, holder).Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	logger.Info().Msg("daemon stopped")
	return 0
}

// resolveConfigPath returns explicit, or ${TMBRIDGE_DATA_DIR}/config.yaml when
// that file exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvPrefix+"DATA_DIR", ""))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func credentialOptions(cfg config.AppConfig) credential.Options {
	return credential.Options{
		Backend: cfg.Credential.Backend,
		Path:    cfg.Credential.Path,
		DataDir: cfg.DataDir,
		Redis: credential.RedisConfig{
			Addr:     cfg.Credential.Redis.Addr,
			Password: cfg.Credential.Redis.Password,
			DB:       cfg.Credential.Redis.DB,
			Prefix:   cfg.Credential.Redis.Prefix,
		},
	}
}

// logOutput wraps w in a zerolog console writer for the console format.
func logOutput(format string, w io.Writer) io.Writer {
	if strings.EqualFold(format, validate.LogFormatConsole) {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}
