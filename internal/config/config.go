// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the bridge configuration from a YAML file and
// TMBRIDGE_* environment variables, and reloads it at runtime.
package config

import (
	"time"

	"github.com/ManuGH/tmbridge/internal/permission"
)

// Native helper modes.
const (
	NativeModeClient    = "client"
	NativeModeSimulator = "simulator"
)

// AppConfig is the complete bridge configuration.
type AppConfig struct {
	LogLevel string `yaml:"logLevel"`
	// LogFormat is "json" or "console".
	LogFormat string `yaml:"logFormat"`
	DataDir   string `yaml:"dataDir"`

	API        APIConfig        `yaml:"api"`
	Native     NativeConfig     `yaml:"native"`
	Credential CredentialConfig `yaml:"credential"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// APIConfig configures the HTTP control surface.
type APIConfig struct {
	Listen          string        `yaml:"listen"`
	RateLimit       int           `yaml:"rateLimit"`
	RateLimitWindow time.Duration `yaml:"rateLimitWindow"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// NativeConfig configures the connection to the native SDK helper.
type NativeConfig struct {
	Mode           string        `yaml:"mode"`
	Network        string        `yaml:"network"`
	Address        string        `yaml:"address"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	RedialInterval time.Duration `yaml:"redialInterval"`
}

// CredentialConfig selects the credential store backend.
type CredentialConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis credential backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BridgeConfig configures event reconciliation.
type BridgeConfig struct {
	// ErrorClearPolicy is "on_state_change" or "never".
	ErrorClearPolicy string `yaml:"errorClearPolicy"`
}

// SimulatorConfig shapes the in-process simulator used in simulator mode.
type SimulatorConfig struct {
	Permissions     []string `yaml:"permissions"`
	Grant           string   `yaml:"grant"`
	BackgroundGrant string   `yaml:"backgroundGrant"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:  "info",
		LogFormat: "json",
		DataDir:   "/var/lib/tmbridge",
		API: APIConfig{
			Listen:          ":8088",
			RateLimit:       120,
			RateLimitWindow: time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Native: NativeConfig{
			Mode:           NativeModeClient,
			Network:        "unix",
			Address:        "/run/tmbridge/native.sock",
			DialTimeout:    5 * time.Second,
			RequestTimeout: 5 * time.Minute,
			RedialInterval: 2 * time.Second,
		},
		Credential: CredentialConfig{
			Backend: "file",
		},
		Bridge: BridgeConfig{
			ErrorClearPolicy: "on_state_change",
		},
		Simulator: SimulatorConfig{
			Permissions: []string{
				string(permission.ReadPhoneState),
				string(permission.ActivityRecognition),
				string(permission.AccessCoarseLocation),
				string(permission.AccessFineLocation),
				string(permission.AccessBackgroundLocation),
			},
			Grant:           permission.GrantGranted,
			BackgroundGrant: permission.GrantGranted,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
