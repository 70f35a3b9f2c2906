// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/credential"
	"github.com/ManuGH/tmbridge/internal/validate"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.LogFormat("logFormat", cfg.LogFormat)
	v.NotEmpty("dataDir", cfg.DataDir)
	v.Path("dataDir", cfg.DataDir)

	v.HostPort("api.listen", cfg.API.Listen)
	v.Positive("api.rateLimit", cfg.API.RateLimit)
	v.PositiveDuration("api.rateLimitWindow", cfg.API.RateLimitWindow)
	v.PositiveDuration("api.shutdownTimeout", cfg.API.ShutdownTimeout)

	v.OneOf("native.mode", cfg.Native.Mode, []string{NativeModeClient, NativeModeSimulator})
	if cfg.Native.Mode == NativeModeClient {
		v.OneOf("native.network", cfg.Native.Network, []string{"unix", "tcp"})
		if cfg.Native.Network == "tcp" {
			v.HostPort("native.address", cfg.Native.Address)
		} else {
			v.NotEmpty("native.address", cfg.Native.Address)
		}
		v.PositiveDuration("native.dialTimeout", cfg.Native.DialTimeout)
		v.PositiveDuration("native.requestTimeout", cfg.Native.RequestTimeout)
		v.PositiveDuration("native.redialInterval", cfg.Native.RedialInterval)
	}

	v.OneOf("credential.backend", cfg.Credential.Backend, []string{
		credential.BackendMemory,
		credential.BackendFile,
		credential.BackendSqlite,
		credential.BackendBadger,
		credential.BackendRedis,
	})
	v.Path("credential.path", cfg.Credential.Path)
	if cfg.Credential.Backend == credential.BackendRedis {
		v.HostPort("credential.redis.addr", cfg.Credential.Redis.Addr)
		v.Range("credential.redis.db", cfg.Credential.Redis.DB, 0, 15)
	}

	if _, err := bridge.ParseErrorClearPolicy(cfg.Bridge.ErrorClearPolicy); err != nil {
		v.AddError("bridge.errorClearPolicy", err.Error(), cfg.Bridge.ErrorClearPolicy)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
