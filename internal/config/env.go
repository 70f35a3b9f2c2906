// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tmbridge/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TMBRIDGE_"

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		lowerKey := strings.ToLower(key)
		switch {
		case value == "":
			logger.Debug().
				Str("key", key).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		case strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "key"):
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		default:
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", i).
		Str("source", "environment").
		Msg("using environment variable")
	return i
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Dur("value", d).
		Str("source", "environment").
		Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}

// ParseList reads a comma separated list. Empty items are dropped.
func ParseList(key string, defaultValue []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// applyEnv overlays TMBRIDGE_* variables on cfg. Unset variables keep the
// file or default value.
func applyEnv(cfg *AppConfig) {
	p := EnvPrefix
	cfg.LogLevel = ParseString(p+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = ParseString(p+"LOG_FORMAT", cfg.LogFormat)
	cfg.DataDir = ParseString(p+"DATA_DIR", cfg.DataDir)

	cfg.API.Listen = ParseString(p+"API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(p+"API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateLimitWindow = ParseDuration(p+"API_RATE_LIMIT_WINDOW", cfg.API.RateLimitWindow)
	cfg.API.ShutdownTimeout = ParseDuration(p+"API_SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)

	cfg.Native.Mode = ParseString(p+"NATIVE_MODE", cfg.Native.Mode)
	cfg.Native.Network = ParseString(p+"NATIVE_NETWORK", cfg.Native.Network)
	cfg.Native.Address = ParseString(p+"NATIVE_ADDRESS", cfg.Native.Address)
	cfg.Native.DialTimeout = ParseDuration(p+"NATIVE_DIAL_TIMEOUT", cfg.Native.DialTimeout)
	cfg.Native.RequestTimeout = ParseDuration(p+"NATIVE_REQUEST_TIMEOUT", cfg.Native.RequestTimeout)
	cfg.Native.RedialInterval = ParseDuration(p+"NATIVE_REDIAL_INTERVAL", cfg.Native.RedialInterval)

	cfg.Credential.Backend = ParseString(p+"CREDENTIAL_BACKEND", cfg.Credential.Backend)
	cfg.Credential.Path = ParseString(p+"CREDENTIAL_PATH", cfg.Credential.Path)
	cfg.Credential.Redis.Addr = ParseString(p+"REDIS_ADDR", cfg.Credential.Redis.Addr)
	cfg.Credential.Redis.Password = ParseString(p+"REDIS_PASSWORD", cfg.Credential.Redis.Password)
	cfg.Credential.Redis.DB = ParseInt(p+"REDIS_DB", cfg.Credential.Redis.DB)
	cfg.Credential.Redis.Prefix = ParseString(p+"REDIS_PREFIX", cfg.Credential.Redis.Prefix)

	cfg.Bridge.ErrorClearPolicy = ParseString(p+"ERROR_CLEAR_POLICY", cfg.Bridge.ErrorClearPolicy)

	cfg.Simulator.Permissions = ParseList(p+"SIMULATOR_PERMISSIONS", cfg.Simulator.Permissions)
	cfg.Simulator.Grant = ParseString(p+"SIMULATOR_GRANT", cfg.Simulator.Grant)
	cfg.Simulator.BackgroundGrant = ParseString(p+"SIMULATOR_BACKGROUND_GRANT", cfg.Simulator.BackgroundGrant)

	cfg.Telemetry.Enabled = ParseBool(p+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(p+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(p+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(p+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString(p+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}
