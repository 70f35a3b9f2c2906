// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tmbridge/internal/validate"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"log format", func(c *AppConfig) { c.LogFormat = "xml" }, "logFormat"},
		{"listen", func(c *AppConfig) { c.API.Listen = "8088" }, "api.listen"},
		{"rate limit", func(c *AppConfig) { c.API.RateLimit = 0 }, "api.rateLimit"},
		{"native mode", func(c *AppConfig) { c.Native.Mode = "bluetooth" }, "native.mode"},
		{"tcp address", func(c *AppConfig) {
			c.Native.Network = "tcp"
			c.Native.Address = "helper"
		}, "native.address"},
		{"redial", func(c *AppConfig) { c.Native.RedialInterval = 0 }, "native.redialInterval"},
		{"backend", func(c *AppConfig) { c.Credential.Backend = "etcd" }, "credential.backend"},
		{"redis addr", func(c *AppConfig) { c.Credential.Backend = "redis" }, "credential.redis.addr"},
		{"traversal", func(c *AppConfig) { c.Credential.Path = "../../secret" }, "credential.path"},
		{"error policy", func(c *AppConfig) { c.Bridge.ErrorClearPolicy = "sometimes" }, "bridge.errorClearPolicy"},
		{"sampling", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.SamplingRate = 2
		}, "telemetry.samplingRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateSimulatorSkipsNativeAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Native.Mode = NativeModeSimulator
	cfg.Native.Address = ""
	cfg.Native.RedialInterval = 0
	require.NoError(t, Validate(cfg))
}
