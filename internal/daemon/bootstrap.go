// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"fmt"

	"github.com/ManuGH/tmbridge/internal/api"
	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/bus"
	"github.com/ManuGH/tmbridge/internal/config"
	"github.com/ManuGH/tmbridge/internal/controller"
	"github.com/ManuGH/tmbridge/internal/credential"
	"github.com/ManuGH/tmbridge/internal/native"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
	"github.com/ManuGH/tmbridge/internal/ui"
)

// nativeBackend is what the bridge needs from the native side: the SDK
// command surface, the OS permission surface and an event loop.
type nativeBackend interface {
	sdk.NativeModule
	permission.OS
	Run(ctx context.Context) error
}

// Runtime holds the wired components of one bridge process.
type Runtime struct {
	Bus         *bus.MemoryBus
	Bridge      *bridge.Bridge
	Coordinator *permission.Coordinator
	Controller  *controller.Controller
	Presenter   *ui.Presenter
	Prompts     *ui.PromptBroker
	API         *api.Server
	Store       credential.Store

	native nativeBackend
	health api.HealthChecker
}

// BuildRuntime wires the bridge components for cfg around store.
func BuildRuntime(cfg config.AppConfig, store credential.Store, version string) (*Runtime, error) {
	policy, err := bridge.ParseErrorClearPolicy(cfg.Bridge.ErrorClearPolicy)
	if err != nil {
		return nil, err
	}

	b := bus.NewMemoryBus()
	rt := &Runtime{Bus: b, Store: store}

	switch cfg.Native.Mode {
	case config.NativeModeSimulator:
		rt.native = native.NewSimulator(SimulatorConfig(cfg.Simulator), b)
	case config.NativeModeClient, "":
		ncfg := native.DefaultConfig(cfg.Native.Network, cfg.Native.Address)
		if cfg.Native.DialTimeout > 0 {
			ncfg.DialTimeout = cfg.Native.DialTimeout
		}
		if cfg.Native.RequestTimeout > 0 {
			ncfg.RequestTimeout = cfg.Native.RequestTimeout
		}
		if cfg.Native.RedialInterval > 0 {
			ncfg.RedialInterval = cfg.Native.RedialInterval
		}
		client := native.NewClient(ncfg, b)
		rt.native = client
		rt.health = client
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNativeMode, cfg.Native.Mode)
	}

	rt.Prompts = ui.NewPromptBroker()
	rt.Coordinator = permission.NewCoordinator(rt.native, rt.Prompts)
	rt.Bridge = bridge.New(b, rt.Coordinator, policy)
	rt.Controller = controller.New(rt.native, store)
	rt.Presenter = ui.NewPresenter(b, rt.Bridge, rt.Controller, store, rt.Prompts)

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = "tmbridge-api"
	}
	rt.API = api.NewServer(api.Config{
		Version:        version,
		TracingService: tracing,
		RateLimit:      cfg.API.RateLimit,
		RateWindow:     cfg.API.RateLimitWindow,
	}, rt.Presenter, rt.Prompts, rt.health)

	return rt, nil
}

// SimulatorConfig maps the simulator section onto native.SimulatorConfig.
func SimulatorConfig(c config.SimulatorConfig) native.SimulatorConfig {
	sc := native.DefaultSimulatorConfig()
	if c.Permissions != nil {
		sc.Permissions = append([]string(nil), c.Permissions...)
	}
	if c.Grant != "" {
		sc.DefaultGrant = c.Grant
	}
	if c.BackgroundGrant != "" {
		sc.BackgroundGrant = c.BackgroundGrant
	}
	return sc
}
