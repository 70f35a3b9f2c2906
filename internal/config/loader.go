// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Loader builds an AppConfig with precedence defaults < file < environment.
type Loader struct {
	path string
}

// NewLoader returns a loader for the YAML or TOML file at path, chosen by
// extension. An empty path configures from defaults and environment only.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path is the config file path, possibly empty.
func (l *Loader) Path() string { return l.path }

// Load reads and merges the configuration. It does not validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	if l.path != "" {
		if err := l.loadFile(l.path, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("config file %s: %w", l.path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// loadFile decodes a config file onto cfg with STRICT parsing.
// Unknown fields are rejected to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".toml":
	default:
		return fmt.Errorf("unsupported config format: %s (YAML or TOML)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if ext == ".toml" {
		return decodeTOML(data, cfg)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// decodeTOML decodes data onto cfg. Keys match fields case-insensitively, so
// the YAML key names work unchanged.
func decodeTOML(data []byte, cfg *AppConfig) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: %s", ErrUnknownConfigField, strings.Join(keys, ", "))
	}
	return nil
}
