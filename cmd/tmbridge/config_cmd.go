// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/tmbridge/internal/config"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stdout)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  tmbridge config validate [--file|-f config.yaml]")
	_, _ = fmt.Fprintln(w, "  tmbridge config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func loadForCLI(fs *flag.FlagSet, args []string, stderr io.Writer) (config.AppConfig, string, bool) {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return config.AppConfig{}, "", false
	}
	path := resolveConfigPath(file)
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return config.AppConfig{}, path, false
	}
	return cfg, path, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmbridge config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg, path, ok := loadForCLI(fs, args, stderr)
	if !ok {
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if path == "" {
		path = "(defaults+env)"
	}
	_, _ = fmt.Fprintf(stdout, "OK: %s\n", path)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmbridge config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var format string
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")

	cfg, _, ok := loadForCLI(fs, args, stderr)
	if !ok {
		return 1
	}
	cfg.Credential.Redis.Password = redact(cfg.Credential.Redis.Password)

	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_ = enc.Close()
	default:
		_, _ = fmt.Fprintf(stderr, "Error: unknown format %q\n", format)
		return 2
	}
	return 0
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
