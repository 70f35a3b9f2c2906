// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/tmbridge/internal/config"
	"github.com/ManuGH/tmbridge/internal/credential"
	"github.com/ManuGH/tmbridge/internal/persistence/sqlite"
)

func runStoreCLI(args []string) int {
	return storeCLI(args, os.Stdout, os.Stderr)
}

func storeCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStoreUsage(stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStoreVerify(args[1:], stdout, stderr)
	case "status":
		return runStoreStatus(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printStoreUsage(stderr)
		return 2
	}
}

func printStoreUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  tmbridge store verify --path PATH [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "  tmbridge store status [--file|-f config.yaml]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Subcommands:")
	_, _ = fmt.Fprintln(w, "  verify    Check integrity of a sqlite credential database")
	_, _ = fmt.Fprintln(w, "  status    Report whether a credential is stored")
}

func runStoreVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmbridge store verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, mode string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&mode, "mode", "quick", "Verification mode: quick or full")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --path is required")
		return 2
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		_, _ = fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}
	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	issues, err := sqlite.VerifyIntegrity(ctx, path, mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(issues) > 0 {
		_, _ = fmt.Fprintf(stdout, "CORRUPT: %s\n", path)
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
		}
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "OK: %s (%s)\n", path, mode)
	return 0
}

func runStoreStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tmbridge store status", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg, _, ok := loadForCLI(fs, args, stderr)
	if !ok {
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := credential.Open(ctx, credentialOptions(cfg))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	key, err := store.Get(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if key == "" {
		_, _ = fmt.Fprintf(stdout, "%s: no credential stored\n", cfg.Credential.Backend)
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "%s: credential stored (%d characters)\n", cfg.Credential.Backend, len(key))
	return 0
}
