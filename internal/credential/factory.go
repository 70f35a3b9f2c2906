// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the file, database file or directory of file-based backends.
	// When empty it is derived from DataDir.
	Path    string
	DataDir string
	Redis   RedisConfig
}

// Open creates an instrumented Store for the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendFile
	}
	path := opts.Path
	if path == "" {
		path = defaultPath(backend, opts.DataDir)
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		s, err = OpenFileStore(path)
	case BackendSqlite:
		s, err = OpenSqliteStore(ctx, path)
	case BackendBadger:
		s, err = OpenBadgerStore(path)
	case BackendRedis:
		s, err = OpenRedisStore(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown credential store backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s credential store: %w", backend, err)
	}
	return NewInstrumentedStore(s, backend), nil
}

func defaultPath(backend, dataDir string) string {
	if dataDir == "" {
		dataDir = "."
	}
	switch backend {
	case BackendFile:
		return filepath.Join(dataDir, "credential.yaml")
	case BackendSqlite:
		return filepath.Join(dataDir, "credential.sqlite")
	case BackendBadger:
		return filepath.Join(dataDir, "credential.badger")
	default:
		return ""
	}
}
