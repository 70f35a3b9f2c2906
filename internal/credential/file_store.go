// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// FileStore keeps the credential in a small YAML document. Writes go through
// renameio so a crash never leaves a truncated file behind.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

type fileDocument struct {
	Values map[string]string `yaml:"values"`
}

// OpenFileStore prepares a file store at path. The file is created on the
// first Set.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

func (f *FileStore) Get(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.Values[Key], nil
}

func (f *FileStore) Set(_ context.Context, value string) error {
	if value == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	doc, err := f.read()
	if err != nil {
		return err
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string, 1)
	}
	doc.Values[Key] = value

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	// renameio handles temp file creation, fsync and the atomic rename
	if err := renameio.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (f *FileStore) read() (fileDocument, error) {
	var doc fileDocument
	// #nosec G304 -- path is provided by the operator via config
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read credential file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode credential file: %w", err)
	}
	return doc, nil
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
