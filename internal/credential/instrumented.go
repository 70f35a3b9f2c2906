// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"time"

	"github.com/ManuGH/tmbridge/internal/metrics"
)

// instrumentedStore wraps any Store to capture metrics.
type instrumentedStore struct {
	inner   Store
	backend string
}

func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	metrics.ObserveCredentialStoreOp(i.backend, op, time.Since(start).Seconds(), err)
}

func (i *instrumentedStore) Get(ctx context.Context) (v string, err error) {
	start := time.Now()
	defer func() { i.observe("get", start, err) }()
	return i.inner.Get(ctx)
}

func (i *instrumentedStore) Set(ctx context.Context, value string) (err error) {
	start := time.Now()
	defer func() { i.observe("set", start, err) }()
	return i.inner.Set(ctx, value)
}

func (i *instrumentedStore) Close() error { return i.inner.Close() }
