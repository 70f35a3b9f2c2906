// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/tmbridge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBusPreservesPublishOrder(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", i))
	}
	for i := 0; i < 10; i++ {
		require.Equal(t, i, <-sub.C())
	}
}

func TestMemoryBusPublishBlocksInsteadOfDropping(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBusWithBuffer(1)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(context.Background(), "topic", "first"))

	done := make(chan error, 1)
	go func() {
		done <- b.Publish(context.Background(), "topic", "second")
	}()

	select {
	case <-done:
		t.Fatal("publish returned while the subscriber queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	require.Equal(t, "first", <-sub.C())
	require.NoError(t, <-done)
	require.Equal(t, "second", <-sub.C())
}

func TestMemoryBusPublishContextTimeoutIncrementsDropMetrics(t *testing.T) {
	b := NewMemoryBusWithBuffer(1)
	sub, err := b.Subscribe(context.Background(), "timeout-topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	require.NoError(t, b.Publish(context.Background(), "timeout-topic", "msg"))

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("timeout-topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "timeout-topic", "blocked")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	final := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("timeout-topic", "timeout"))
	require.Greater(t, final, initial, "expected reasoned bus drop counter to increase")
}

func TestMemoryBusCloseReleasesBlockedPublisher(t *testing.T) {
	b := NewMemoryBusWithBuffer(0)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- b.Publish(context.Background(), "topic", "never read")
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publisher still blocked after Close")
	}

	_, open := <-sub.C()
	require.False(t, open)

	// Publishing with no subscribers is a no-op.
	require.NoError(t, b.Publish(context.Background(), "topic", "x"))
}

func TestMemoryBusClosedRejectsSubscribe(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, open := <-sub.C()
	require.False(t, open)

	_, err = b.Subscribe(context.Background(), "a")
	require.ErrorIs(t, err, ErrClosed)
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is rejected explicitly
	err := b.Publish(nil, "topic", "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}
