// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue depth.
const DefaultBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// ErrClosed is returned by Subscribe once the bus has been closed.
var ErrClosed = errors.New("bus closed")

// MemoryBus is an in-memory pub/sub. Publish never drops a message silently:
// it blocks on a full subscriber queue until the message is accepted, the
// subscriber goes away or the publish context ends (which is counted and
// returned as an error).
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
	closed bool
}

// NewMemoryBus returns a bus with DefaultBuffer sized subscriber queues.
func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(DefaultBuffer)
}

// NewMemoryBusWithBuffer returns a bus with the given subscriber queue depth.
func NewMemoryBusWithBuffer(buffer int) *MemoryBus {
	if buffer < 0 {
		buffer = 0
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: buffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.deliver(ctx, topic, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Message, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subs[topic] = append(b.subs[topic], s)
	return s, nil
}

// Close unsubscribes every subscriber and rejects further subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	var all []*memSub
	for _, lst := range b.subs {
		all = append(all, lst...)
	}
	b.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once

	// mu guards ch against close while a publisher is sending.
	mu     sync.RWMutex
	closed bool
}

func (s *memSub) deliver(ctx context.Context, topic string, msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		metrics.IncBusPublished(topic)
		return nil
	case <-s.done:
		// unsubscribed while we were waiting
		return nil
	case <-ctx.Done():
		reason := publishDropReason(ctx.Err())
		metrics.IncBusDropReason(topic, reason)
		count := dropCount.Add(1)
		if count%dropLogEvery == 1 {
			l := log.WithComponent("bus")
			l.Warn().
				Str("topic", topic).
				Str("reason", reason).
				Uint64("dropped", count).
				Msg("memory bus failed to publish due to context cancellation")
		}
		return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
	}
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		// Release publishers blocked on this subscriber before taking the lock.
		close(s.done)

		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return nil
}

// Ensure compliance
var _ Bus = (*MemoryBus)(nil)
