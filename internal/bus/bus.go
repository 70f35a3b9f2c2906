// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bus is the in-process event transport between the native module
// client, the SDK event bridge and the presentation layer.
package bus

import "context"

// Message is an opaque event payload.
type Message interface{}

// Subscriber is a live subscription to one topic. Messages arrive on C in
// publish order; Close is the cancellation handle.
type Subscriber interface {
	// C returns a read-only message channel. It is closed by Close.
	C() <-chan Message
	// Close unsubscribes. It is safe to call more than once.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
