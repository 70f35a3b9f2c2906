// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ui

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ManuGH/tmbridge/internal/permission"
)

// ErrPromptNotFound is returned when answering a prompt that is not pending.
var ErrPromptNotFound = errors.New("prompt not found")

type pendingPrompt struct {
	prompt permission.Prompt
	answer chan bool
}

// PromptBroker shows confirmation dialogs to whoever polls Pending and
// delivers their answers back to the waiting permission flow.
type PromptBroker struct {
	mu      sync.Mutex
	pending map[string]*pendingPrompt
	order   []string
}

// NewPromptBroker returns an empty broker.
func NewPromptBroker() *PromptBroker {
	return &PromptBroker{pending: make(map[string]*pendingPrompt)}
}

// Confirm shows p and waits for an answer. Dismissal through ctx counts as
// cancel and is returned as ctx's error.
func (b *PromptBroker) Confirm(ctx context.Context, p permission.Prompt) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	pp := &pendingPrompt{prompt: p, answer: make(chan bool, 1)}

	b.mu.Lock()
	if _, dup := b.pending[p.ID]; dup {
		p.ID = uuid.NewString()
		pp.prompt = p
	}
	b.pending[p.ID] = pp
	b.order = append(b.order, p.ID)
	b.mu.Unlock()

	defer b.remove(p.ID)

	select {
	case ok := <-pp.answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending lists open prompts, oldest first.
func (b *PromptBroker) Pending() []permission.Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]permission.Prompt, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.pending[id].prompt)
	}
	return out
}

// Answer resolves the prompt id. accept false is the Cancel button.
func (b *PromptBroker) Answer(id string, accept bool) error {
	b.mu.Lock()
	pp, ok := b.pending[id]
	if ok {
		b.removeLocked(id)
	}
	b.mu.Unlock()
	if !ok {
		return ErrPromptNotFound
	}
	pp.answer <- accept
	return nil
}

func (b *PromptBroker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *PromptBroker) removeLocked(id string) {
	if _, ok := b.pending[id]; !ok {
		return
	}
	delete(b.pending, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

var _ permission.Prompter = (*PromptBroker)(nil)
