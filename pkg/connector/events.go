// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Listener receives payloads emitted on the event bus.
type Listener func(ctx context.Context, payload any) error

type listenerEntry struct {
	id int
	fn Listener
}

// EventBus is the framework-facing event emitter. Emit is synchronous;
// a listener that fails or panics is logged and the remaining listeners
// still run.
type EventBus struct {
	mu        sync.RWMutex
	listeners map[string][]listenerEntry
	nextID    int
	log       zerolog.Logger
}

// NewEventBus creates an empty event bus.
func NewEventBus(log zerolog.Logger) *EventBus {
	return &EventBus{
		listeners: make(map[string][]listenerEntry),
		log:       log.With().Str("component", "event_bus").Logger(),
	}
}

// On registers fn for event name and returns a function that removes it.
func (b *EventBus) On(name string, fn Listener) (off func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], listenerEntry{id: id, fn: fn})
	return func() {
		b.off(name, id)
	}
}

func (b *EventBus) off(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.listeners[name]
	for i, e := range entries {
		if e.id == id {
			b.listeners[name] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.listeners[name]) == 0 {
		delete(b.listeners, name)
	}
}

// Emit calls every listener of name in registration order and returns how
// many of them completed without error.
func (b *EventBus) Emit(ctx context.Context, name string, payload any) int {
	b.mu.RLock()
	entries := make([]listenerEntry, len(b.listeners[name]))
	copy(entries, b.listeners[name])
	b.mu.RUnlock()

	ok := 0
	for _, e := range entries {
		if err := b.call(ctx, e.fn, payload); err != nil {
			listenerFailures.WithLabelValues(name).Inc()
			b.log.Warn().Err(err).Str("event", name).Msg("Event listener failed")
			continue
		}
		ok++
	}
	return ok
}

func (b *EventBus) call(ctx context.Context, fn Listener, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return fn(ctx, payload)
}

// ListenerCount returns the number of listeners registered for name.
func (b *EventBus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}
