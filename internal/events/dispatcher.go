// Package events delivers sale events to in-process handlers.
package events

import (
	"context"
	"fmt"
	"sync"

	"salesengine/m/domain"
)

// Handler reacts to one event. A returned error stops delivery of that event.
type Handler func(ctx context.Context, event domain.Event) error

// Dispatcher calls the handlers subscribed to an event kind synchronously, in
// the order they were subscribed.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[domain.EventKind][]Handler)}
}

// Subscribe registers h for every kind listed.
func (d *Dispatcher) Subscribe(h Handler, kinds ...domain.EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, kind := range kinds {
		d.handlers[kind] = append(d.handlers[kind], h)
	}
}

// Publish implements domain.EventPublisher.
func (d *Dispatcher) Publish(ctx context.Context, event domain.Event) error {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[event.Kind]...)
	d.mu.RUnlock()

	for idx, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h(ctx, event); err != nil {
			return fmt.Errorf("%s handler %d: %w", event.Kind, idx, err)
		}
	}
	return nil
}
