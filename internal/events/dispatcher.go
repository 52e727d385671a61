package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())
}

type listener struct {
	id      string
	handler EventHandler
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]listener
	onError   func(Event, error)
}

// NewInMemoryDispatcher creates a dispatcher instance. onError may be nil.
func NewInMemoryDispatcher(onError func(Event, error)) Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]listener),
		onError:   onError,
	}
}

// Publish synchronously invokes handlers for the given event in subscription order.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	d.mu.RLock()
	handlers := append([]listener{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, l := range handlers {
		// continue processing other handlers despite errors
		if err := l.handler(ctx, event); err != nil && d.onError != nil {
			d.onError(event, err)
		}
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) func() {
	id := uuid.NewString()

	d.mu.Lock()
	d.listeners[eventType] = append(d.listeners[eventType], listener{id: id, handler: handler})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(eventType, id) })
	}
}

func (d *inMemoryDispatcher) remove(eventType EventType, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.listeners[eventType]
	kept := make([]listener, 0, len(current))
	for _, l := range current {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	d.listeners[eventType] = kept
}
