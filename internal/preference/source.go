package preference

import (
	"context"
	"sync"
)

// Handler receives preference changes. prefersDark is false for both an
// explicit light preference and no preference.
type Handler func(prefersDark bool)

// Source delivers color-scheme preference changes.
type Source interface {
	Subscribe(fn Handler) (cancel func() error, err error)
}

// Querier reports the current preference.
type Querier interface {
	PrefersDark(ctx context.Context) (bool, error)
}

// Emitter is an in-process Source. Emit fans out synchronously to every
// subscriber on the caller's goroutine.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	last     *bool
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[int]Handler)}
}

// Subscribe registers fn until cancel is called.
func (e *Emitter) Subscribe(fn Handler) (func() error, error) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn
	e.mu.Unlock()

	return func() error {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
		return nil
	}, nil
}

// Emit reports a preference change to all subscribers.
func (e *Emitter) Emit(prefersDark bool) {
	e.mu.Lock()
	e.last = &prefersDark
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(prefersDark)
	}
}

// PrefersDark returns the last emitted preference, or false if none was emitted.
func (e *Emitter) PrefersDark(context.Context) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return false, nil
	}
	return *e.last, nil
}

// Subscribers returns the number of active subscriptions.
func (e *Emitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
