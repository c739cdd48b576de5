// Package eventbus provides the small typed publisher Queue and Worker
// each use to fan out lifecycle events to registered handlers.
package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives whatever payload was passed to Emit for the event it's
// registered against. Handlers are invoked synchronously, in registration
// order; a handler that panics is caught at the emitter boundary so it
// never breaks the caller's loop.
type Handler func(payload any)

// Bus is a typed dispatcher keyed by event name E to a fixed handler
// signature. The zero value is not usable; construct with New.
type Bus[E comparable] struct {
	mu       sync.RWMutex
	handlers map[E][]Handler
	logger   *zap.Logger
}

// New builds an empty Bus. logger may be nil, in which case handler panics
// are swallowed silently.
func New[E comparable](logger *zap.Logger) *Bus[E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus[E]{
		handlers: make(map[E][]Handler),
		logger:   logger,
	}
}

// On registers handler for event. Handlers accumulate; there is no way to
// deregister a single handler, matching the emitter's intended use as a
// fire-and-forget lifecycle hook.
func (b *Bus[E]) On(event E, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit fans out payload to every handler registered for event,
// synchronously and in registration order. A handler panic is recovered
// and logged; it never propagates to the caller.
func (b *Bus[E]) Emit(event E, payload any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, payload)
	}
}

func (b *Bus[E]) safeCall(h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.Any("recovered", r))
		}
	}()
	h(payload)
}
