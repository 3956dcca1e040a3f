// Package events is a small in-process event emitter. Listeners run
// synchronously, in registration order, on the emitting goroutine.
package events

import "sync"

// Listener receives the arguments passed to Emit.
type Listener func(args ...any)

type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string][]Listener)}
}

// On registers fn for event name.
func (e *Emitter) On(name string, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]Listener)
	}
	e.listeners[name] = append(e.listeners[name], fn)
}

// Emit calls every listener of name and reports whether there was any.
func (e *Emitter) Emit(name string, args ...any) bool {
	e.mu.RLock()
	ls := append([]Listener(nil), e.listeners[name]...)
	e.mu.RUnlock()

	for _, fn := range ls {
		fn(args...)
	}
	return len(ls) > 0
}

func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}
