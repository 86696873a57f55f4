package gamepad

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives events. Handlers run synchronously on the goroutine that
// published the event.
type Handler func(Event)

type subscription struct {
	id   uint64
	kind EventKind // 0 for every kind
	fn   Handler
}

// Emitter dispatches events to subscribers in subscription order. A
// panicking handler is logged and skipped; the rest still run.
type Emitter struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	log    zerolog.Logger
}

// NewEmitter returns an emitter that reports handler panics to l.
func NewEmitter(l zerolog.Logger) *Emitter {
	return &Emitter{log: l}
}

// On registers fn for one kind and returns a function that removes it.
func (e *Emitter) On(kind EventKind, fn Handler) func() {
	return e.add(kind, fn)
}

// OnAny registers fn for every kind.
func (e *Emitter) OnAny(fn Handler) func() {
	return e.add(0, fn)
}

func (e *Emitter) add(kind EventKind, fn Handler) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, kind: kind, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers events in order.
func (e *Emitter) Emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	e.mu.RLock()
	subs := e.subs
	e.mu.RUnlock()

	for _, ev := range events {
		for _, s := range subs {
			if s.kind != 0 && s.kind != ev.Kind {
				continue
			}
			e.call(s.fn, ev)
		}
	}
}

func (e *Emitter) call(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Stringer("event", ev).
				Msg("event handler failed")
		}
	}()
	fn(ev)
}
