package events

import (
	"log"
	"sync"
)

// Handler receives published events. Handlers run synchronously on the
// emitting goroutine and should hand off any blocking work themselves.
type Handler func(Event)

type listener struct {
	id int
	fn Handler
}

// Bus is a synchronous publish/subscribe fan-out with per-type listener
// lists. A panicking listener is isolated: it is logged and the remaining
// listeners still run.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]listener
	nextID    int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]listener)}
}

// Subscribe registers a handler for an event type and returns a
// subscription ID usable with Unsubscribe.
func (b *Bus) Subscribe(t Type, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[t] = append(b.listeners[t], listener{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes a previously registered handler. It reports whether
// the subscription existed.
func (b *Bus) Unsubscribe(t Type, id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[t]
	for i, l := range ls {
		if l.id == id {
			b.listeners[t] = append(ls[:i:i], ls[i+1:]...)
			return true
		}
	}
	return false
}

// Emit delivers the event to all listeners registered for its type at emit
// time. Listeners registered during delivery do not see this event.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	ls := make([]listener, len(b.listeners[ev.Type]))
	copy(ls, b.listeners[ev.Type])
	b.mu.RUnlock()

	for _, l := range ls {
		b.invoke(l, ev)
	}
}

func (b *Bus) invoke(l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event listener for %s panicked: %v", ev.Type, r)
		}
	}()
	l.fn(ev)
}
