package event

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives events. It runs on the emitting goroutine, which is
// usually an engine worker, so it must return quickly.
type Handler func(Event)

type subscription struct {
	handler Handler
	id      uint64
	mask    uint32
}

// Bus is an observer registry. Any number of handlers may subscribe to any
// subset of event types. A nil *Bus discards everything.
type Bus struct {
	subs   atomic.Pointer[[]subscription] // copy-on-write
	mu     sync.Mutex                     // serializes writers
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	b := &Bus{}
	b.subs.Store(&[]subscription{})
	return b
}

func maskOf(types []Type) uint32 {
	if len(types) == 0 {
		return 1<<numTypes - 1
	}
	var m uint32
	for _, t := range types {
		if t > 0 && t < numTypes {
			m |= 1 << t
		}
	}
	return m
}

// Subscribe registers h for the given types, or for all types when none are
// given. The returned func removes the subscription and is idempotent.
func (b *Bus) Subscribe(h Handler, types ...Type) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	old := *b.subs.Load()
	next := make([]subscription, len(old), len(old)+1)
	copy(next, old)
	next = append(next, subscription{handler: h, id: id, mask: maskOf(types)})
	b.subs.Store(&next)

	var once sync.Once
	return func() { once.Do(func() { b.remove(id) }) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := *b.subs.Load()
	next := make([]subscription, 0, len(old))
	for _, s := range old {
		if s.id != id {
			next = append(next, s)
		}
	}
	b.subs.Store(&next)
}

// Has reports whether any handler listens for t, so emitters can skip
// building events nobody reads.
func (b *Bus) Has(t Type) bool {
	if b == nil {
		return false
	}
	for _, s := range *b.subs.Load() {
		if s.mask&(1<<t) != 0 {
			return true
		}
	}
	return false
}

// Emit delivers e to every matching handler, stamping it if needed.
func (b *Bus) Emit(e Event) {
	if b == nil {
		return
	}
	subs := *b.subs.Load()
	if len(subs) == 0 {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, s := range subs {
		if s.mask&(1<<e.Type) != 0 {
			s.handler(e)
		}
	}
}

// Forward returns a handler that sends events to ch without blocking.
// Events are dropped when ch is full.
func Forward(ch chan<- Event) Handler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
