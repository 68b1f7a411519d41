package pool

import (
	"runtime"
	"sync/atomic"
)

// Pool is a fixed-slot cache of reusable objects. Allocate falls back to the
// factory on a miss and Recycle drops the object when every slot is taken,
// so the pool is never a bottleneck and losing an object is harmless.
// There is no ordering between slots.
type Pool[T any] struct {
	slots   []atomic.Pointer[T]
	factory func() *T
	reset   func(*T)
	cursor  atomic.Uint32
}

// New creates a pool with n slots. n <= 0 uses 2x GOMAXPROCS. reset may be nil.
func New[T any](n int, factory func() *T, reset func(*T)) *Pool[T] {
	if n <= 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	return &Pool[T]{
		slots:   make([]atomic.Pointer[T], n),
		factory: factory,
		reset:   reset,
	}
}

// Size returns the slot count.
func (p *Pool[T]) Size() int { return len(p.slots) }

// Allocate claims a cached object, or builds a new one when no slot holds one.
func (p *Pool[T]) Allocate() *T {
	start := p.start()
	for i := range p.slots {
		slot := &p.slots[(start+i)%len(p.slots)]
		if v := slot.Load(); v != nil && slot.CompareAndSwap(v, nil) {
			return v
		}
	}
	return p.factory()
}

// Recycle resets v and parks it in a free slot if there is one.
func (p *Pool[T]) Recycle(v *T) {
	if v == nil {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	start := p.start()
	for i := range p.slots {
		if p.slots[(start+i)%len(p.slots)].CompareAndSwap(nil, v) {
			return
		}
	}
}

// start spreads concurrent scans across the slots.
func (p *Pool[T]) start() int {
	return int(p.cursor.Add(1) % uint32(len(p.slots)))
}

// Buffers returns a pool of byte slices of the given length.
func Buffers(n, size int) *Pool[[]byte] {
	return New(n,
		func() *[]byte {
			b := make([]byte, size)
			return &b
		},
		func(b *[]byte) { *b = (*b)[:cap(*b)] },
	)
}
