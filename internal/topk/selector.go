package topk

import (
	"slices"
	"sync"
)

// Selector retains the K largest items seen so far. It is safe for
// concurrent use.
type Selector[T any] struct {
	less func(a, b T) bool
	heap *Heap[T] // root is the smallest retained item
	k    int

	mu sync.Mutex
}

// NewSelector keeps the k largest items under less. k <= 0 retains nothing.
func NewSelector[T any](k int, less func(a, b T) bool) *Selector[T] {
	return &Selector[T]{
		less: less,
		heap: NewHeap(less, max(k, 0)),
		k:    k,
	}
}

// Add offers v. Below capacity it is kept; at capacity it replaces the
// smallest retained item only when it is larger.
func (s *Selector[T]) Add(v T) {
	if s.k <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.heap.Len() < s.k {
		s.heap.Push(v)
		return
	}
	if smallest, _ := s.heap.Peek(); !s.less(smallest, v) {
		return
	}
	s.heap.ReplaceRoot(v)
}

// Len returns the number of retained items.
func (s *Selector[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Items returns the retained items in ascending order.
func (s *Selector[T]) Items() []T {
	s.mu.Lock()
	out := slices.Clone(s.heap.items)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b T) int {
		switch {
		case s.less(a, b):
			return -1
		case s.less(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Drain empties the selector, returning its items in ascending order.
func (s *Selector[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, s.heap.Len())
	for {
		v, ok := s.heap.Pop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
