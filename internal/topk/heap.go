package topk

// Heap is a binary heap ordered by less: the root is the element for which
// less reports true against every other element.
type Heap[T any] struct {
	less  func(a, b T) bool
	items []T
}

// NewHeap creates an empty heap with room for capacity items.
func NewHeap[T any](less func(a, b T) bool, capacity int) *Heap[T] {
	return &Heap[T]{less: less, items: make([]T, 0, capacity)}
}

// Len returns the number of items.
func (h *Heap[T]) Len() int { return len(h.items) }

// Push inserts v in O(log n).
func (h *Heap[T]) Push(v T) {
	h.items = append(h.items, v)
	h.up(len(h.items) - 1)
}

// Peek returns the root without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

// Pop removes and returns the root in O(log n).
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	root := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items[last] = zero
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return root, true
}

// ReplaceRoot swaps the root for v and restores heap order.
func (h *Heap[T]) ReplaceRoot(v T) {
	h.items[0] = v
	h.down(0)
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.items)
	for {
		smallest := i
		if l := 2*i + 1; l < n && h.less(h.items[l], h.items[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < n && h.less(h.items[r], h.items[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
