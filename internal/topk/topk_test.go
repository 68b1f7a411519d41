package topk

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func TestHeap_PopsInOrder(t *testing.T) {
	h := NewHeap(intLess, 0)
	for _, v := range []int{5, 3, 9, 1, 7, 3, 0} {
		h.Push(v)
	}
	require.Equal(t, 7, h.Len())

	root, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, 0, root)

	var got []int
	for {
		v, ok := h.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 3, 3, 5, 7, 9}, got)
}

func TestHeap_Empty(t *testing.T) {
	h := NewHeap(intLess, 4)
	_, ok := h.Peek()
	assert.False(t, ok)
	_, ok = h.Pop()
	assert.False(t, ok)
}

func TestSelector_KeepsLargest(t *testing.T) {
	s := NewSelector(3, intLess)
	for _, v := range []int{4, 10, 1, 8, 2, 9, 3} {
		s.Add(v)
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{8, 9, 10}, s.Items())
	assert.Equal(t, []int{8, 9, 10}, s.Drain())
	assert.Zero(t, s.Len())
}

func TestSelector_BelowCapacity(t *testing.T) {
	s := NewSelector(10, intLess)
	s.Add(2)
	s.Add(1)
	assert.Equal(t, []int{1, 2}, s.Items())
}

func TestSelector_ZeroCapacity(t *testing.T) {
	s := NewSelector(0, intLess)
	s.Add(1)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Drain())
}

func TestSelector_OrderIndependent(t *testing.T) {
	const k = 16
	input := make([]int, 1000)
	for i := range input {
		input[i] = rand.IntN(500)
	}

	sorted := slices.Clone(input)
	slices.Sort(sorted)
	want := sorted[len(sorted)-k:]

	for range 5 {
		shuffled := slices.Clone(input)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		s := NewSelector(k, intLess)
		for _, v := range shuffled {
			s.Add(v)
		}
		assert.Equal(t, want, s.Drain())
	}
}

func TestSelector_Concurrent(t *testing.T) {
	s := NewSelector(5, intLess)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				s.Add(g*1000 + i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{7995, 7996, 7997, 7998, 7999}, s.Items())
}

type pathLen struct {
	path string
	n    int
}

func TestSelector_StructKey(t *testing.T) {
	s := NewSelector(2, func(a, b pathLen) bool { return a.n < b.n })
	for _, p := range []string{"a", "a/bb", "a/bb/ccc", "a/b"} {
		s.Add(pathLen{path: p, n: len(p)})
	}
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a/bb", items[0].path)
	assert.Equal(t, "a/bb/ccc", items[1].path)
}
