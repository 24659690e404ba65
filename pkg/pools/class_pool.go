package pools

import (
	"slices"
	"sync"
)

// classPool pools slices in ascending capacity classes. A returned slice is
// filed under the largest class its capacity covers, so get never hands out
// a slice shorter than its class.
type classPool[T any] struct {
	sizes []int
	pools []sync.Pool
}

func newClassPool[T any](sizes ...int) *classPool[T] {
	p := &classPool[T]{sizes: sizes, pools: make([]sync.Pool, len(sizes))}
	for i, size := range sizes {
		p.pools[i].New = func() any {
			s := make([]T, 0, size)
			return &s
		}
	}
	return p
}

// get returns an empty slice with capacity of at least n. Requests above the
// largest class are allocated directly.
func (p *classPool[T]) get(n int) []T {
	i, _ := slices.BinarySearch(p.sizes, n)
	if i == len(p.sizes) {
		return make([]T, 0, n)
	}
	sp, ok := p.pools[i].Get().(*[]T)
	if !ok || cap(*sp) < n {
		return make([]T, 0, n)
	}
	return (*sp)[:0]
}

func (p *classPool[T]) put(s []T) {
	c := cap(s)
	if c > p.sizes[len(p.sizes)-1] {
		return
	}
	i, exact := slices.BinarySearch(p.sizes, c)
	if !exact {
		i--
	}
	if i < 0 {
		return
	}
	s = s[:0]
	p.pools[i].Put(&s)
}
