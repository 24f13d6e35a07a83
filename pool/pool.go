// pool/pool.go
package pool

import "sync"

// Pool is a bounded free list for values of type T. Get hands out a
// recycled value when one is available and falls back to the factory
// otherwise; Put resets the value and shelves it up to the capacity.
//
// Unlike sync.Pool the contents survive GC and the size is bounded,
// which fits game objects that are expensive to rebuild but cheap to
// hold (buffers, projectiles, packets).
type Pool[T any] struct {
	mu      sync.Mutex
	free    []T
	factory func() T
	reset   func(T)
	cap     int
}

// New builds a pool around a factory. reset may be nil when values need
// no scrubbing between uses. capacity <= 0 means unbounded.
func New[T any](capacity int, factory func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		factory: factory,
		reset:   reset,
		cap:     capacity,
	}
}

// Get returns a recycled value or a freshly built one.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()
	return p.factory()
}

// Put resets v and returns it to the free list. When the pool is at
// capacity the value is dropped.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cap > 0 && len(p.free) >= p.cap {
		return
	}
	p.free = append(p.free, v)
}

// Warm pre-builds n values onto the free list, respecting capacity.
func (p *Pool[T]) Warm(n int) {
	for i := 0; i < n; i++ {
		p.mu.Lock()
		if p.cap > 0 && len(p.free) >= p.cap {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		p.Put(p.factory())
	}
}

// Size returns the number of values currently shelved.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
