// Package flight provides a small single-flight cache: concurrent lookups for
// the same key share one computation, and finished results are reused until
// their TTL elapses.
package flight

import (
	"sync"
	"time"
)

type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	finished map[K]*entry[V]
	pending  map[K]*job[V]
	work     func(K) (V, error)
	ttl      time.Duration
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero => never expires
}

type job[V any] struct {
	val  V
	err  error
	done chan struct{}
}

// NewCache builds a cache around work. ttl <= 0 keeps results forever.
func NewCache[K comparable, V any](ttl time.Duration, work func(K) (V, error)) *Cache[K, V] {
	return &Cache[K, V]{
		finished: make(map[K]*entry[V]),
		pending:  make(map[K]*job[V]),
		work:     work,
		ttl:      ttl,
	}
}

func (c *Cache[K, V]) Get(k K) (V, error) {
	c.mu.Lock()

	if e, ok := c.finished[k]; ok {
		if e.deadline.IsZero() || time.Now().Before(e.deadline) {
			c.mu.Unlock()
			return e.val, nil
		}
		delete(c.finished, k)
	}

	// Join an in-flight computation if one exists.
	if j, ok := c.pending[k]; ok {
		c.mu.Unlock()
		<-j.done
		return j.val, j.err
	}

	j := &job[V]{done: make(chan struct{})}
	c.pending[k] = j
	c.mu.Unlock()

	j.val, j.err = c.work(k)

	c.mu.Lock()
	if j.err == nil {
		e := &entry[V]{val: j.val}
		if c.ttl > 0 {
			e.deadline = time.Now().Add(c.ttl)
		}
		c.finished[k] = e
	}
	delete(c.pending, k)
	close(j.done)
	c.mu.Unlock()

	return j.val, j.err
}

// Forget drops any finished result for k. In-flight work is unaffected.
func (c *Cache[K, V]) Forget(k K) {
	c.mu.Lock()
	delete(c.finished, k)
	c.mu.Unlock()
}
