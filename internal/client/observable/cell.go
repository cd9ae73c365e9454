// Package observable provides a value holder that notifies subscribers on change.
package observable

import "sync"

// Cell holds a current value and a list of subscribers. Subscribers are called
// synchronously by Set, in registration order, outside the cell's lock, so a
// subscriber may read the cell or unsubscribe itself.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID uint64
	subs   []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and notifies every subscriber with it.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := make([]subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (c *Cell[T]) Subscribe(fn func(T)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}
