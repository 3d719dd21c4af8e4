package service

import (
	"sync"
	"time"
)

// TTLCache holds a single value that expires ttl after it was stored.
type TTLCache[T any] struct {
	mu       sync.RWMutex
	value    T
	storedAt time.Time
	valid    bool
	ttl      time.Duration
	now      func() time.Time
}

func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, now: time.Now}
}

// Get returns the stored value while it is fresh.
func (c *TTLCache[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid || c.now().Sub(c.storedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *TTLCache[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.storedAt = c.now()
	c.valid = true
}
