// Package clock supplies registry timestamps.
package clock

import (
	"sync"
	"time"
)

// Monotonic reports unix seconds that never go backwards, even if the wall clock does.
type Monotonic struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{now: time.Now}
}

func (c *Monotonic) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts := c.now().Unix(); ts > 0 && uint64(ts) > c.last {
		c.last = uint64(ts)
	}

	return c.last
}
