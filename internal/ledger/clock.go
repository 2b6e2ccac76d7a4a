package ledger

import (
	"context"
	"sync"

	"tokensafe/pkg/requestcontext"
)

// Clock is the monotonic Unix-time source injected into the components.
// Expiry math and timestamps never call time.Now directly so tests can pin
// the clock.
type Clock interface {
	Now(ctx context.Context) int64
}

// SystemClock reads request-scoped time when present (set by middleware so
// one operation sees one instant) and falls back to the wall clock.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) int64 {
	return requestcontext.Now(ctx).Unix()
}

// FixedClock is a settable clock for tests. It never moves on its own.
type FixedClock struct {
	mu  sync.Mutex
	now int64
}

// NewFixedClock returns a FixedClock pinned at the given Unix time.
func NewFixedClock(now int64) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now(context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock to a new Unix time.
func (c *FixedClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
