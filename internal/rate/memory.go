package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter is a fixed window kept in process memory. It is used when
// no Redis is configured; limits are then per server instance.
type MemoryLimiter struct {
	cache  *gocache.Cache
	Max    int64
	Window time.Duration
	now    func() time.Time
}

// NewMemoryLimiter allows max hits per key and window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  gocache.New(window, 2*window),
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	var hits int64 = 1
	if err := l.cache.Add(k, hits, l.Window); err != nil {
		// already counted in this window
		n, err := l.cache.IncrementInt64(k, 1)
		if err != nil {
			return Result{}, fmt.Errorf("rate limit %q: %w", key, err)
		}
		hits = n
	}
	return decide(hits, l.Max, winStart.Add(l.Window).Sub(now)), nil
}
