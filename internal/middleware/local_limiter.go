package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/frontdesk/internal/config"
)

// localBuckets keeps one x/time/rate limiter per key for single-instance
// deployments without Redis.  Idle keys are swept lazily.
type localBuckets struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	lastCleanup  time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{
		entries:      make(map[string]*bucketEntry),
		limit:        rate.Limit(float64(cfg.RefillTokens) / cfg.RefillInterval.Seconds()),
		burst:        cfg.Capacity,
		idleTTL:      cfg.TTL,
		cleanupEvery: 2 * time.Minute,
		lastCleanup:  time.Now(),
	}
}

func (b *localBuckets) take(key string, now time.Time) decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastCleanup) >= b.cleanupEvery {
		b.sweep(now)
	}
	ent, ok := b.entries[key]
	if !ok {
		ent = &bucketEntry{lim: rate.NewLimiter(b.limit, b.burst)}
		b.entries[key] = ent
	}
	ent.lastSeen = now

	r := ent.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{allowed: false, retry: delay}
	}
	return decision{allowed: true, remaining: int64(ent.lim.TokensAt(now))}
}

// sweep drops keys idle for longer than idleTTL.  Callers hold b.mu.
func (b *localBuckets) sweep(now time.Time) {
	cutoff := now.Add(-b.idleTTL)
	for k, ent := range b.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(b.entries, k)
		}
	}
	b.lastCleanup = now
}
