// Package ratelimit provides a keyed sliding-window request limiter.
package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/logger"
)

const shardCount = 32

// entry holds the admitted request times of one key, oldest first.
type entry struct {
	mu    sync.Mutex
	times []time.Time
	// removed is set under mu once the entry has left its shard map. A
	// caller holding a stale pointer must look the key up again.
	removed bool
}

// prune drops timestamps at or before cutoff. Caller holds e.mu.
func (e *entry) prune(cutoff time.Time) {
	i := 0
	for i < len(e.times) && !e.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.times = append(e.times[:0], e.times[i:]...)
	}
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Limiter admits at most Limit requests per key within any Window.
// Keys are spread over shards, and each key has its own lock, so callers on
// different keys rarely contend.
type Limiter struct {
	limit  atomic.Int64
	window atomic.Int64
	now    func() time.Time
	shards [shardCount]*shard
	logger *logger.Logger
}

// New creates a Limiter. A non-positive limit disables limiting.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		now:    time.Now,
		logger: logger.NewNop(),
	}
	l.SetLimit(limit, window)
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return l
}

// NewFromConfig creates a Limiter from the rate_limit section.
func NewFromConfig(cfg config.RateLimitConfig, log *logger.Logger) *Limiter {
	l := New(cfg.Requests, cfg.Window)
	if log != nil {
		l.logger = log
	}
	return l
}

// SetLimit changes the admission rule. Requests already recorded are judged
// against the new window from the next call on.
func (l *Limiter) SetLimit(limit int, window time.Duration) {
	l.limit.Store(int64(limit))
	l.window.Store(int64(window))
}

// Limit returns the number of requests admitted per window.
func (l *Limiter) Limit() int { return int(l.limit.Load()) }

// Window returns the sliding window length.
func (l *Limiter) Window() time.Duration { return time.Duration(l.window.Load()) }

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

func (l *Limiter) entryFor(key string) *entry {
	s := l.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Allow records a request for key and reports whether it is admitted.
// Rejected requests are not counted.
func (l *Limiter) Allow(key string) bool {
	limit, window := l.Limit(), l.Window()
	if limit <= 0 {
		return true
	}
	now := l.now()
	for {
		if admitted, live := admit(l.entryFor(key), now, limit, window); live {
			return admitted
		}
	}
}

// admit applies the window to e. live is false when e was swept between the
// lookup and the lock, in which case nothing was recorded.
func admit(e *entry, now time.Time, limit int, window time.Duration) (admitted, live bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false, false
	}
	e.prune(now.Add(-window))
	if len(e.times) >= limit {
		return false, true
	}
	e.times = append(e.times, now)
	return true, true
}

// RetryAfter returns how long until key may be admitted again, zero when it
// may be admitted now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	limit, window := l.Limit(), l.Window()
	if limit <= 0 {
		return 0
	}
	now := l.now()
	s := l.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(now.Add(-window))
	if len(e.times) < limit {
		return 0
	}
	return e.times[len(e.times)-limit].Add(window).Sub(now)
}

// Count returns the admitted requests for key inside the current window.
func (l *Limiter) Count(key string) int {
	now := l.now()
	s := l.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(now.Add(-l.Window()))
	return len(e.times)
}

// Sweep removes keys with no requests inside the window ending at now and
// returns how many were removed.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.Window())
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			e.mu.Lock()
			e.prune(cutoff)
			empty := len(e.times) == 0
			if empty {
				e.removed = true
			}
			e.mu.Unlock()
			if empty {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Reset forgets every key.
func (l *Limiter) Reset() {
	for _, s := range l.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			e.mu.Lock()
			e.removed = true
			e.mu.Unlock()
		}
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	}
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	n := 0
	for _, s := range l.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Run sweeps idle keys every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.Window()
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(l.now()); n > 0 {
				l.logger.Debugf("Rate limiter swept %d idle clients", n)
			}
		}
	}
}
