package auth

import (
	"sync"
	"time"
)

// Rate limiter defaults: five attempts per identifier in a rolling
// fifteen-minute window, compacting an entry once more than eight
// expired timestamps have accumulated at its front.
const (
	DefaultMaxAttempts      = 5
	DefaultWindow           = 15 * time.Minute
	DefaultCompactThreshold = 8
)

// LimiterConfig bundles the sliding-window tunables. The zero value
// takes the package defaults.
type LimiterConfig struct {
	// MaxAttempts is the number of attempts allowed inside the window.
	MaxAttempts int
	// Window is the rolling interval attempts are counted over.
	Window time.Duration
	// CompactThreshold is the head-index depth past which an entry's
	// backing slice is rebuilt to reclaim the expired prefix.
	CompactThreshold int
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.CompactThreshold <= 0 {
		c.CompactThreshold = DefaultCompactThreshold
	}
	return c
}

// rateEntry tracks one identifier's attempt timestamps in append order.
// head marks the first timestamp still inside the window; everything
// before it is expired and reclaimed in bulk once head passes the
// compaction threshold, so cleanup cost is amortized instead of O(n)
// per expiry.
type rateEntry struct {
	attempts []time.Time
	head     int
}

// SlidingWindowLimiter bounds authentication attempts per identifier
// within a rolling window with bounded memory. Identifiers are fully
// isolated from each other; the count check and the append for one
// identifier happen under a single critical section.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	cfg     LimiterConfig
	entries map[string]*rateEntry
	now     func() time.Time
}

// NewSlidingWindowLimiter creates a limiter with the given config,
// filling zero fields with defaults.
func NewSlidingWindowLimiter(cfg LimiterConfig) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		cfg:     cfg.withDefaults(),
		entries: make(map[string]*rateEntry),
		now:     time.Now,
	}
}

// Check records an attempt for identifier and reports whether it is
// allowed. Once the window holds MaxAttempts live entries, further
// attempts are rejected and NOT recorded, so a caller who simply keeps
// retrying does not push their lockout forward. An empty identifier is
// an input error, not a rate-limit decision.
func (l *SlidingWindowLimiter) Check(identifier string) (bool, error) {
	if identifier == "" {
		return false, ErrEmptyIdentifier
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		e = &rateEntry{}
		l.entries[identifier] = e
	}

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	for e.head < len(e.attempts) && !e.attempts[e.head].After(cutoff) {
		e.head++
	}
	if e.head > l.cfg.CompactThreshold {
		e.attempts = append([]time.Time(nil), e.attempts[e.head:]...)
		e.head = 0
	}

	if len(e.attempts)-e.head >= l.cfg.MaxAttempts {
		return false, nil
	}
	e.attempts = append(e.attempts, now)
	return true, nil
}

// Clear discards all state for identifier; its next Check succeeds
// unconditionally. Called after a successful login to reset brute-force
// tracking.
func (l *SlidingWindowLimiter) Clear(identifier string) {
	l.mu.Lock()
	delete(l.entries, identifier)
	l.mu.Unlock()
}

// Remaining reports how long until identifier's oldest live attempt
// leaves the window. Zero means the next Check is not blocked by an
// exhausted window.
func (l *SlidingWindowLimiter) Remaining(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		return 0
	}
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	head := e.head
	for head < len(e.attempts) && !e.attempts[head].After(cutoff) {
		head++
	}
	if len(e.attempts)-head < l.cfg.MaxAttempts {
		return 0
	}
	return e.attempts[head].Add(l.cfg.Window).Sub(now)
}
