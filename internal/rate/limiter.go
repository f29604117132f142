package rate

import (
	"sync"
	"time"
)

// Config controls the sliding-window policy.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter tracks attempt timestamps per key. All methods are nil-safe: a nil
// limiter admits everything, which is how the Engine disables rate limiting.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// New creates a limiter. The now func is injectable for tests; pass nil for
// the wall clock.
func New(cfg Config, now func() time.Time) *Limiter {
	if cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string][]time.Time),
		now:     now,
	}
}

// Allow reports whether key may attempt now. An admitted attempt is recorded
// against the window; a rejected attempt is not, so a rejected caller does
// not extend its own penalty.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(key, now)

	if len(recent) >= l.cfg.MaxAttempts {
		return false
	}

	l.windows[key] = append(recent, now)
	return true
}

// Remaining reports how many attempts key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.pruneLocked(key, l.now())
	if n := l.cfg.MaxAttempts - len(recent); n > 0 {
		return n
	}
	return 0
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// ActiveKeys reports how many keys currently hold at least one attempt
// inside the window.
func (l *Limiter) ActiveKeys() int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count := 0
	for key := range l.windows {
		if len(l.pruneLocked(key, now)) > 0 {
			count++
		}
	}
	return count
}

// pruneLocked drops timestamps that left the window and returns the
// remainder. Empty keys are removed from the map so memory stays bounded by
// the active set.
func (l *Limiter) pruneLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.cfg.Window)

	attempts := l.windows[key]
	idx := 0
	for idx < len(attempts) && !attempts[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		attempts = append(attempts[:0], attempts[idx:]...)
	}

	if len(attempts) == 0 {
		delete(l.windows, key)
		return nil
	}

	l.windows[key] = attempts
	return attempts
}
