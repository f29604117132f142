package limiters

import (
	"sync"
	"time"
)

// LockoutConfig holds configuration for the automatic account lockout tracker.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

type lockoutEntry struct {
	failures    int
	firstFailed time.Time
	lockedUntil time.Time
}

// LockoutTracker counts failed login attempts per identifier and locks the
// identifier when the configured threshold is reached inside the rolling
// window. All methods are nil-safe: a nil tracker never locks.
type LockoutTracker struct {
	cfg     LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	now     func() time.Time
}

// NewLockoutTracker creates a tracker. The now func is injectable for tests;
// pass nil for the wall clock. Returns nil when disabled.
func NewLockoutTracker(cfg LockoutConfig, now func() time.Time) *LockoutTracker {
	if !cfg.Enabled || cfg.Threshold <= 0 || cfg.Duration <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &LockoutTracker{
		cfg:     cfg,
		entries: make(map[string]*lockoutEntry),
		now:     now,
	}
}

// RecordFailure counts one failed attempt for key. It returns true when this
// failure reached the threshold and locked the key. Failures older than the
// window are forgotten before counting.
func (t *LockoutTracker) RecordFailure(key string) bool {
	if t == nil || key == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry := t.entries[key]
	if entry == nil || now.Sub(entry.firstFailed) >= t.cfg.Duration {
		entry = &lockoutEntry{firstFailed: now}
		t.entries[key] = entry
	}

	entry.failures++
	if entry.failures >= t.cfg.Threshold && entry.lockedUntil.IsZero() {
		entry.lockedUntil = now.Add(t.cfg.Duration)
		return true
	}
	return false
}

// IsLocked reports whether key is currently locked. An expired lock is
// removed on read.
func (t *LockoutTracker) IsLocked(key string) bool {
	if t == nil || key == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[key]
	if entry == nil {
		return false
	}

	now := t.now()
	if !entry.lockedUntil.IsZero() {
		if now.Before(entry.lockedUntil) {
			return true
		}
		delete(t.entries, key)
		return false
	}

	if now.Sub(entry.firstFailed) >= t.cfg.Duration {
		delete(t.entries, key)
	}
	return false
}

// RemainingLockout returns how long key stays locked, or zero when unlocked.
func (t *LockoutTracker) RemainingLockout(key string) time.Duration {
	if t == nil || key == "" {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[key]
	if entry == nil || entry.lockedUntil.IsZero() {
		return 0
	}
	if remaining := entry.lockedUntil.Sub(t.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// FailureCount returns the failures counted for key in the current window.
func (t *LockoutTracker) FailureCount(key string) int {
	if t == nil || key == "" {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[key]
	if entry == nil || t.now().Sub(entry.firstFailed) >= t.cfg.Duration {
		return 0
	}
	return entry.failures
}

// Reset clears the failure counter and any lock for key.
func (t *LockoutTracker) Reset(key string) {
	if t == nil || key == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// LockedCount reports how many identifiers are currently locked.
func (t *LockoutTracker) LockedCount() int {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	count := 0
	for key, entry := range t.entries {
		if entry.lockedUntil.IsZero() {
			continue
		}
		if now.Before(entry.lockedUntil) {
			count++
		} else {
			delete(t.entries, key)
		}
	}
	return count
}
