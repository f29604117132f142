package authcore

import "time"

// SecurityReport summarizes the active security posture for operators.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	TempMFATTL         time.Duration
	BcryptCost         int
	RateLimitingActive bool
	RateLimitAttempts  int
	RateLimitWindow    time.Duration
	LockoutActive      bool
	LockoutThreshold   int
	LockoutDuration    time.Duration
	EmailVerification  bool
	AuditActive        bool
	MetricsActive      bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm:   "HS256",
		AccessTTL:          e.config.Token.AccessTTL,
		RefreshTTL:         e.config.Token.RefreshTTL,
		TempMFATTL:         e.config.Token.TempMFATTL,
		BcryptCost:         e.config.Password.Cost,
		RateLimitingActive: e.config.RateLimit.Enabled,
		RateLimitAttempts:  e.config.RateLimit.MaxAttempts,
		RateLimitWindow:    e.config.RateLimit.Window,
		LockoutActive:      e.config.Lockout.Enabled,
		LockoutThreshold:   e.config.Lockout.MaxFailures,
		LockoutDuration:    e.config.Lockout.Duration,
		EmailVerification:  e.config.Verification.RequireForLogin,
		AuditActive:        e.config.Audit.Enabled,
		MetricsActive:      e.config.Metrics.Enabled,
	}
}

// SecurityStats samples the operational security state: per-type audit
// event counts inside the window, currently locked identifiers, and the
// number of identifiers with rate-limit activity. Counters are sampled
// independently, so the snapshot is eventually consistent.
func (e *Engine) SecurityStats(window time.Duration) SecurityStats {
	stats := SecurityStats{
		EventCounts: map[string]int{},
	}
	if e == nil {
		return stats
	}

	if e.recorder != nil {
		cutoff := time.Time{}
		if window > 0 {
			cutoff = e.now().Add(-window)
		}
		stats.EventCounts = e.recorder.CountsSince(cutoff)
	}

	stats.LockedAccounts = e.lockouts.LockedCount()
	stats.ActiveRateLimitKeys = e.rateLimiter.ActiveKeys()
	return stats
}
