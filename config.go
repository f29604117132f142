package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token        TokenConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	Lockout      LockoutConfig
	MFA          MFAConfig
	Verification VerificationConfig
	Reset        ResetConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	TempMFATTL time.Duration
	Leeway     time.Duration
	// RefreshThreshold is the remaining-lifetime window below which an
	// access token reports NeedsRefresh.
	RefreshThreshold time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Cost      int
	MinLength int
	MaxLength int
	// Denylist entries are rejected as case-insensitive substrings of the
	// candidate password.
	Denylist []string
	// GeneratedLength is the length of system-generated passwords handed to
	// staff accounts created by administrators.
	GeneratedLength int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// LockoutConfig defines a public type used by authcore APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Enabled     bool
	MaxFailures int
	Duration    time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig defines a public type used by authcore APIs.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	Issuer string
	Period uint
	Skew   uint
	// CodeTTL and CodeMaxAttempts govern one-time codes delivered by SMS
	// or email during login and enrollment.
	CodeTTL         time.Duration
	CodeMaxAttempts int
	BackupCodeCount int
}

/*
====================================
VERIFICATION / RESET CONFIG
====================================
*/

// VerificationConfig defines a public type used by authcore APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	TokenTTL time.Duration
	// RequireForLogin gates login on a verified email address.
	RequireForLogin bool
}

// ResetConfig defines a public type used by authcore APIs.
//
// ResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetConfig struct {
	TokenTTL time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// MaxEvents caps the in-memory event log; the oldest event is evicted
	// when a new event would exceed the cap.
	MaxEvents int
	// Retention is the age beyond which recorded events are discarded.
	Retention time.Duration
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration preset. The token signing
// secret is intentionally left empty and must be supplied by the caller before
// [Builder.Build].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:           "authcore",
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       24 * time.Hour,
			TempMFATTL:       10 * time.Minute,
			Leeway:           0,
			RefreshThreshold: 5 * time.Minute,
		},
		Password: PasswordConfig{
			Cost:      12,
			MinLength: 8,
			MaxLength: 128,
			Denylist: []string{
				"password", "password123", "123456", "123456789",
				"qwerty", "abc123", "password1", "admin",
				"letmein", "welcome",
			},
			GeneratedLength: 12,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 10,
			Window:      1 * time.Minute,
		},
		Lockout: LockoutConfig{
			Enabled:     true,
			MaxFailures: 5,
			Duration:    30 * time.Minute,
		},
		MFA: MFAConfig{
			Issuer:          "Academix",
			Period:          30,
			Skew:            1,
			CodeTTL:         5 * time.Minute,
			CodeMaxAttempts: 3,
			BackupCodeCount: 8,
		},
		Verification: VerificationConfig{
			TokenTTL:        24 * time.Hour,
			RequireForLogin: true,
		},
		Reset: ResetConfig{
			TokenTTL: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
			MaxEvents:  1000,
			Retention:  24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	if len(cfg.Password.Denylist) > 0 {
		out.Password.Denylist = make([]string, len(cfg.Password.Denylist))
		copy(out.Password.Denylist, cfg.Password.Denylist)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.TempMFATTL <= 0 {
		return errors.New("Token TempMFATTL must be > 0")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}
	if c.Token.RefreshThreshold < 0 {
		return errors.New("Token RefreshThreshold must be >= 0")
	}
	if c.Token.RefreshThreshold >= c.Token.AccessTTL {
		return errors.New("Token RefreshThreshold must be < AccessTTL")
	}

	// Password
	if c.Password.Cost < 10 || c.Password.Cost > 31 {
		return errors.New("Password Cost must be between 10 and 31")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.GeneratedLength < c.Password.MinLength {
		return errors.New("Password GeneratedLength must be >= MinLength")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.MaxFailures <= 0 {
			return errors.New("Lockout MaxFailures must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
	}

	// MFA
	if c.MFA.Issuer == "" {
		return errors.New("MFA Issuer must not be empty")
	}
	if c.MFA.Period == 0 {
		return errors.New("MFA Period must be > 0")
	}
	if c.MFA.CodeTTL <= 0 {
		return errors.New("MFA CodeTTL must be > 0")
	}
	if c.MFA.CodeMaxAttempts <= 0 {
		return errors.New("MFA CodeMaxAttempts must be > 0")
	}
	if c.MFA.BackupCodeCount <= 0 {
		return errors.New("MFA BackupCodeCount must be > 0")
	}

	// Verification / reset
	if c.Verification.TokenTTL <= 0 {
		return errors.New("Verification TokenTTL must be > 0")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("Reset TokenTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0")
		}
		if c.Audit.MaxEvents <= 0 {
			return errors.New("Audit MaxEvents must be > 0")
		}
		if c.Audit.Retention <= 0 {
			return errors.New("Audit Retention must be > 0")
		}
	}

	return nil
}
