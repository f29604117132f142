package authcore

import (
	"errors"
	"time"

	internalaudit "github.com/academix-io/authcore/internal/audit"
	"github.com/academix-io/authcore/internal/limiters"
	"github.com/academix-io/authcore/internal/rate"
	"github.com/academix-io/authcore/internal/stores"
	"github.com/academix-io/authcore/notify"
	"github.com/academix-io/authcore/password"
	"github.com/academix-io/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	accountStores []AccountStore
	mfaStore      MFAStore

	mailer notify.Mailer
	sms    notify.SMSSender

	blacklist token.Blacklist
	codeStore stores.CodeStore

	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccountStores registers the account partitions searched at login, in
// priority order. Registration and administrative account creation write to
// the first store.
func (b *Builder) WithAccountStores(accountStores ...AccountStore) *Builder {
	b.accountStores = accountStores
	return b
}

// WithMFAStore describes the withmfastore operation and its observable behavior.
//
// WithMFAStore may return an error when input validation, dependency calls, or security checks fail.
// WithMFAStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMFAStore(store MFAStore) *Builder {
	b.mfaStore = store
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer may return an error when input validation, dependency calls, or security checks fail.
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(mailer notify.Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithSMSSender describes the withsmssender operation and its observable behavior.
//
// WithSMSSender may return an error when input validation, dependency calls, or security checks fail.
// WithSMSSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSMSSender(sender notify.SMSSender) *Builder {
	b.sms = sender
	return b
}

// WithRedis backs the token blacklist and challenge code store with Redis
// so revocations and pending codes are shared across processes.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithTokenBlacklist overrides the revocation backend. Takes precedence
// over WithRedis.
func (b *Builder) WithTokenBlacklist(blacklist token.Blacklist) *Builder {
	b.blacklist = blacklist
	return b
}

// CodeStore is the pending challenge code backend contract.
type CodeStore = stores.CodeStore

// WithCodeStore overrides the pending challenge code backend. Takes
// precedence over WithRedis.
func (b *Builder) WithCodeStore(store CodeStore) *Builder {
	b.codeStore = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the wall clock for every time-dependent component.
// Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(b.accountStores) == 0 {
		return nil, errors.New("at least one account store required")
	}
	for _, store := range b.accountStores {
		if store == nil {
			return nil, errors.New("account store must not be nil")
		}
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	blacklist := b.blacklist
	codeStore := b.codeStore
	if b.redis != nil {
		if blacklist == nil {
			blacklist = token.NewRedisBlacklist(b.redis, "")
		}
		if codeStore == nil {
			codeStore = stores.NewRedisCodeStore(b.redis, "", clock)
		}
	}
	if blacklist == nil {
		blacklist = token.NewMemoryBlacklist(clock)
	}
	if codeStore == nil {
		codeStore = stores.NewMemoryCodeStore(clock)
	}

	engine := &Engine{
		config:        cfg,
		accountStores: b.accountStores,
		mfaStore:      b.mfaStore,
		codes:         codeStore,
		mailer:        b.mailer,
		sms:           b.sms,
		nowFn:         clock,
	}

	if engine.mailer == nil {
		engine.mailer = notify.LogMailer{}
	}

	hasher, err := password.NewBcrypt(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = hasher

	engine.policy = password.NewPolicy(password.PolicyConfig{
		MinLength: cfg.Password.MinLength,
		MaxLength: cfg.Password.MaxLength,
		Denylist:  cfg.Password.Denylist,
	})

	tm, err := token.NewManager(token.Config{
		Secret:           cloneBytes(cfg.Token.Secret),
		Issuer:           cfg.Token.Issuer,
		AccessTTL:        cfg.Token.AccessTTL,
		RefreshTTL:       cfg.Token.RefreshTTL,
		TempMFATTL:       cfg.Token.TempMFATTL,
		Leeway:           cfg.Token.Leeway,
		RefreshThreshold: cfg.Token.RefreshThreshold,
	}, blacklist, clock)
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	engine.totp = newTOTPManager(cfg.MFA, clock)

	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(rate.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		}, clock)
	}

	engine.lockouts = limiters.NewLockoutTracker(limiters.LockoutConfig{
		Enabled:   cfg.Lockout.Enabled,
		Threshold: cfg.Lockout.MaxFailures,
		Duration:  cfg.Lockout.Duration,
	}, clock)

	if cfg.Audit.Enabled {
		engine.recorder = internalaudit.NewRecorder(cfg.Audit.MaxEvents, cfg.Audit.Retention, clock)
		engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, engine.recorder, b.auditSink)
	}

	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
