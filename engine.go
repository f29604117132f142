package authcore

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/academix-io/authcore/internal"
	internalaudit "github.com/academix-io/authcore/internal/audit"
	"github.com/academix-io/authcore/internal/limiters"
	"github.com/academix-io/authcore/internal/rate"
	"github.com/academix-io/authcore/internal/stores"
	"github.com/academix-io/authcore/notify"
	"github.com/academix-io/authcore/password"
	"github.com/academix-io/authcore/token"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	accountStores []AccountStore
	mfaStore      MFAStore
	passwordHash  *password.Bcrypt
	policy        *password.Policy
	tokens        *token.Manager
	totp          *totpManager
	rateLimiter   *rate.Limiter
	lockouts      *limiters.LockoutTracker
	codes         stores.CodeStore
	recorder      *internalaudit.Recorder
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	mailer        notify.Mailer
	sms           notify.SMSSender
	nowFn         func() time.Time

	// Serializes read-modify-write cycles on backup codes so a code can
	// never be spent twice by concurrent confirmations.
	backupMu sync.Mutex
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// findAccount searches every registered partition in priority order.
func (e *Engine) findAccount(ctx context.Context, email string) (*Account, error) {
	for _, store := range e.accountStores {
		account, err := store.FindByEmail(ctx, email)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
	}
	return nil, ErrAccountNotFound
}

// storeFor returns the partition that holds account, matching by email.
func (e *Engine) storeFor(ctx context.Context, email string) (AccountStore, *Account, error) {
	for _, store := range e.accountStores {
		account, err := store.FindByEmail(ctx, email)
		if err == nil {
			return store, account, nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrAccountNotFound
}

// Authenticate validates an access token and returns the claims-backed
// account summary. This is the entry point middleware uses.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*UserInfo, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if !e.tokens.ValidateKind(ctx, accessToken, token.KindAccess) {
		e.metricInc(MetricTokenRejected)
		return nil, ErrInvalidOrExpiredToken
	}

	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, ErrInvalidOrExpiredToken
	}

	account, err := e.findAccount(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if account.Deleted || !account.Active {
		return nil, ErrAccountDisabled
	}

	return userInfo(account), nil
}

// NeedsRefresh reports whether an access token is valid but close enough to
// expiry that the client should rotate it now.
func (e *Engine) NeedsRefresh(accessToken string) bool {
	if e == nil || e.tokens == nil {
		return false
	}
	return e.tokens.NeedsRefresh(accessToken)
}

// TokenRemainingTTL returns how long a token stays valid, or zero for a
// malformed or expired token.
func (e *Engine) TokenRemainingTTL(tokenStr string) time.Duration {
	if e == nil || e.tokens == nil {
		return 0
	}
	return e.tokens.RemainingTTL(tokenStr)
}

func userInfo(account *Account) *UserInfo {
	return &UserInfo{
		ID:            account.ID,
		Email:         account.Email,
		FullName:      account.FullName,
		Role:          account.Role,
		EmailVerified: account.EmailVerified,
		Active:        account.Active,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func newOTP() (string, error) {
	return internal.NewOTP(6)
}

// isChallengeMiss reports whether a code store error means "wrong or spent
// code" as opposed to a backend failure.
func isChallengeMiss(err error) bool {
	return errors.Is(err, stores.ErrCodeNotFound) ||
		errors.Is(err, stores.ErrCodeExpired) ||
		errors.Is(err, stores.ErrCodeMismatch) ||
		errors.Is(err, stores.ErrCodeAttemptsExceeded)
}

func (e *Engine) logRevokeFailure(email string, err error) {
	log.Printf("authcore: token revoke for %s failed: %v", email, err)
}

// notifyFailure logs and audits a failed delivery without failing the
// triggering operation.
func (e *Engine) notifyFailure(ctx context.Context, identifier, kind string, err error) {
	if err == nil {
		return
	}
	log.Printf("authcore: %s delivery to %s failed: %v", kind, identifier, err)
	e.emitAudit(ctx, auditEventNotificationFailed, identifier, false, nil, func() map[string]string {
		return map[string]string{"kind": kind}
	})
}
