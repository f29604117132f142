package authcore

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for any wrong email/password
	// combination. The message is identical regardless of which factor was
	// wrong so the API does not become an account-enumeration oracle.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked is returned while an account is under failed-attempt
	// lockout. It carries no remaining-time detail.
	ErrAccountLocked = errors.New("account temporarily locked due to multiple failed login attempts")
	// ErrRateLimited is returned when the sliding-window limiter rejects an
	// attempt for the given identifier and action.
	ErrRateLimited = errors.New("too many attempts, please try again later")
	// ErrEmailNotVerified is returned when credentials are correct but the
	// account has not completed email verification.
	ErrEmailNotVerified = errors.New("please verify your email before logging in")
	// ErrAccountDisabled is returned when credentials are correct but the
	// account is deactivated or soft-deleted.
	ErrAccountDisabled = errors.New("account is disabled, please contact support")
	// ErrWeakPassword is the sentinel matched by [PolicyError] values.
	ErrWeakPassword = errors.New("password does not meet security requirements")
	// ErrDuplicateEmail is returned when registration collides with an
	// existing account in any partition.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidOrExpiredToken uniformly covers reset, verification, refresh,
	// and temporary-MFA tokens. It never reveals which of "not found",
	// "expired", or "already used" applied.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrMFAChallengeFailed covers a wrong code, wrong method, or missing
	// enrollment during an MFA verification.
	ErrMFAChallengeFailed = errors.New("invalid verification code")
	// ErrMFANotEnabled is returned when an MFA challenge is requested for an
	// account with no enabled enrollment.
	ErrMFANotEnabled = errors.New("multi-factor authentication is not enabled")
	// ErrAccountNotFound is the lookup miss sentinel that [AccountStore]
	// implementations must return. The engine maps it to
	// [ErrInvalidCredentials] or [ErrInvalidOrExpiredToken] before it reaches
	// a caller.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEnrollmentNotFound is the lookup miss sentinel for [MFAStore]
	// implementations.
	ErrEnrollmentNotFound = errors.New("mfa enrollment not found")
	// ErrAlreadyVerified is returned when a verification resend is requested
	// for an account whose email is already verified.
	ErrAlreadyVerified = errors.New("email is already verified")
	// ErrEngineNotReady is returned from Engine methods invoked before a
	// successful [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PolicyError aggregates every password-policy rule the candidate password
// broke. It matches [ErrWeakPassword] under errors.Is.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Violations, ", ")
}

func (e *PolicyError) Unwrap() error {
	return ErrWeakPassword
}
