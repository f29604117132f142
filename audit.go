package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventUserRegistered             = "USER_REGISTERED"
	auditEventDuplicateRegistration      = "DUPLICATE_REGISTRATION"
	auditEventLoginSuccess               = "LOGIN_SUCCESS"
	auditEventFailedLogin                = "FAILED_LOGIN"
	auditEventAccountLocked              = "ACCOUNT_LOCKED"
	auditEventRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
	auditEventMFARequired                = "MFA_REQUIRED"
	auditEventMFASuccess                 = "MFA_SUCCESS"
	auditEventMFAFailed                  = "MFA_FAILED"
	auditEventMFAEnabled                 = "MFA_ENABLED"
	auditEventMFADisabled                = "MFA_DISABLED"
	auditEventBackupCodeUsed             = "BACKUP_CODE_USED"
	auditEventTokenRefreshed             = "TOKEN_REFRESHED"
	auditEventUserLogout                 = "USER_LOGOUT"
	auditEventEmailVerified              = "EMAIL_VERIFIED"
	auditEventEmailVerificationFailed    = "EMAIL_VERIFICATION_FAILED"
	auditEventVerificationTokenResent    = "VERIFICATION_TOKEN_RESENT"
	auditEventPasswordResetRequested     = "PASSWORD_RESET_REQUESTED"
	auditEventForgotPasswordUnknown      = "FORGOT_PASSWORD_UNKNOWN_EMAIL"
	auditEventResetTokenResent           = "RESET_TOKEN_RESENT"
	auditEventPasswordResetCompleted     = "PASSWORD_RESET_COMPLETED"
	auditEventPasswordResetFailed        = "PASSWORD_RESET_FAILED"
	auditEventPasswordChanged            = "PASSWORD_CHANGED"
	auditEventPasswordChangeWrongCurrent = "PASSWORD_CHANGE_WRONG_CURRENT"
	auditEventNotificationFailed         = "NOTIFICATION_FAILED"
)

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrEmailNotVerified   AuditErrorCode = "email_not_verified"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrWeakPassword       AuditErrorCode = "weak_password"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrMFAFailed          AuditErrorCode = "mfa_failed"
	auditErrMFANotEnabled      AuditErrorCode = "mfa_not_enabled"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrAlreadyVerified    AuditErrorCode = "already_verified"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	identifier string,
	success bool,
	err error,
	detailsBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var details map[string]string
	if detailsBuilder != nil {
		details = detailsBuilder()
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  eventType,
		Identifier: identifier,
		Success:    success,
		Details:    details,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrEmailNotVerified
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrMFAChallengeFailed):
		return auditErrMFAFailed
	case errors.Is(err, ErrMFANotEnabled):
		return auditErrMFANotEnabled
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrEnrollmentNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	default:
		return auditErrInternal
	}
}

// SecurityEvents returns a copy of the retained audit events newer than
// window, oldest first. A zero window returns everything still retained.
func (e *Engine) SecurityEvents(window time.Duration) []AuditEvent {
	if e == nil || e.recorder == nil {
		return nil
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = e.now().Add(-window)
	}
	return e.recorder.EventsSince(cutoff)
}
