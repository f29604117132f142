package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/academix-io/authcore/internal"
)

// ForgotPassword issues a time-limited reset token and mails it to the
// account. The response never reveals whether the email exists; unknown
// addresses are only visible in the audit log.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !e.allowRate(ctx, email, rateActionForgotPassword) {
		return nil, ErrRateLimited
	}

	generic := &AuthResponse{
		Message: "If the email exists, a password reset link has been sent.",
	}

	store, account, err := e.storeFor(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, auditEventForgotPasswordUnknown, email, false, nil, nil)
			return generic, nil
		}
		return nil, err
	}

	resetToken, err := internal.NewURLToken()
	if err != nil {
		return nil, err
	}

	account.ResetToken = resetToken
	account.ResetExpiry = e.now().Add(e.config.Reset.TokenTTL)
	account.UpdatedAt = e.now()
	if err := store.Save(ctx, account); err != nil {
		return nil, err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequested, email, true, nil, nil)

	e.notifyFailure(ctx, email, "password_reset",
		e.mailer.SendPasswordReset(ctx, email, account.FullName, resetToken))

	return generic, nil
}

// ResetPassword sets a new password using a single-use reset token. The new
// hash and the cleared token land in one Save, so a crash between the two
// can never leave a spent token behind.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if resetToken == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	store, account, err := e.findByResetToken(ctx, resetToken)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailed, "", false, ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}

	if e.now().After(account.ResetExpiry) {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailed, account.Email, false, ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}

	if violations := e.policy.Validate(newPassword); len(violations) > 0 {
		e.metricInc(MetricPasswordResetFailure)
		return nil, &PolicyError{Violations: violations}
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	account.PasswordHash = hash
	account.ResetToken = ""
	account.ResetExpiry = time.Time{}
	account.UpdatedAt = e.now()
	if err := store.Save(ctx, account); err != nil {
		return nil, err
	}

	e.lockouts.Reset(account.Email)
	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetCompleted, account.Email, true, nil, nil)

	return &AuthResponse{
		Message: "Password reset successfully. You can now log in with your new password.",
	}, nil
}

func (e *Engine) findByResetToken(ctx context.Context, resetToken string) (AccountStore, *Account, error) {
	for _, store := range e.accountStores {
		account, err := store.FindByResetToken(ctx, resetToken)
		if err == nil {
			return store, account, nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrAccountNotFound
}

// ChangePassword replaces the password for an authenticated account after
// re-verifying the current one.
func (e *Engine) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !e.allowRate(ctx, email, rateActionChangePassword) {
		return nil, ErrRateLimited
	}

	store, account, err := e.storeFor(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !e.passwordHash.Verify(currentPassword, account.PasswordHash) {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeWrongCurrent, email, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if violations := e.policy.Validate(newPassword); len(violations) > 0 {
		e.metricInc(MetricPasswordChangeFailure)
		return nil, &PolicyError{Violations: violations}
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	account.PasswordHash = hash
	account.UpdatedAt = e.now()
	if err := store.Save(ctx, account); err != nil {
		return nil, err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, email, true, nil, nil)

	return &AuthResponse{
		Message: "Password changed successfully.",
	}, nil
}
