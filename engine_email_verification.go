package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/academix-io/authcore/internal"
)

// VerifyEmail confirms an address using the single-use token from the
// verification email. The token is cleared in the same write that marks the
// address verified, so it can never be replayed.
func (e *Engine) VerifyEmail(ctx context.Context, verificationToken string) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if verificationToken == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	store, account, err := e.findByVerificationToken(ctx, verificationToken)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailed, "", false, ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}

	if e.now().After(account.VerificationExpiry) {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationFailed, account.Email, false, ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}

	account.EmailVerified = true
	account.VerificationToken = ""
	account.VerificationExpiry = time.Time{}
	account.UpdatedAt = e.now()

	if err := store.Save(ctx, account); err != nil {
		return nil, err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerified, account.Email, true, nil, nil)

	e.notifyFailure(ctx, account.Email, "welcome",
		e.mailer.SendWelcome(ctx, account.Email, account.FullName))

	return &AuthResponse{
		Message: "Email verified successfully. You can now log in.",
	}, nil
}

func (e *Engine) findByVerificationToken(ctx context.Context, verificationToken string) (AccountStore, *Account, error) {
	for _, store := range e.accountStores {
		account, err := store.FindByVerificationToken(ctx, verificationToken)
		if err == nil {
			return store, account, nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrAccountNotFound
}

// ResendToken reissues the verification or reset token for an account. The
// response is the same whether or not the email exists, so the endpoint
// cannot be used to probe for registered addresses.
func (e *Engine) ResendToken(ctx context.Context, email string, kind TokenKind) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !e.allowRate(ctx, email, rateActionResendToken) {
		return nil, ErrRateLimited
	}

	generic := &AuthResponse{
		Message: "If the email exists, a new token has been sent.",
	}

	store, account, err := e.storeFor(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.emitAudit(ctx, auditEventForgotPasswordUnknown, email, false, nil, func() map[string]string {
				return map[string]string{"kind": string(kind)}
			})
			return generic, nil
		}
		return nil, err
	}

	switch kind {
	case TokenVerification:
		if account.EmailVerified {
			return nil, ErrAlreadyVerified
		}

		newToken, err := internal.NewURLToken()
		if err != nil {
			return nil, err
		}
		account.VerificationToken = newToken
		account.VerificationExpiry = e.now().Add(e.config.Verification.TokenTTL)
		account.UpdatedAt = e.now()
		if err := store.Save(ctx, account); err != nil {
			return nil, err
		}

		e.emitAudit(ctx, auditEventVerificationTokenResent, email, true, nil, nil)
		e.notifyFailure(ctx, email, "verification",
			e.mailer.SendVerification(ctx, email, account.FullName, newToken))
		return generic, nil

	case TokenReset:
		newToken, err := internal.NewURLToken()
		if err != nil {
			return nil, err
		}
		account.ResetToken = newToken
		account.ResetExpiry = e.now().Add(e.config.Reset.TokenTTL)
		account.UpdatedAt = e.now()
		if err := store.Save(ctx, account); err != nil {
			return nil, err
		}

		e.emitAudit(ctx, auditEventResetTokenResent, email, true, nil, nil)
		e.notifyFailure(ctx, email, "password_reset",
			e.mailer.SendPasswordReset(ctx, email, account.FullName, newToken))
		return generic, nil

	default:
		return nil, errors.New("unsupported token kind")
	}
}
