package authcore

import (
	"context"
	"errors"

	"github.com/academix-io/authcore/token"
)

// Refresh rotates a refresh token into a fresh access and refresh token
// pair. The new pair is issued before the old refresh token is revoked, so
// a revocation failure can never leave the caller with nothing.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if !e.tokens.ValidateKind(ctx, refreshToken, token.KindRefresh) {
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricTokenRejected)
		return nil, ErrInvalidOrExpiredToken
	}

	claims, err := e.tokens.Parse(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidOrExpiredToken
	}

	account, err := e.findAccount(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if account.Deleted {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidOrExpiredToken
	}
	if !account.Active {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventFailedLogin, account.Email, false, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	result, err := e.issueSession(ctx, account, auditEventTokenRefreshed)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricRefreshSuccess)

	if err := e.tokens.Revoke(ctx, refreshToken); err != nil {
		e.logRevokeFailure(account.Email, err)
	}
	e.metricInc(MetricTokenBlacklisted)

	return result, nil
}

// Logout revokes the presented tokens. Malformed or already-expired tokens
// are ignored: the caller ends up logged out either way.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	var email string
	if claims, err := e.tokens.Parse(accessToken); err == nil {
		email = claims.Subject
	} else if claims, err := e.tokens.Parse(refreshToken); err == nil {
		email = claims.Subject
	}

	if err := e.tokens.Revoke(ctx, accessToken); err != nil {
		e.logRevokeFailure(email, err)
	}
	if refreshToken != "" {
		if err := e.tokens.Revoke(ctx, refreshToken); err != nil {
			e.logRevokeFailure(email, err)
		}
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricTokenBlacklisted)
	e.emitAudit(ctx, auditEventUserLogout, email, true, nil, nil)
	return nil
}
