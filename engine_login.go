package authcore

import (
	"context"
	"errors"

	"github.com/academix-io/authcore/token"
)

// Dummy cost-12 hash of an unknowable value, compared when the account does
// not exist so the miss path costs as much as a real verification.
const phantomHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Each abuse-prone operation spends its own sliding window, keyed by
// (action, identifier). A burst of password changes therefore cannot
// exhaust the same account's login budget.
const (
	rateActionLogin          = "login"
	rateActionRegister       = "register"
	rateActionForgotPassword = "forgot_password"
	rateActionResendToken    = "resend_token"
	rateActionChangePassword = "change_password"
)

func (e *Engine) allowRate(ctx context.Context, email, action string) bool {
	if e.rateLimiter == nil {
		return true
	}
	if e.rateLimiter.Allow(action + ":" + email) {
		return true
	}

	if action == rateActionLogin {
		e.metricInc(MetricLoginRateLimited)
	} else {
		e.metricInc(MetricRateLimited)
	}
	e.emitAudit(ctx, auditEventRateLimitExceeded, email, false, ErrRateLimited, func() map[string]string {
		return map[string]string{"action": action}
	})
	return false
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)

	if !e.allowRate(ctx, email, rateActionLogin) {
		return nil, ErrRateLimited
	}

	if e.lockouts.IsLocked(email) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventFailedLogin, email, false, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}

	account, err := e.findAccount(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		account = nil
	}
	if account != nil && account.Deleted {
		account = nil
	}

	if account == nil {
		e.passwordHash.Verify(pass, phantomHash)
		e.recordLoginFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if !e.passwordHash.Verify(pass, account.PasswordHash) {
		e.recordLoginFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if e.config.Verification.RequireForLogin && !account.EmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventFailedLogin, email, false, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	if !account.Active {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventFailedLogin, email, false, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	e.lockouts.Reset(email)

	if enrollment := e.enabledEnrollment(ctx, email); enrollment != nil {
		return e.beginMFALogin(ctx, account, enrollment)
	}

	return e.issueSession(ctx, account, auditEventLoginSuccess)
}

func (e *Engine) recordLoginFailure(ctx context.Context, email string) {
	e.metricInc(MetricLoginFailure)
	if e.lockouts.RecordFailure(email) {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventAccountLocked, email, false, ErrAccountLocked, nil)
	}
	e.emitAudit(ctx, auditEventFailedLogin, email, false, ErrInvalidCredentials, nil)
}

// enabledEnrollment returns the account's MFA enrollment when MFA is
// configured and enabled, nil otherwise.
func (e *Engine) enabledEnrollment(ctx context.Context, email string) *Enrollment {
	if e.mfaStore == nil {
		return nil
	}
	enrollment, err := e.mfaStore.GetEnrollment(ctx, email)
	if err != nil || !enrollment.Enabled {
		return nil
	}
	return enrollment
}

func (e *Engine) beginMFALogin(ctx context.Context, account *Account, enrollment *Enrollment) (*LoginResult, error) {
	tempToken, err := e.tokens.Issue(token.KindTempMFA, account.Email, string(account.Role), account.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricMFARequired)
	e.emitAudit(ctx, auditEventMFARequired, account.Email, true, nil, func() map[string]string {
		return map[string]string{"method": string(enrollment.PrimaryMethod)}
	})

	if err := e.deliverChallenge(ctx, account, enrollment, enrollment.PrimaryMethod); err != nil {
		return nil, err
	}

	return &LoginResult{
		Message:     "MFA verification required",
		MFARequired: true,
		MFAMethod:   enrollment.PrimaryMethod,
		TempToken:   tempToken,
	}, nil
}

// deliverChallenge generates and sends a one-time code for code-based
// methods. TOTP needs no delivery: the authenticator app holds the secret.
func (e *Engine) deliverChallenge(ctx context.Context, account *Account, enrollment *Enrollment, method MFAMethod) error {
	switch method {
	case MethodTOTP, MethodBackup:
		return nil
	case MethodSMS, MethodEmail:
	default:
		return ErrMFAChallengeFailed
	}

	code, err := e.newChallengeCode(ctx, account.Email)
	if err != nil {
		return err
	}

	if method == MethodSMS && e.sms != nil && enrollment.Phone != "" {
		e.notifyFailure(ctx, enrollment.Phone, "mfa_sms", e.sms.SendCode(ctx, enrollment.Phone, code))
		return nil
	}

	// Email delivery also covers SMS enrollments when no SMS sender is
	// configured, so login is never blocked on a missing transport.
	e.notifyFailure(ctx, account.Email, "mfa_email", e.mailer.SendMFACode(ctx, account.Email, code))
	return nil
}

func (e *Engine) newChallengeCode(ctx context.Context, email string) (string, error) {
	code, err := newOTP()
	if err != nil {
		return "", err
	}
	if err := e.codes.Put(ctx, email, code, e.config.MFA.CodeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// ConfirmLoginMFA completes an MFA login using the enrollment's primary
// method.
func (e *Engine) ConfirmLoginMFA(ctx context.Context, tempToken, code string) (*LoginResult, error) {
	return e.ConfirmLoginMFAWithMethod(ctx, tempToken, code, "")
}

// ConfirmLoginMFAWithMethod completes an MFA login using an explicit
// method, allowing fallback to backup codes or a secondary channel. The
// temporary token is consumed only on success; a failed code leaves it
// usable for another attempt until it expires.
func (e *Engine) ConfirmLoginMFAWithMethod(ctx context.Context, tempToken, code string, method MFAMethod) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if !e.tokens.ValidateKind(ctx, tempToken, token.KindTempMFA) {
		e.metricInc(MetricTokenRejected)
		return nil, ErrInvalidOrExpiredToken
	}
	claims, err := e.tokens.Parse(tempToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	email := claims.Subject

	enrollment := e.enabledEnrollment(ctx, email)
	if enrollment == nil {
		return nil, ErrMFANotEnabled
	}
	if method == "" {
		method = enrollment.PrimaryMethod
	}

	ok, err := e.verifyChallenge(ctx, email, enrollment, method, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailed, email, false, ErrMFAChallengeFailed, func() map[string]string {
			return map[string]string{"method": string(method)}
		})
		return nil, ErrMFAChallengeFailed
	}

	account, err := e.findAccount(ctx, email)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	e.metricInc(MetricMFASuccess)
	e.emitAudit(ctx, auditEventMFASuccess, email, true, nil, func() map[string]string {
		return map[string]string{"method": string(method)}
	})

	result, err := e.issueSession(ctx, account, auditEventLoginSuccess)
	if err != nil {
		return nil, err
	}

	// Consume the temp token after the real tokens exist so a storage
	// hiccup cannot strand the user without either.
	if err := e.tokens.Revoke(ctx, tempToken); err != nil {
		e.logRevokeFailure(email, err)
	}

	return result, nil
}

// verifyChallenge checks one code against the chosen method. The boolean
// reports match/mismatch; the error reports misconfiguration or backend
// failure.
func (e *Engine) verifyChallenge(ctx context.Context, email string, enrollment *Enrollment, method MFAMethod, code string) (bool, error) {
	switch method {
	case MethodTOTP:
		if enrollment.TOTPSecret == "" {
			return false, ErrMFANotEnabled
		}
		return e.totp.Verify(code, enrollment.TOTPSecret), nil

	case MethodSMS, MethodEmail:
		err := e.codes.Verify(ctx, email, code, e.config.MFA.CodeMaxAttempts)
		if err == nil {
			return true, nil
		}
		if isChallengeMiss(err) {
			return false, nil
		}
		return false, err

	case MethodBackup:
		return e.consumeBackupCode(ctx, email, code)

	default:
		return false, ErrMFAChallengeFailed
	}
}

// consumeBackupCode spends one backup code. The enrollment is re-read under
// backupMu so that two concurrent confirmations carrying the same code
// cannot both match against a stale copy.
func (e *Engine) consumeBackupCode(ctx context.Context, email, code string) (bool, error) {
	e.backupMu.Lock()
	defer e.backupMu.Unlock()

	enrollment, err := e.mfaStore.GetEnrollment(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return false, nil
		}
		return false, err
	}

	for i, candidate := range enrollment.BackupCodes {
		if candidate != code {
			continue
		}

		enrollment.BackupCodes = append(enrollment.BackupCodes[:i], enrollment.BackupCodes[i+1:]...)
		if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
			return false, err
		}

		e.metricInc(MetricBackupCodeUsed)
		e.emitAudit(ctx, auditEventBackupCodeUsed, email, true, nil, nil)
		return true, nil
	}
	return false, nil
}

// issueSession creates the access and refresh token pair for a fully
// authenticated account.
func (e *Engine) issueSession(ctx context.Context, account *Account, eventType string) (*LoginResult, error) {
	accessToken, err := e.tokens.Issue(token.KindAccess, account.Email, string(account.Role), account.ID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := e.tokens.Issue(token.KindRefresh, account.Email, string(account.Role), account.ID)
	if err != nil {
		return nil, err
	}

	if eventType == auditEventLoginSuccess {
		e.metricInc(MetricLoginSuccess)
	}
	e.emitAudit(ctx, eventType, account.Email, true, nil, nil)

	return &LoginResult{
		Message:      "Authentication successful",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(e.config.Token.AccessTTL.Seconds()),
		User:         userInfo(account),
	}, nil
}
