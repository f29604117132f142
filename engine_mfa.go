package authcore

import (
	"context"
	"errors"

	"github.com/academix-io/authcore/internal"
	"github.com/academix-io/authcore/token"
)

// getOrCreateEnrollment loads the account's enrollment, creating an empty
// disabled one on first touch.
func (e *Engine) getOrCreateEnrollment(ctx context.Context, email string) (*Enrollment, error) {
	enrollment, err := e.mfaStore.GetEnrollment(ctx, email)
	if err == nil {
		return enrollment, nil
	}
	if errors.Is(err, ErrEnrollmentNotFound) {
		return &Enrollment{}, nil
	}
	return nil, err
}

func (e *Engine) requireAccount(ctx context.Context, email string) (*Account, error) {
	account, err := e.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if account.Deleted || !account.Active {
		return nil, ErrAccountDisabled
	}
	return account, nil
}

// SetupTOTP provisions a new authenticator secret for the account. The
// secret stays pending until ConfirmTOTPSetup proves the authenticator can
// produce a valid code; calling SetupTOTP again replaces the pending secret.
func (e *Engine) SetupTOTP(ctx context.Context, email string) (*TOTPSetup, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if _, err := e.requireAccount(ctx, email); err != nil {
		return nil, err
	}

	secret, url, err := e.totp.Generate(email)
	if err != nil {
		return nil, err
	}

	enrollment, err := e.getOrCreateEnrollment(ctx, email)
	if err != nil {
		return nil, err
	}
	enrollment.TOTPSecret = secret
	if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
		return nil, err
	}

	return &TOTPSetup{
		Secret:         secret,
		QRCodeURL:      url,
		ManualEntryKey: manualEntryKey(secret),
	}, nil
}

// ConfirmTOTPSetup activates TOTP as the primary method once the user
// proves possession of the secret. The returned backup codes are shown this
// one time; each is usable once.
func (e *Engine) ConfirmTOTPSetup(ctx context.Context, email, code string) ([]string, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	enrollment, err := e.getOrCreateEnrollment(ctx, email)
	if err != nil {
		return nil, err
	}
	if enrollment.TOTPSecret == "" {
		return nil, ErrMFANotEnabled
	}

	if !e.totp.Verify(code, enrollment.TOTPSecret) {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailed, email, false, ErrMFAChallengeFailed, func() map[string]string {
			return map[string]string{"method": string(MethodTOTP), "phase": "setup"}
		})
		return nil, ErrMFAChallengeFailed
	}

	codes, err := e.newBackupCodes()
	if err != nil {
		return nil, err
	}

	enrollment.Enabled = true
	enrollment.PrimaryMethod = MethodTOTP
	enrollment.BackupCodes = codes
	if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventMFAEnabled, email, true, nil, func() map[string]string {
		return map[string]string{"method": string(MethodTOTP)}
	})

	return codes, nil
}

// SetupSMS stores the phone number and sends a confirmation code to it.
func (e *Engine) SetupSMS(ctx context.Context, email, phone string) (*AuthResponse, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	account, err := e.requireAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if phone == "" {
		return nil, ErrMFAChallengeFailed
	}

	enrollment, err := e.getOrCreateEnrollment(ctx, email)
	if err != nil {
		return nil, err
	}
	enrollment.Phone = phone
	if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
		return nil, err
	}

	code, err := e.newChallengeCode(ctx, email)
	if err != nil {
		return nil, err
	}
	if e.sms != nil {
		e.notifyFailure(ctx, phone, "mfa_sms", e.sms.SendCode(ctx, phone, code))
	} else {
		e.notifyFailure(ctx, email, "mfa_email", e.mailer.SendMFACode(ctx, account.Email, code))
	}

	return &AuthResponse{
		Message: "A verification code has been sent to your phone.",
	}, nil
}

// ConfirmSMSSetup activates SMS as the primary method once the code sent by
// SetupSMS is confirmed.
func (e *Engine) ConfirmSMSSetup(ctx context.Context, email, code string) ([]string, error) {
	return e.confirmCodeSetup(ctx, normalizeEmail(email), code, MethodSMS)
}

// EnableEmailMFA sends a confirmation code to the account's own address;
// ConfirmEmailMFASetup activates email as the primary method.
func (e *Engine) EnableEmailMFA(ctx context.Context, email string) (*AuthResponse, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	account, err := e.requireAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	code, err := e.newChallengeCode(ctx, email)
	if err != nil {
		return nil, err
	}
	e.notifyFailure(ctx, email, "mfa_email", e.mailer.SendMFACode(ctx, account.Email, code))

	return &AuthResponse{
		Message: "A verification code has been sent to your email.",
	}, nil
}

// ConfirmEmailMFASetup completes EnableEmailMFA.
func (e *Engine) ConfirmEmailMFASetup(ctx context.Context, email, code string) ([]string, error) {
	return e.confirmCodeSetup(ctx, normalizeEmail(email), code, MethodEmail)
}

func (e *Engine) confirmCodeSetup(ctx context.Context, email, code string, method MFAMethod) ([]string, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	err := e.codes.Verify(ctx, email, code, e.config.MFA.CodeMaxAttempts)
	if err != nil {
		if isChallengeMiss(err) {
			e.metricInc(MetricMFAFailure)
			e.emitAudit(ctx, auditEventMFAFailed, email, false, ErrMFAChallengeFailed, func() map[string]string {
				return map[string]string{"method": string(method), "phase": "setup"}
			})
			return nil, ErrMFAChallengeFailed
		}
		return nil, err
	}

	enrollment, err := e.getOrCreateEnrollment(ctx, email)
	if err != nil {
		return nil, err
	}

	codes, err := e.newBackupCodes()
	if err != nil {
		return nil, err
	}

	enrollment.Enabled = true
	enrollment.PrimaryMethod = method
	enrollment.BackupCodes = codes
	if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventMFAEnabled, email, true, nil, func() map[string]string {
		return map[string]string{"method": string(method)}
	})

	return codes, nil
}

// SendMFAChallenge re-sends a login challenge for a pending temp token,
// optionally over a fallback method.
func (e *Engine) SendMFAChallenge(ctx context.Context, tempToken string, method MFAMethod) error {
	if e == nil || e.mfaStore == nil {
		return ErrEngineNotReady
	}

	if !e.tokens.ValidateKind(ctx, tempToken, token.KindTempMFA) {
		return ErrInvalidOrExpiredToken
	}
	claims, err := e.tokens.Parse(tempToken)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	enrollment := e.enabledEnrollment(ctx, claims.Subject)
	if enrollment == nil {
		return ErrMFANotEnabled
	}
	account, err := e.requireAccount(ctx, claims.Subject)
	if err != nil {
		return err
	}

	if method == "" {
		method = enrollment.PrimaryMethod
	}
	return e.deliverChallenge(ctx, account, enrollment, method)
}

// DisableMFA turns off every second factor after re-verifying the
// password. All secrets, the phone number, and remaining backup codes are
// destroyed.
func (e *Engine) DisableMFA(ctx context.Context, email, currentPassword string) error {
	if e == nil || e.mfaStore == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	account, err := e.requireAccount(ctx, email)
	if err != nil {
		return err
	}
	if !e.passwordHash.Verify(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	enrollment, err := e.mfaStore.GetEnrollment(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return ErrMFANotEnabled
		}
		return err
	}
	if !enrollment.Enabled && enrollment.TOTPSecret == "" && enrollment.Phone == "" {
		return ErrMFANotEnabled
	}

	if err := e.mfaStore.SaveEnrollment(ctx, email, &Enrollment{}); err != nil {
		return err
	}
	_ = e.codes.Delete(ctx, email)

	e.emitAudit(ctx, auditEventMFADisabled, email, true, nil, nil)
	return nil
}

// RegenerateBackupCodes replaces the remaining backup codes after
// re-verifying the password. Previously issued codes stop working.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, email, currentPassword string) ([]string, error) {
	if e == nil || e.mfaStore == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	account, err := e.requireAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if !e.passwordHash.Verify(currentPassword, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	e.backupMu.Lock()
	defer e.backupMu.Unlock()

	enrollment := e.enabledEnrollment(ctx, email)
	if enrollment == nil {
		return nil, ErrMFANotEnabled
	}

	codes, err := e.newBackupCodes()
	if err != nil {
		return nil, err
	}
	enrollment.BackupCodes = codes
	if err := e.mfaStore.SaveEnrollment(ctx, email, enrollment); err != nil {
		return nil, err
	}

	return codes, nil
}

// MFAStatus returns the read-only enrollment summary for an account.
func (e *Engine) MFAStatus(ctx context.Context, email string) (*MFAStatus, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	status := &MFAStatus{}
	if e.mfaStore == nil {
		return status, nil
	}

	enrollment, err := e.mfaStore.GetEnrollment(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return status, nil
		}
		return nil, err
	}

	status.Enabled = enrollment.Enabled
	status.PrimaryMethod = enrollment.PrimaryMethod
	status.FallbackMethod = enrollment.FallbackMethod
	status.HasPhone = enrollment.Phone != ""
	status.HasTOTP = enrollment.TOTPSecret != ""
	status.HasBackupCodes = len(enrollment.BackupCodes) > 0
	return status, nil
}

func (e *Engine) newBackupCodes() ([]string, error) {
	codes := make([]string, 0, e.config.MFA.BackupCodeCount)
	for len(codes) < e.config.MFA.BackupCodeCount {
		code, err := internal.NewBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}
