package authcore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

var backupCodePattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

func TestSetupTOTPReturnsProvisioningMaterial(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	setup, err := env.engine.SetupTOTP(ctx, testEmail)
	if err != nil {
		t.Fatalf("SetupTOTP failed: %v", err)
	}
	if setup.Secret == "" {
		t.Fatal("expected a secret")
	}
	if !strings.HasPrefix(setup.QRCodeURL, "otpauth://totp/") {
		t.Fatalf("QRCodeURL = %q, want otpauth URL", setup.QRCodeURL)
	}
	if !strings.Contains(setup.QRCodeURL, "Academix") {
		t.Fatalf("QRCodeURL %q should carry the issuer", setup.QRCodeURL)
	}
	if strings.ReplaceAll(setup.ManualEntryKey, " ", "") != setup.Secret {
		t.Fatalf("ManualEntryKey %q does not regroup the secret %q", setup.ManualEntryKey, setup.Secret)
	}

	// Enrollment stays pending until the code is confirmed.
	status, err := env.engine.MFAStatus(ctx, testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if status.Enabled {
		t.Fatal("MFA must not be enabled before confirmation")
	}
	if !status.HasTOTP {
		t.Fatal("pending secret should be visible in the status")
	}
}

func TestConfirmTOTPSetupWrongCode(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.SetupTOTP(ctx, testEmail); err != nil {
		t.Fatalf("SetupTOTP failed: %v", err)
	}
	if _, err := env.engine.ConfirmTOTPSetup(ctx, testEmail, "000000"); !errors.Is(err, ErrMFAChallengeFailed) {
		t.Fatalf("got %v, want ErrMFAChallengeFailed", err)
	}

	status, err := env.engine.MFAStatus(ctx, testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if status.Enabled {
		t.Fatal("a failed confirmation must not enable MFA")
	}
}

func TestConfirmTOTPSetupIssuesBackupCodes(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	_, codes := env.enableTOTP(t, testEmail)
	if len(codes) != 8 {
		t.Fatalf("backup codes = %d, want 8", len(codes))
	}
	for _, code := range codes {
		if !backupCodePattern.MatchString(code) {
			t.Fatalf("backup code %q does not match NNNN-NNNN", code)
		}
	}

	status, err := env.engine.MFAStatus(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if !status.Enabled || status.PrimaryMethod != MethodTOTP || !status.HasBackupCodes {
		t.Fatalf("unexpected status after enrollment: %+v", status)
	}
}

func TestSetupTOTPUnknownAccount(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	if _, err := env.engine.SetupTOTP(context.Background(), "nobody@academix.io"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestConfirmTOTPSetupWithoutPendingSecret(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	if _, err := env.engine.ConfirmTOTPSetup(context.Background(), testEmail, "123456"); !errors.Is(err, ErrMFANotEnabled) {
		t.Fatalf("got %v, want ErrMFANotEnabled", err)
	}
}

func TestSMSSetupFallsBackToEmailWithoutSender(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.SetupSMS(ctx, testEmail, "+15550100"); err != nil {
		t.Fatalf("SetupSMS failed: %v", err)
	}

	// No SMS transport configured, so the code arrives by email instead.
	code := env.mailer.mfaCode(testEmail)
	if code == "" {
		t.Fatal("expected the challenge code to fall back to email delivery")
	}
	if _, err := env.engine.ConfirmSMSSetup(ctx, testEmail, code); err != nil {
		t.Fatalf("ConfirmSMSSetup failed: %v", err)
	}

	status, err := env.engine.MFAStatus(ctx, testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if status.PrimaryMethod != MethodSMS || !status.HasPhone {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestSetupSMSRequiresPhone(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	if _, err := env.engine.SetupSMS(context.Background(), testEmail, ""); !errors.Is(err, ErrMFAChallengeFailed) {
		t.Fatalf("got %v, want ErrMFAChallengeFailed", err)
	}
}

func TestSendMFAChallengeResendsCode(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.EnableEmailMFA(ctx, testEmail); err != nil {
		t.Fatalf("EnableEmailMFA failed: %v", err)
	}
	if _, err := env.engine.ConfirmEmailMFASetup(ctx, testEmail, env.mailer.mfaCode(testEmail)); err != nil {
		t.Fatalf("ConfirmEmailMFASetup failed: %v", err)
	}

	result, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	first := env.mailer.mfaCode(testEmail)

	if err := env.engine.SendMFAChallenge(ctx, result.TempToken, ""); err != nil {
		t.Fatalf("SendMFAChallenge failed: %v", err)
	}
	second := env.mailer.mfaCode(testEmail)
	if second == "" {
		t.Fatal("expected a resent code")
	}

	// The resend replaced the pending slot, so only the latest code counts.
	if second != first {
		if _, err := env.engine.ConfirmLoginMFA(ctx, result.TempToken, first); !errors.Is(err, ErrMFAChallengeFailed) {
			t.Fatalf("stale code: got %v, want ErrMFAChallengeFailed", err)
		}
	}
	result2, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	latest := env.mailer.mfaCode(testEmail)
	if _, err := env.engine.ConfirmLoginMFA(ctx, result2.TempToken, latest); err != nil {
		t.Fatalf("ConfirmLoginMFA with latest code failed: %v", err)
	}
}

func TestDisableMFA(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	env.enableTOTP(t, testEmail)
	ctx := context.Background()

	if err := env.engine.DisableMFA(ctx, testEmail, "Wrong#Pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}

	if err := env.engine.DisableMFA(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("DisableMFA failed: %v", err)
	}

	status, err := env.engine.MFAStatus(ctx, testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if status.Enabled || status.HasTOTP || status.HasBackupCodes {
		t.Fatalf("expected a cleared enrollment, got %+v", status)
	}

	// Login no longer requires a second factor.
	result, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.MFARequired {
		t.Fatal("expected a direct session after disabling MFA")
	}
}

func TestDisableMFAWithoutEnrollment(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	if err := env.engine.DisableMFA(context.Background(), testEmail, testPassword); !errors.Is(err, ErrMFANotEnabled) {
		t.Fatalf("got %v, want ErrMFANotEnabled", err)
	}
}

func TestRegenerateBackupCodesInvalidatesOldOnes(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	_, oldCodes := env.enableTOTP(t, testEmail)
	ctx := context.Background()

	if _, err := env.engine.RegenerateBackupCodes(ctx, testEmail, "Wrong#Pass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}

	newCodes, err := env.engine.RegenerateBackupCodes(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("RegenerateBackupCodes failed: %v", err)
	}
	if len(newCodes) != 8 {
		t.Fatalf("backup codes = %d, want 8", len(newCodes))
	}

	result, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := env.engine.ConfirmLoginMFAWithMethod(ctx, result.TempToken, oldCodes[0], MethodBackup); !errors.Is(err, ErrMFAChallengeFailed) {
		t.Fatalf("old backup code: got %v, want ErrMFAChallengeFailed", err)
	}
	if _, err := env.engine.ConfirmLoginMFAWithMethod(ctx, result.TempToken, newCodes[0], MethodBackup); err != nil {
		t.Fatalf("new backup code failed: %v", err)
	}
}

func TestMFAStatusWithoutEnrollment(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	status, err := env.engine.MFAStatus(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("MFAStatus failed: %v", err)
	}
	if status.Enabled || status.HasTOTP || status.HasPhone || status.HasBackupCodes {
		t.Fatalf("expected an empty status, got %+v", status)
	}
}

func TestTOTPVerifyAcceptsAdjacentStep(t *testing.T) {
	clock := newFakeClock()
	manager := newTOTPManager(MFAConfig{
		Issuer: "Academix",
		Period: 30,
		Skew:   1,
	}, clock.Now)

	secret, _, err := manager.Generate(testEmail)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Codes from the previous and next step are inside the accepted skew.
	for _, offset := range []int{-30, 0, 30} {
		code, err := totp.GenerateCode(secret, clock.Now().Add(time.Duration(offset)*time.Second))
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if !manager.Verify(code, secret) {
			t.Fatalf("code at offset %ds rejected", offset)
		}
	}

	// Two steps away is outside the window.
	stale, err := totp.GenerateCode(secret, clock.Now().Add(-90*time.Second))
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	if manager.Verify(stale, secret) {
		t.Fatal("code two steps in the past must be rejected")
	}

	if manager.Verify("", secret) || manager.Verify("123456", "") {
		t.Fatal("empty inputs must be rejected")
	}
}

func TestBackupCodeSingleUseUnderConcurrentConfirms(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	_, codes := env.enableTOTP(t, testEmail)
	ctx := context.Background()

	const confirmers = 4
	tempTokens := make([]string, confirmers)
	for i := range tempTokens {
		result, err := env.engine.Login(ctx, testEmail, testPassword)
		if err != nil {
			t.Fatalf("Login %d failed: %v", i+1, err)
		}
		tempTokens[i] = result.TempToken
	}

	code := codes[0]
	start := make(chan struct{})
	results := make(chan error, confirmers)
	var wg sync.WaitGroup
	for i := 0; i < confirmers; i++ {
		wg.Add(1)
		go func(tempToken string) {
			defer wg.Done()
			<-start
			_, err := env.engine.ConfirmLoginMFAWithMethod(ctx, tempToken, code, MethodBackup)
			results <- err
		}(tempTokens[i])
	}
	close(start)
	wg.Wait()
	close(results)

	successes, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrMFAChallengeFailed):
			rejected++
		default:
			t.Fatalf("unexpected confirm error: %v", err)
		}
	}
	if successes != 1 || rejected != confirmers-1 {
		t.Fatalf("backup code accepted %d times (%d rejected), want exactly one use", successes, rejected)
	}

	// A fresh login must still reject the spent code.
	result, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := env.engine.ConfirmLoginMFAWithMethod(ctx, result.TempToken, code, MethodBackup); !errors.Is(err, ErrMFAChallengeFailed) {
		t.Fatalf("got %v, want ErrMFAChallengeFailed for the spent code", err)
	}
}
