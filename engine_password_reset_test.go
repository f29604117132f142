package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	res, err := env.engine.ForgotPassword(ctx, testEmail)
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if res.Message == "" {
		t.Fatal("expected a generic response message")
	}

	token := env.mailer.resetToken(testEmail)
	if token == "" {
		t.Fatal("expected a reset token to be mailed")
	}

	const newPassword = "Fresh#Pass77"
	if _, err := env.engine.ResetPassword(ctx, token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, err := env.engine.Login(ctx, testEmail, newPassword); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.mailer.resetToken(testEmail)

	if _, err := env.engine.ResetPassword(ctx, token, "Fresh#Pass77"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := env.engine.ResetPassword(ctx, token, "Other#Pass88"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("replayed token: got %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestPasswordResetExpiredToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.mailer.resetToken(testEmail)

	env.clock.Advance(15*time.Minute + time.Second)

	if _, err := env.engine.ResetPassword(ctx, token, "Fresh#Pass77"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("got %v, want ErrInvalidOrExpiredToken", err)
	}

	// The old password still works; nothing was changed.
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login with old password failed: %v", err)
	}
}

func TestPasswordResetWeakNewPassword(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.mailer.resetToken(testEmail)

	if _, err := env.engine.ResetPassword(ctx, token, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}

	// The rejected attempt does not consume the token.
	if _, err := env.engine.ResetPassword(ctx, token, "Fresh#Pass77"); err != nil {
		t.Fatalf("ResetPassword after policy rejection failed: %v", err)
	}
}

func TestForgotPasswordUnknownEmailIsGeneric(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	known, err := env.engine.ForgotPassword(ctx, testEmail)
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	unknown, err := env.engine.ForgotPassword(ctx, "nobody@academix.io")
	if err != nil {
		t.Fatalf("ForgotPassword for unknown email failed: %v", err)
	}

	if known.Message != unknown.Message {
		t.Fatalf("responses differ: %q vs %q", known.Message, unknown.Message)
	}
	if got := env.mailer.resetToken("nobody@academix.io"); got != "" {
		t.Fatalf("no mail should go out for unknown addresses, got token %q", got)
	}
}

func TestPasswordResetClearsLockout(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := env.engine.Login(ctx, testEmail, "Wrong#Pass1"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}

	if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	const newPassword = "Fresh#Pass77"
	if _, err := env.engine.ResetPassword(ctx, env.mailer.resetToken(testEmail), newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	// Completing a reset lifts the lock without waiting out the duration.
	if _, err := env.engine.Login(ctx, testEmail, newPassword); err != nil {
		t.Fatalf("Login after reset failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	const newPassword = "Fresh#Pass77"
	if _, err := env.engine.ChangePassword(ctx, testEmail, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, err := env.engine.Login(ctx, testEmail, newPassword); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.ChangePassword(ctx, testEmail, "Wrong#Pass1", "Fresh#Pass77"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}

	// The password is untouched.
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestChangePasswordWeakReplacement(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	if _, err := env.engine.ChangePassword(context.Background(), testEmail, testPassword, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}
}

func TestChangePasswordUnknownAccount(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	if _, err := env.engine.ChangePassword(context.Background(), "nobody@academix.io", testPassword, "Fresh#Pass77"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	if _, err := env.engine.ForgotPassword(ctx, testEmail); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}

	env.clock.Advance(time.Minute + time.Second)
	if _, err := env.engine.ForgotPassword(ctx, testEmail); err != nil {
		t.Fatalf("request after window elapsed failed: %v", err)
	}
}

func TestChangePasswordRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := env.engine.ChangePassword(ctx, testEmail, "Wrong#Pass1", "Fresh#Pass42"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}
	if _, err := env.engine.ChangePassword(ctx, testEmail, testPassword, "Fresh#Pass42"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}

	// The change-password window is separate from the login window.
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login while change-password is limited failed: %v", err)
	}

	env.clock.Advance(time.Minute + time.Second)
	if _, err := env.engine.ChangePassword(ctx, testEmail, testPassword, "Fresh#Pass42"); err != nil {
		t.Fatalf("ChangePassword after window elapsed failed: %v", err)
	}
}
