package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func registerOnly(t *testing.T, env *testEnv, email string) {
	t.Helper()

	if _, err := env.engine.Register(context.Background(), RegisterInput{
		Email: email, Password: testPassword, FullName: "Alice Example",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestVerifyEmailMarksAccountVerified(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	registerOnly(t, env, testEmail)
	ctx := context.Background()

	token := env.mailer.verificationToken(testEmail)
	if _, err := env.engine.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	account := env.store.get(t, testEmail)
	if !account.EmailVerified {
		t.Fatal("expected EmailVerified after VerifyEmail")
	}
	if account.VerificationToken != "" {
		t.Fatal("expected the verification token to be cleared")
	}

	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login after verification failed: %v", err)
	}
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	registerOnly(t, env, testEmail)
	ctx := context.Background()

	token := env.mailer.verificationToken(testEmail)
	if _, err := env.engine.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if _, err := env.engine.VerifyEmail(ctx, token); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("replayed token: got %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	registerOnly(t, env, testEmail)
	ctx := context.Background()

	env.clock.Advance(24*time.Hour + time.Second)

	token := env.mailer.verificationToken(testEmail)
	if _, err := env.engine.VerifyEmail(ctx, token); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("got %v, want ErrInvalidOrExpiredToken", err)
	}

	account := env.store.get(t, testEmail)
	if account.EmailVerified {
		t.Fatal("expired token must not verify the account")
	}
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	if _, err := env.engine.VerifyEmail(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("got %v, want ErrInvalidOrExpiredToken", err)
	}
	if _, err := env.engine.VerifyEmail(context.Background(), ""); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("empty token: got %v, want ErrInvalidOrExpiredToken", err)
	}
}

func TestResendVerificationTokenReplacesOld(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	registerOnly(t, env, testEmail)
	ctx := context.Background()

	first := env.mailer.verificationToken(testEmail)

	res, err := env.engine.ResendToken(ctx, testEmail, TokenVerification)
	if err != nil {
		t.Fatalf("ResendToken failed: %v", err)
	}
	if res.Message == "" {
		t.Fatal("expected a generic response message")
	}

	second := env.mailer.verificationToken(testEmail)
	if second == first {
		t.Fatal("expected a fresh verification token")
	}

	// The replaced token no longer verifies.
	if _, err := env.engine.VerifyEmail(ctx, first); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("old token: got %v, want ErrInvalidOrExpiredToken", err)
	}
	if _, err := env.engine.VerifyEmail(ctx, second); err != nil {
		t.Fatalf("new token failed: %v", err)
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)

	if _, err := env.engine.ResendToken(context.Background(), testEmail, TokenVerification); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("got %v, want ErrAlreadyVerified", err)
	}
}

func TestResendTokenUnknownEmailIsGeneric(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	res, err := env.engine.ResendToken(context.Background(), "nobody@academix.io", TokenVerification)
	if err != nil {
		t.Fatalf("ResendToken failed: %v", err)
	}
	if res.Message == "" {
		t.Fatal("expected the generic response for unknown addresses")
	}
	if got := env.mailer.verificationToken("nobody@academix.io"); got != "" {
		t.Fatalf("no mail should go out for unknown addresses, got token %q", got)
	}
}

func TestResendResetToken(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedVerified(t, testEmail, testPassword)
	ctx := context.Background()

	if _, err := env.engine.ResendToken(ctx, testEmail, TokenReset); err != nil {
		t.Fatalf("ResendToken failed: %v", err)
	}

	token := env.mailer.resetToken(testEmail)
	if token == "" {
		t.Fatal("expected a reset token to be mailed")
	}
	if _, err := env.engine.ResetPassword(ctx, token, "Fresh#Pass77"); err != nil {
		t.Fatalf("ResetPassword with resent token failed: %v", err)
	}
}

func TestResendTokenRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	registerOnly(t, env, testEmail)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := env.engine.ResendToken(ctx, testEmail, TokenVerification); err != nil {
			t.Fatalf("resend %d failed: %v", i+1, err)
		}
	}
	if _, err := env.engine.ResendToken(ctx, testEmail, TokenVerification); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}

	env.clock.Advance(time.Minute + time.Second)
	if _, err := env.engine.ResendToken(ctx, testEmail, TokenVerification); err != nil {
		t.Fatalf("resend after window elapsed failed: %v", err)
	}
}
