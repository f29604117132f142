package authcore

import (
	"context"
	"errors"

	"github.com/academix-io/authcore/internal"
)

// RegisterInput defines a public type used by authcore APIs.
//
// RegisterInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     Role
}

// Register creates a self-service account in the primary partition. The
// account starts unverified; a verification link goes out by email and
// login stays gated until it is confirmed.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	role := input.Role
	if role == "" {
		role = RoleStudent
	}

	if !e.allowRate(ctx, email, rateActionRegister) {
		return nil, ErrRateLimited
	}

	if violations := e.policy.Validate(input.Password); len(violations) > 0 {
		e.metricInc(MetricRegistrationWeakPassword)
		return nil, &PolicyError{Violations: violations}
	}

	if _, err := e.findAccount(ctx, email); err == nil {
		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventDuplicateRegistration, email, false, ErrDuplicateEmail, nil)
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	store := e.accountStores[0]
	id, err := store.NextID(ctx)
	if err != nil {
		return nil, err
	}

	verificationToken, err := internal.NewURLToken()
	if err != nil {
		return nil, err
	}

	now := e.now()
	account := &Account{
		ID:                 id,
		Email:              email,
		PasswordHash:       hash,
		FullName:           input.FullName,
		Phone:              input.Phone,
		Role:               role,
		Active:             true,
		VerificationToken:  verificationToken,
		VerificationExpiry: now.Add(e.config.Verification.TokenTTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := store.Save(ctx, account); err != nil {
		return nil, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventUserRegistered, email, true, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})

	e.notifyFailure(ctx, email, "verification",
		e.mailer.SendVerification(ctx, email, account.FullName, verificationToken))

	return &AuthResponse{
		Message: "Registration successful. Please check your email to verify your account.",
	}, nil
}

// CreateAccount provisions an account with a system-generated password,
// already verified and active. Intended for administrative onboarding of
// staff; the generated password is returned once and never stored in
// plaintext.
func (e *Engine) CreateAccount(ctx context.Context, email, fullName string, role Role) (*UserInfo, string, error) {
	if e == nil || e.tokens == nil {
		return nil, "", ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, "", ErrInvalidCredentials
	}
	if role == "" {
		role = RoleStaff
	}

	if _, err := e.findAccount(ctx, email); err == nil {
		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventDuplicateRegistration, email, false, ErrDuplicateEmail, nil)
		return nil, "", ErrDuplicateEmail
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", err
	}

	generated, err := internal.NewPassword(e.config.Password.GeneratedLength)
	if err != nil {
		return nil, "", err
	}
	hash, err := e.passwordHash.Hash(generated)
	if err != nil {
		return nil, "", err
	}

	store := e.accountStores[0]
	id, err := store.NextID(ctx)
	if err != nil {
		return nil, "", err
	}

	now := e.now()
	account := &Account{
		ID:            id,
		Email:         email,
		PasswordHash:  hash,
		FullName:      fullName,
		Role:          role,
		EmailVerified: true,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := store.Save(ctx, account); err != nil {
		return nil, "", err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventUserRegistered, email, true, nil, func() map[string]string {
		return map[string]string{"role": string(role), "provisioned": "true"}
	})

	e.notifyFailure(ctx, email, "welcome", e.mailer.SendWelcome(ctx, email, fullName))

	return userInfo(account), generated, nil
}
