package notify

import (
	"context"
	"errors"
	"log"
)

// Mailer delivers transactional email on behalf of the engine.
type Mailer interface {
	SendVerification(ctx context.Context, email, fullName, token string) error
	SendPasswordReset(ctx context.Context, email, fullName, token string) error
	SendWelcome(ctx context.Context, email, fullName string) error
	SendMFACode(ctx context.Context, email, code string) error
}

// SMSSender delivers MFA codes to phone numbers.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogMailer is a Mailer that writes to the standard logger. Tokens and
// codes appear in the log, so it is only suitable for development.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email, _, token string) error {
	log.Printf("authcore: verification email to %s token=%s", email, token)
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, email, _, token string) error {
	log.Printf("authcore: password reset email to %s token=%s", email, token)
	return nil
}

func (LogMailer) SendWelcome(_ context.Context, email, _ string) error {
	log.Printf("authcore: welcome email to %s", email)
	return nil
}

func (LogMailer) SendMFACode(_ context.Context, email, code string) error {
	log.Printf("authcore: mfa code email to %s code=%s", email, code)
	return nil
}

// LogSMSSender is an SMSSender that writes to the standard logger.
type LogSMSSender struct{}

func (LogSMSSender) SendCode(_ context.Context, phone, code string) error {
	log.Printf("authcore: mfa code sms to %s code=%s", phone, code)
	return nil
}

// SMSViaEmail adapts a Mailer into an SMSSender for deployments without an
// SMS gateway. Resolve maps a phone number to the email address the code is
// delivered to.
type SMSViaEmail struct {
	Mailer  Mailer
	Resolve func(ctx context.Context, phone string) (string, error)
}

func (s SMSViaEmail) SendCode(ctx context.Context, phone, code string) error {
	if s.Mailer == nil || s.Resolve == nil {
		return errors.New("notify: SMSViaEmail requires Mailer and Resolve")
	}
	email, err := s.Resolve(ctx, phone)
	if err != nil {
		return err
	}
	return s.Mailer.SendMFACode(ctx, email, code)
}
