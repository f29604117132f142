package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/academix-io/authcore/internal/audit"
)

// Role tags an account with its access tier. The role is stored on the
// account at creation time; it is never inferred from a concrete type.
type Role string

const (
	// RoleStudent is the default role for self-registered accounts.
	RoleStudent Role = "STUDENT"
	// RoleStaff marks teaching and administrative staff accounts.
	RoleStaff Role = "STAFF"
	// RoleAdmin marks system administrator accounts.
	RoleAdmin Role = "ADMIN"
)

// Account is the unified user record shared by every storage partition.
// Email is the unique, case-sensitive lookup key. The single-use
// verification and reset tokens live directly on the record; a token field
// is meaningful only while its paired expiry is in the future — an expired
// or mismatched token is treated as absent.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         Role

	EmailVerified bool
	Active        bool
	Deleted       bool

	VerificationToken  string
	VerificationExpiry time.Time
	ResetToken         string
	ResetExpiry        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountStore is the persistence collaborator for one account partition
// (e.g. generic users, students). Implementations must be safe for
// concurrent use. Lookup misses return [ErrAccountNotFound].
//
// FindByVerificationToken and FindByResetToken match on exact token equality
// only; expiry is enforced by the engine. A linear scan is an acceptable
// implementation.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*Account, error)
	FindByResetToken(ctx context.Context, token string) (*Account, error)
	Save(ctx context.Context, account *Account) error
	NextID(ctx context.Context) (int64, error)
}

// MFAMethod selects a second-factor verification mechanism.
type MFAMethod string

const (
	// MethodTOTP verifies against an authenticator-app time-based code.
	MethodTOTP MFAMethod = "totp"
	// MethodSMS verifies against a one-time code delivered to a phone.
	MethodSMS MFAMethod = "sms"
	// MethodEmail verifies against a one-time code delivered by email.
	MethodEmail MFAMethod = "email"
	// MethodBackup verifies against a single-use recovery code.
	MethodBackup MFAMethod = "backup"
)

// Enrollment is the per-account MFA configuration, created lazily on the
// first setup call. Enabled implies PrimaryMethod is set and the matching
// secret or phone number is present. Disable clears every secret.
type Enrollment struct {
	Enabled        bool
	PrimaryMethod  MFAMethod
	FallbackMethod MFAMethod
	TOTPSecret     string
	Phone          string
	// BackupCodes holds the remaining unconsumed recovery codes. A verified
	// code is removed; each code is usable exactly once.
	BackupCodes []string
}

// MFAStore persists MFA enrollments keyed by account email. Lookup misses
// return [ErrEnrollmentNotFound]. Implementations must be safe for
// concurrent use.
type MFAStore interface {
	GetEnrollment(ctx context.Context, email string) (*Enrollment, error)
	SaveEnrollment(ctx context.Context, email string, enrollment *Enrollment) error
}

// UserInfo is the account summary returned alongside tokens.
type UserInfo struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	Active        bool   `json:"active"`
}

// LoginResult is returned by [Engine.Login], [Engine.ConfirmLoginMFA], and
// [Engine.Refresh]. When the account has MFA enabled, Login returns
// MFARequired=true with a short-lived TempToken and no access token; the
// caller completes the flow through ConfirmLoginMFA.
type LoginResult struct {
	Message      string    `json:"message"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
	MFARequired  bool      `json:"requiresMFA"`
	MFAMethod    MFAMethod `json:"mfaMethod,omitempty"`
	TempToken    string    `json:"tempToken,omitempty"`
}

// AuthResponse is the structured outcome of the non-token flows
// (registration, verification, password reset). The message is the only
// detail exposed to end users; the audit log carries the internal reason.
type AuthResponse struct {
	Message string `json:"message"`
}

// TOTPSetup holds the provisioning material returned by [Engine.SetupTOTP].
type TOTPSetup struct {
	Secret         string `json:"secret"`
	QRCodeURL      string `json:"qrCodeUrl"`
	ManualEntryKey string `json:"manualEntryKey"`
}

// MFAStatus is the read-only enrollment summary returned by
// [Engine.MFAStatus].
type MFAStatus struct {
	Enabled        bool      `json:"mfaEnabled"`
	PrimaryMethod  MFAMethod `json:"primaryMethod,omitempty"`
	FallbackMethod MFAMethod `json:"fallbackMethod,omitempty"`
	HasPhone       bool      `json:"hasPhoneNumber"`
	HasTOTP        bool      `json:"hasTOTP"`
	HasBackupCodes bool      `json:"hasBackupCodes"`
}

// TokenKind names a resend target for [Engine.ResendToken].
type TokenKind string

const (
	// TokenVerification resends the email-verification token.
	TokenVerification TokenKind = "verification"
	// TokenReset resends the password-reset token.
	TokenReset TokenKind = "reset"
)

// SecurityStats is the operational snapshot returned by
// [Engine.SecurityStats]. It is eventually consistent: counters and gauges
// are sampled independently, not under one lock.
type SecurityStats struct {
	EventCounts         map[string]int `json:"eventCounts"`
	LockedAccounts      int            `json:"lockedAccounts"`
	ActiveRateLimitKeys int            `json:"activeRateLimitKeys"`
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// io.Writer, one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
