package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind defines a public type used by authcore APIs.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind string

const (
	// KindAccess is an exported constant or variable used by the authentication engine.
	KindAccess Kind = "access"
	// KindRefresh is an exported constant or variable used by the authentication engine.
	KindRefresh Kind = "refresh"
	// KindTempMFA is an exported constant or variable used by the authentication engine.
	KindTempMFA Kind = "temp_mfa"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	TempMFATTL time.Duration
	Leeway     time.Duration
	// RefreshThreshold is the remaining-lifetime window below which
	// NeedsRefresh reports true.
	RefreshThreshold time.Duration
}

// Claims defines a public type used by authcore APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	TokenType string `json:"tokenType"`
	Role      string `json:"role,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by authcore APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config    Config
	blacklist Blacklist
	now       func() time.Time
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config, blacklist Blacklist, now func() time.Time) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 requires a secret of at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.TempMFATTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if blacklist == nil {
		blacklist = NewMemoryBlacklist(now)
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		config:    cfg,
		blacklist: blacklist,
		now:       now,
	}, nil
}

func (m *Manager) ttl(kind Kind) (time.Duration, error) {
	switch kind {
	case KindAccess:
		return m.config.AccessTTL, nil
	case KindRefresh:
		return m.config.RefreshTTL, nil
	case KindTempMFA:
		return m.config.TempMFATTL, nil
	default:
		return 0, fmt.Errorf("unsupported token kind %q", kind)
	}
}

// Issue creates a signed token of the given kind for subject. Every token
// carries a fresh UUID jti, so two tokens issued in the same second are
// still distinct.
func (m *Manager) Issue(kind Kind, subject, role string, userID int64) (string, error) {
	ttl, err := m.ttl(kind)
	if err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		TokenType: string(kind),
		Role:      role,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies the signature and registered claims and returns the
// decoded claims. It does not consult the blacklist.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Validate reports whether the token is well formed, unexpired, bound to
// expectedSubject (when non-empty), and not revoked. Any failure yields
// false; callers never learn which check failed.
func (m *Manager) Validate(ctx context.Context, tokenStr, expectedSubject string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	if expectedSubject != "" && claims.Subject != expectedSubject {
		return false
	}
	return !m.revoked(ctx, claims.ID)
}

// ValidateKind reports whether the token passes Validate-style checks and
// carries the expected tokenType claim.
func (m *Manager) ValidateKind(ctx context.Context, tokenStr string, kind Kind) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	if claims.TokenType != string(kind) {
		return false
	}
	return !m.revoked(ctx, claims.ID)
}

func (m *Manager) revoked(ctx context.Context, jti string) bool {
	found, err := m.blacklist.Contains(ctx, jti)
	if err != nil {
		// Fail closed when the blacklist backend cannot answer.
		log.Print("authcore: blacklist lookup failed: ", err)
		return true
	}
	return found
}

// Revoke adds the token's jti to the blacklist for the remainder of its
// lifetime. Malformed or expired tokens revoke as a no-op: there is nothing
// left to reject.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil
	}

	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(m.now()) + m.config.Leeway
	}
	return m.blacklist.Add(ctx, claims.ID, ttl)
}

// RemainingTTL returns how long the token stays valid, or zero for a
// malformed or expired token.
func (m *Manager) RemainingTTL(tokenStr string) time.Duration {
	claims, err := m.Parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	if remaining := claims.ExpiresAt.Time.Sub(m.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// NeedsRefresh reports whether the token is inside the refresh threshold,
// i.e. valid now but close enough to expiry that the client should rotate.
func (m *Manager) NeedsRefresh(tokenStr string) bool {
	remaining := m.RemainingTTL(tokenStr)
	return remaining > 0 && remaining < m.config.RefreshThreshold
}
