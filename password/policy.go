package password

import (
	"fmt"
	"strings"
	"unicode"
)

const symbolSet = `!@#$%^&*(),.?":{}|<>`

// PolicyConfig defines a public type used by authcore APIs.
//
// PolicyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PolicyConfig struct {
	MinLength int
	MaxLength int
	Denylist  []string
}

// Policy defines a public type used by authcore APIs.
//
// Policy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Policy struct {
	config   PolicyConfig
	denylist []string
}

// NewPolicy describes the newpolicy operation and its observable behavior.
//
// NewPolicy may return an error when input validation, dependency calls, or security checks fail.
// NewPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPolicy(cfg PolicyConfig) *Policy {
	denylist := make([]string, 0, len(cfg.Denylist))
	for _, entry := range cfg.Denylist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			denylist = append(denylist, entry)
		}
	}
	return &Policy{
		config:   cfg,
		denylist: denylist,
	}
}

// Validate returns every policy violation for the candidate password. An
// empty slice means the password is acceptable. Violations are ordered
// stably: length first, then character classes, then denylist.
func (p *Policy) Validate(password string) []string {
	var violations []string

	if len(password) < p.config.MinLength {
		violations = append(violations,
			fmt.Sprintf("must be at least %d characters long", p.config.MinLength))
	}
	if p.config.MaxLength > 0 && len(password) > p.config.MaxLength {
		violations = append(violations,
			fmt.Sprintf("must be at most %d characters long", p.config.MaxLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(symbolSet, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, `must contain at least one special character (!@#$%^&*(),.?":{}|<>)`)
	}

	lowered := strings.ToLower(password)
	for _, entry := range p.denylist {
		if strings.Contains(lowered, entry) {
			violations = append(violations, "must not contain a commonly used password")
			break
		}
	}

	return violations
}
