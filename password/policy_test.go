package password

import (
	"strings"
	"testing"
)

func newTestPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		MinLength: 8,
		MaxLength: 128,
		Denylist:  []string{"password", "qwerty", "letmein"},
	})
}

func TestPolicyAcceptsStrongPassword(t *testing.T) {
	p := newTestPolicy()

	if violations := p.Validate("Sunny#Day42"); len(violations) != 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
}

func TestPolicyViolationOrdering(t *testing.T) {
	p := newTestPolicy()

	// Too short, no upper, no digit, no symbol.
	violations := p.Validate("abc")
	want := []string{
		"must be at least 8 characters long",
		"must contain at least one uppercase letter",
		"must contain at least one digit",
		`must contain at least one special character (!@#$%^&*(),.?":{}|<>)`,
	}
	if len(violations) != len(want) {
		t.Fatalf("violations = %v, want %v", violations, want)
	}
	for i := range want {
		if violations[i] != want[i] {
			t.Fatalf("violation[%d] = %q, want %q", i, violations[i], want[i])
		}
	}
}

func TestPolicyMissingCharacterClasses(t *testing.T) {
	p := newTestPolicy()

	tests := []struct {
		name     string
		input    string
		fragment string
	}{
		{"no uppercase", "sunny#day42", "uppercase"},
		{"no lowercase", "SUNNY#DAY42", "lowercase"},
		{"no digit", "Sunny#Days", "digit"},
		{"no symbol", "SunnyDay42", "special character"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			violations := p.Validate(tc.input)
			if len(violations) != 1 {
				t.Fatalf("violations = %v, want exactly one", violations)
			}
			if !strings.Contains(violations[0], tc.fragment) {
				t.Fatalf("violation %q does not mention %q", violations[0], tc.fragment)
			}
		})
	}
}

func TestPolicyMaxLength(t *testing.T) {
	p := newTestPolicy()

	long := "Aa1#" + strings.Repeat("x", 128)
	violations := p.Validate(long)
	if len(violations) != 1 || !strings.Contains(violations[0], "at most 128") {
		t.Fatalf("violations = %v, want a max-length violation", violations)
	}
}

func TestPolicyDenylistSubstringCaseInsensitive(t *testing.T) {
	p := newTestPolicy()

	tests := []string{
		"MyPassword#1x",
		"MyPASSWORD#1x",
		"Qwerty!2345x",
		"XxLetMeIn#9zz",
	}
	for _, input := range tests {
		violations := p.Validate(input)
		found := false
		for _, v := range violations {
			if v == "must not contain a commonly used password" {
				found = true
			}
		}
		if !found {
			t.Fatalf("password %q passed the denylist", input)
		}
	}
}

func TestPolicyDenylistReportedOnce(t *testing.T) {
	p := newTestPolicy()

	violations := p.Validate("PasswordQwerty#1")
	count := 0
	for _, v := range violations {
		if v == "must not contain a commonly used password" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("denylist violation reported %d times, want once", count)
	}
}

func TestPolicySymbolSetIsExact(t *testing.T) {
	p := newTestPolicy()

	// Underscore and dash are not in the accepted symbol set.
	violations := p.Validate("SunnyDay42_-")
	if len(violations) != 1 || !strings.Contains(violations[0], "special character") {
		t.Fatalf("violations = %v, want only the symbol violation", violations)
	}
}
