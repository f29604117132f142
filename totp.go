package authcore

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type totpManager struct {
	issuer string
	period uint
	skew   uint
	now    func() time.Time
}

func newTOTPManager(cfg MFAConfig, now func() time.Time) *totpManager {
	if now == nil {
		now = time.Now
	}
	return &totpManager{
		issuer: cfg.Issuer,
		period: cfg.Period,
		skew:   cfg.Skew,
		now:    now,
	}
}

// Generate provisions a new secret for account and returns the secret plus
// the otpauth:// URL encoding issuer, account, and parameters.
func (t *totpManager) Generate(account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
		Period:      t.period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Verify checks code against secret, accepting the configured number of
// adjacent time steps on either side of the current one.
func (t *totpManager) Verify(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now().UTC(), totp.ValidateOpts{
		Period:    t.period,
		Skew:      t.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// manualEntryKey reformats secret into four-character groups for users who
// type the secret into their authenticator instead of scanning the QR code.
func manualEntryKey(secret string) string {
	var b strings.Builder
	for i, r := range secret {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
