package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const urlTokenRawSize = 32

// NewURLToken returns a 32-byte random token encoded as unpadded base64url.
// Used for email verification and password reset links.
func NewURLToken() (string, error) {
	var raw [urlTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewOTP returns a numeric one-time code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// NewBackupCode returns a recovery code formatted as two zero-padded
// four-digit groups, e.g. "0042-9317".
func NewBackupCode() (string, error) {
	max := big.NewInt(10000)

	hi, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	lo, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%04d-%04d", hi.Int64(), lo.Int64()), nil
}

const (
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLower   = "abcdefghijkmnpqrstuvwxyz"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#$%^&*"
)

// NewPassword returns a random password of the given length that contains
// at least one character from each required class. Visually ambiguous
// characters are excluded from the alphabets.
func NewPassword(length int) (string, error) {
	if length < 8 {
		return "", errors.New("password length must be >= 8")
	}

	alphabet := passwordUpper + passwordLower + passwordDigits + passwordSymbols

	buf := make([]byte, length)
	for i, class := range []string{passwordUpper, passwordLower, passwordDigits, passwordSymbols} {
		c, err := randByte(class)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	for i := 4; i < length; i++ {
		c, err := randByte(alphabet)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	// Fisher-Yates so the required classes are not pinned to the front.
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := int(n.Int64())
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func randByte(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}
