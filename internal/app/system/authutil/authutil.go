// internal/app/system/authutil/authutil.go
package authutil

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for password hashes.
const BcryptCost = 12

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
)

// ValidatePassword checks length limits. bcrypt ignores input past 72 bytes,
// so longer passwords are rejected rather than silently truncated.
func ValidatePassword(pw string) error {
	if strings.TrimSpace(pw) == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if len(pw) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword validates and hashes pw.
func HashPassword(pw string) (string, error) {
	if err := ValidatePassword(pw); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

const codeAlphabet = "0123456789"

// ProfileCode returns prefix followed by n random digits, e.g. "STU48213907".
func ProfileCode(prefix string, n int) string {
	var b strings.Builder
	b.WriteString(prefix)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(int64(i % len(codeAlphabet)))
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String()
}
