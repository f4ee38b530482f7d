package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input ceiling. Anything past it is
// dropped before hashing and before comparing, so existing hashes keep
// verifying.
const MaxPasswordBytes = 72

// PasswordCost is the bcrypt work factor for new hashes.
const PasswordCost = bcrypt.DefaultCost

// NormalizePassword trims surrounding whitespace and cuts the result to
// MaxPasswordBytes bytes.
func NormalizePassword(plaintext string) []byte {
	trimmed := strings.TrimSpace(plaintext)
	if len(trimmed) > MaxPasswordBytes {
		trimmed = trimmed[:MaxPasswordBytes]
	}
	return []byte(trimmed)
}

// HashPassword returns a salted bcrypt hash of the normalized password.
func HashPassword(plaintext string) (string, error) {
	if !utf8.ValidString(plaintext) {
		return "", ErrEncoding
	}
	normalized := NormalizePassword(plaintext)
	if len(normalized) == 0 {
		return "", ErrEmptyPassword
	}

	hashed, err := bcrypt.GenerateFromPassword(normalized, PasswordCost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plaintext matches hash. Unknown or
// corrupt hash formats simply do not match.
func VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), NormalizePassword(plaintext)) == nil
}
