// Package auth verifies author credentials and signs session cookies.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLength is the PBKDF2 output length in bytes (the SHA-256 digest size).
const KeyLength = sha256.Size

// HashPassword returns the lowercase hex PBKDF2-HMAC-SHA256 digest of password.
func HashPassword(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// Verifier checks submitted credentials against the configured author.
type Verifier struct {
	username   string
	salt       string
	iterations int
	digest     string
}

// NewVerifier creates a Verifier for a single author.
func NewVerifier(username, salt string, iterations int, digest string) *Verifier {
	return &Verifier{
		username:   username,
		salt:       salt,
		iterations: iterations,
		digest:     digest,
	}
}

// Username returns the configured author name.
func (v *Verifier) Username() string {
	if v == nil {
		return ""
	}
	return v.username
}

// Valid reports whether username and password match the configured author.
// Both comparisons run regardless of the outcome of the other.
func (v *Verifier) Valid(username, password string) bool {
	if v == nil || v.username == "" || v.digest == "" || v.iterations <= 0 {
		return false
	}
	if username == "" || password == "" {
		return false
	}

	usernameValid := subtle.ConstantTimeCompare([]byte(username), []byte(v.username))
	passwordValid := subtle.ConstantTimeCompare([]byte(HashPassword(password, v.salt, v.iterations)), []byte(v.digest))

	return usernameValid&passwordValid == 1
}

// SameUser reports whether name equals the configured author, in constant time.
func (v *Verifier) SameUser(name string) bool {
	if v == nil || v.username == "" || name == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(name), []byte(v.username)) == 1
}
