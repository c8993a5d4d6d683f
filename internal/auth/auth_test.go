package auth

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSalt       = "pepper"
	testIterations = 1000
)

func TestHashPassword(t *testing.T) {
	h := HashPassword("hunter2", testSalt, testIterations)
	assert.Len(t, h, KeyLength*2)
	assert.Equal(t, strings.ToLower(h), h)
	assert.Equal(t, h, HashPassword("hunter2", testSalt, testIterations))
	assert.NotEqual(t, h, HashPassword("hunter2", "other", testIterations))
	assert.NotEqual(t, h, HashPassword("hunter2", testSalt, testIterations+1))
}

func TestHashPassword_KnownVector(t *testing.T) {
	// RFC 7914 section 11 PBKDF2-HMAC-SHA256 vector, truncated to 32 bytes.
	got := HashPassword("passwd", "salt", 1)
	assert.Equal(t, "55ac046e56e3089fec1691c22544b605f94185216dde0465e68b9d57c20dacbc", got)
}

func TestVerifier_Valid(t *testing.T) {
	digest := HashPassword("hunter2", testSalt, testIterations)
	v := NewVerifier("author", testSalt, testIterations, digest)

	tests := []struct {
		name     string
		username string
		password string
		expected bool
	}{
		{"Correct credentials", "author", "hunter2", true},
		{"Mutated username", "authos", "hunter2", false},
		{"Mutated password", "author", "hunter3", false},
		{"Username prefix", "autho", "hunter2", false},
		{"Empty password", "author", "", false},
		{"Empty username", "", "hunter2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.Valid(tt.username, tt.password))
		})
	}
}

func TestVerifier_SingleCharacterMutations(t *testing.T) {
	digest := HashPassword("hunter2", testSalt, testIterations)
	v := NewVerifier("author", testSalt, testIterations, digest)

	mutate := func(s string, i int) string {
		b := []byte(s)
		b[i] ^= 0x01
		return string(b)
	}

	for i := range "author" {
		assert.False(t, v.Valid(mutate("author", i), "hunter2"), "username mutation at %d", i)
	}
	for i := range "hunter2" {
		assert.False(t, v.Valid("author", mutate("hunter2", i)), "password mutation at %d", i)
	}
}

func TestVerifier_FailsClosed(t *testing.T) {
	assert.False(t, NewVerifier("", testSalt, testIterations, "x").Valid("", "x"))
	assert.False(t, NewVerifier("author", testSalt, testIterations, "").Valid("author", ""))
	assert.False(t, NewVerifier("author", testSalt, 0, "x").Valid("author", "x"))

	var v *Verifier
	assert.False(t, v.Valid("author", "hunter2"))
	assert.False(t, v.SameUser("author"))
}

func TestVerifier_SameUser(t *testing.T) {
	v := NewVerifier("author", testSalt, testIterations, "x")
	assert.True(t, v.SameUser("author"))
	assert.False(t, v.SameUser("Author"))
	assert.False(t, v.SameUser(""))
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	codec := NewSessionCodec("a-session-secret-that-is-long-enough-123")

	token, err := codec.Encode("author")
	require.NoError(t, err)

	username, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "author", username)
}

func TestSessionCodec_Rejects(t *testing.T) {
	codec := NewSessionCodec("a-session-secret-that-is-long-enough-123")
	other := NewSessionCodec("another-secret-entirely-different-456")

	good, err := codec.Encode("author")
	require.NoError(t, err)
	foreign, err := other.Encode("author")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "author",
		Issuer:  sessionIssuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Garbage", "not-a-token"},
		{"Tampered", good[:len(good)-2] + "xx"},
		{"Foreign secret", foreign},
		{"Unsigned", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessionCodec_RequiresSecret(t *testing.T) {
	codec := NewSessionCodec("")
	_, err := codec.Encode("author")
	assert.Error(t, err)
	_, err = codec.Decode("anything")
	assert.ErrorIs(t, err, ErrInvalidSession)
}
