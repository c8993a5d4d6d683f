package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "til_session"

const sessionIssuer = "til"

// ErrInvalidSession is returned for tokens that fail signature or claim checks.
var ErrInvalidSession = errors.New("invalid session")

// SessionCodec signs and verifies the session token stored in the session cookie.
// The token carries the verified username in its subject claim.
type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

// NewSessionCodec creates a codec keyed by secret.
func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), now: time.Now}
}

// Encode returns a signed token for username.
func (s *SessionCodec) Encode(username string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("session secret not configured")
	}
	if username == "" {
		return "", fmt.Errorf("session username is empty")
	}

	claims := jwt.RegisteredClaims{
		Subject:  username,
		Issuer:   sessionIssuer,
		IssuedAt: jwt.NewNumericDate(s.now()),
		ID:       uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Decode verifies token and returns the username stored in it.
func (s *SessionCodec) Decode(token string) (string, error) {
	if s == nil || len(s.secret) == 0 || token == "" {
		return "", ErrInvalidSession
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	return claims.Subject, nil
}
