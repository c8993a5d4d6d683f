// Package duo implements the Duo Web v2 signed request/response scheme used
// for the second-factor ceremony.
//
// A request is two signed cookies joined by ':'. The TX cookie is signed with
// the secret key and checked by Duo; the APP cookie is signed with the
// application key and comes back unchanged in the response, next to an AUTH
// cookie that Duo signs with the secret key. Each cookie has the form
// PREFIX|base64(username|ikey|expiry)|hex(hmac-sha1(key, PREFIX|base64)).
package duo

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // mandated by the Duo Web v2 protocol
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	duoPrefix  = "TX"
	appPrefix  = "APP"
	authPrefix = "AUTH"

	duoExpire = 300 * time.Second
	appExpire = 3600 * time.Second

	ikeyLen    = 20
	skeyLen    = 40
	akeyMinLen = 40
)

var (
	ErrInvalidUsername = errors.New("duo: invalid username")
	ErrInvalidIKey     = errors.New("duo: invalid integration key")
	ErrInvalidSKey     = errors.New("duo: invalid secret key")
	ErrInvalidAKey     = errors.New("duo: invalid application key")

	ErrInvalidResponse = errors.New("duo: invalid signed response")
	ErrExpired         = errors.New("duo: signed response expired")
	ErrUserMismatch    = errors.New("duo: response users do not match")
)

// Signer is the second-factor collaborator: it signs a challenge for a
// username and later verifies the signed response, returning the username.
type Signer interface {
	SignRequest(username string) (string, error)
	VerifyResponse(sigResponse string) (string, error)
	Host() string
}

// WebSigner signs and verifies Duo Web v2 cookies.
type WebSigner struct {
	ikey string
	skey string
	akey string
	host string
	now  func() time.Time
}

// NewWebSigner creates a signer from the integration, secret and application keys
// and the API host served to the browser.
func NewWebSigner(ikey, skey, akey, host string) *WebSigner {
	return &WebSigner{ikey: ikey, skey: skey, akey: akey, host: host, now: time.Now}
}

// Host returns the API host the browser frame talks to.
func (s *WebSigner) Host() string {
	return s.host
}

// SignRequest returns the sig_request value for username.
func (s *WebSigner) SignRequest(username string) (string, error) {
	if username == "" || strings.Contains(username, "|") {
		return "", ErrInvalidUsername
	}
	if len(s.ikey) != ikeyLen {
		return "", ErrInvalidIKey
	}
	if len(s.skey) != skeyLen {
		return "", ErrInvalidSKey
	}
	if len(s.akey) < akeyMinLen {
		return "", ErrInvalidAKey
	}

	vals := []string{username, s.ikey}
	duoSig := s.signVals(s.skey, vals, duoPrefix, duoExpire)
	appSig := s.signVals(s.akey, vals, appPrefix, appExpire)
	return duoSig + ":" + appSig, nil
}

// VerifyResponse checks the sig_response posted back by the Duo frame and
// returns the authenticated username.
func (s *WebSigner) VerifyResponse(sigResponse string) (string, error) {
	authSig, appSig, ok := strings.Cut(sigResponse, ":")
	if !ok || strings.Contains(appSig, ":") {
		return "", ErrInvalidResponse
	}

	authUser, err := s.parseVals(s.skey, authSig, authPrefix)
	if err != nil {
		return "", err
	}
	appUser, err := s.parseVals(s.akey, appSig, appPrefix)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(authUser), []byte(appUser)) != 1 {
		return "", ErrUserMismatch
	}
	return authUser, nil
}

func (s *WebSigner) signVals(key string, vals []string, prefix string, expire time.Duration) string {
	exp := strconv.FormatInt(s.now().Add(expire).Unix(), 10)
	val := strings.Join(append(vals, exp), "|")
	cookie := prefix + "|" + base64.StdEncoding.EncodeToString([]byte(val))
	return cookie + "|" + hmacSHA1(key, cookie)
}

func (s *WebSigner) parseVals(key, val, prefix string) (string, error) {
	parts := strings.Split(val, "|")
	if len(parts) != 3 {
		return "", ErrInvalidResponse
	}
	uPrefix, uB64, uSig := parts[0], parts[1], parts[2]

	sig := hmacSHA1(key, uPrefix+"|"+uB64)
	if !hmac.Equal([]byte(sig), []byte(uSig)) {
		return "", ErrInvalidResponse
	}
	if uPrefix != prefix {
		return "", fmt.Errorf("%w: unexpected prefix %q", ErrInvalidResponse, uPrefix)
	}

	decoded, err := base64.StdEncoding.DecodeString(uB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	fields := strings.Split(string(decoded), "|")
	if len(fields) != 3 {
		return "", ErrInvalidResponse
	}
	user, uIKey, expStr := fields[0], fields[1], fields[2]

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad expiry", ErrInvalidResponse)
	}
	if s.now().Unix() >= exp {
		return "", ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(uIKey), []byte(s.ikey)) != 1 {
		return "", fmt.Errorf("%w: integration key mismatch", ErrInvalidResponse)
	}
	return user, nil
}

func hmacSHA1(key, msg string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
