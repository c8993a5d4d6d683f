// Package middleware provides the session gate and request-scoped middleware.
package middleware

import (
	"til/internal/auth"
	"til/internal/config"
	"til/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// UserLocal is the Fiber locals key holding the authenticated username.
const UserLocal = "user"

const (
	basicRealm      = "Login Required"
	basicChallenge  = `Basic realm="` + basicRealm + `"`
	unauthorizedMsg = "please submit credentials"
)

// BasicAuth gates requests behind HTTP Basic credentials checked by v.
// With no configured username every request passes. mode labels the
// auth failure metric.
func BasicAuth(v *auth.Verifier, mode string) fiber.Handler {
	if v.Username() == "" {
		return passThrough
	}
	return basicauth.New(basicauth.Config{
		Realm:           basicRealm,
		ContextUsername: UserLocal,
		Authorizer:      v.Valid,
		Unauthorized: func(c *fiber.Ctx) error {
			observability.AuthFailures.WithLabelValues(mode).Inc()
			c.Set(fiber.HeaderWWWAuthenticate, basicChallenge)
			return c.Status(fiber.StatusUnauthorized).SendString(unauthorizedMsg)
		},
	})
}

// SessionAuth admits a request only when its session cookie decodes to the
// configured username. Anything else is redirected to loginPath.
func SessionAuth(codec *auth.SessionCodec, v *auth.Verifier, loginPath string) fiber.Handler {
	if v.Username() == "" {
		return passThrough
	}
	return func(c *fiber.Ctx) error {
		token := c.Cookies(auth.SessionCookieName)
		if token != "" {
			if username, err := codec.Decode(token); err == nil && v.SameUser(username) {
				c.Locals(UserLocal, username)
				return c.Next()
			}
		}
		observability.AuthFailures.WithLabelValues(config.AuthModeSession).Inc()
		return c.Redirect(loginPath, fiber.StatusFound)
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
