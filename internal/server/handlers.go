package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"til/internal/auth"
	"til/internal/config"
	"til/internal/duo"
	"til/internal/models"
	"til/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Index renders every post, newest first.
func (s *Server) Index(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return err
	}
	return s.views.Index(html(c, fiber.StatusOK), posts)
}

// CreatePost stores a post from the text and tags form fields and redirects
// back to the listing.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	text, ok := formField(c, "text")
	if !ok {
		return models.NewValidationError("text is required")
	}
	tags, ok := formField(c, "tags")
	if !ok {
		return models.NewValidationError("tags is required")
	}

	if _, err := s.postService.CreatePost(c.UserContext(), text, tags); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// Authn renders the username form that starts the second-factor ceremony.
func (s *Server) Authn(c *fiber.Ctx) error {
	return s.views.Authn(html(c, fiber.StatusOK))
}

// Duo signs a second-factor request for the submitted username and renders the
// challenge frame.
func (s *Server) Duo(c *fiber.Ctx) error {
	username, ok := formField(c, "username")
	if !ok {
		return models.NewValidationError("username is required")
	}

	sigRequest, err := s.signer.SignRequest(username)
	if errors.Is(err, duo.ErrInvalidUsername) {
		return models.NewValidationError("invalid username")
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	return s.views.Duo(html(c, fiber.StatusOK), s.signer.Host(), sigRequest, duoValidatePath)
}

// DuoValidate verifies the signed response posted back by the challenge frame.
// In basic_duo mode the verified user is greeted; in session mode the username
// is stored in the session cookie.
func (s *Server) DuoValidate(c *fiber.Ctx) error {
	sigResponse, ok := formField(c, "sig_response")
	if !ok {
		return models.NewValidationError("sig_response is required")
	}

	username, err := s.signer.VerifyResponse(sigResponse)
	if err != nil {
		observability.AuthFailures.WithLabelValues(s.config.AuthMode).Inc()
		s.log.WarnContext(c.UserContext(), "second factor rejected", slog.String("error", err.Error()))
		return models.NewUnauthorizedError("second factor verification failed")
	}

	if s.config.AuthMode != config.AuthModeSession {
		return s.views.Greeting(html(c, fiber.StatusOK), username)
	}

	token, err := s.sessions.Encode(username)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	s.log.InfoContext(c.UserContext(), "session started", slog.String("user", username))
	return c.Redirect("/", fiber.StatusFound)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// the cache is optional
	redisStatus := "disabled"
	if s.cache != nil {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
