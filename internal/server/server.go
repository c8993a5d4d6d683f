// Package server wires the HTTP routes, middleware and session gate.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"til/internal/auth"
	"til/internal/cache"
	"til/internal/config"
	"til/internal/database"
	"til/internal/duo"
	"til/internal/middleware"
	"til/internal/models"
	"til/internal/repository"
	"til/internal/service"
	"til/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

const (
	loginPath       = "/authn"
	duoPath         = "/duo"
	duoValidatePath = "/duo_validate"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	cache          *cache.Cache
	log            *slog.Logger
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	postService    *service.PostService
	views          *views.Renderer
	verifier       *auth.Verifier
	sessions       *auth.SessionCodec
	signer         duo.Signer
}

// Option customizes a Server built by NewServerWithDeps.
type Option func(*Server)

// WithSigner replaces the second-factor signer built from configuration.
func WithSigner(signer duo.Signer) Option {
	return func(s *Server) {
		s.signer = signer
	}
}

// NewServer connects to the database and the optional cache named in cfg and
// builds the server on top of them.
func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.Init(cfg.RedisURL, log), log)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// c may be nil, in which case post listings are read straight from the store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, c *cache.Cache, log *slog.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	renderer, err := views.New(cfg.BlogName)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.PostsCacheTTLSeconds) * time.Second
	s := &Server{
		config:         cfg,
		db:             db,
		cache:          c,
		log:            log,
		promMiddleware: middleware.InitMetrics("til"),
		postService:    service.NewPostService(db, repository.NewPostRepository(db), c, ttl, log),
		views:          renderer,
		verifier:       auth.NewVerifier(cfg.Username, cfg.PasswordSalt, cfg.PasswordIterations, cfg.PasswordHash),
		sessions:       auth.NewSessionCodec(cfg.SessionSecret),
		signer:         duo.NewWebSigner(cfg.DuoIKey, cfg.DuoSKey, cfg.DuoAKey, cfg.DuoHost),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "til",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// request ID and trace ID into the request context
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// the second-factor page embeds a cross-origin frame
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger(s.log))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.secondFactorEnabled() {
		app.Get(loginPath, s.Authn)
		app.Post(duoPath, s.Duo)
		app.Post(duoValidatePath, s.DuoValidate)
	}

	// the user is only known after the gate, so refresh the context for logging
	gate := s.Gate()
	userContext := middleware.ContextMiddleware()
	app.Get("/", gate, userContext, s.Index)
	app.Post("/", gate, userContext, s.CreatePost)
}

// Gate returns the session gate for the configured auth mode.
func (s *Server) Gate() fiber.Handler {
	if s.config.AuthMode == config.AuthModeSession {
		return middleware.SessionAuth(s.sessions, s.verifier, loginPath)
	}
	return middleware.BasicAuth(s.verifier, s.config.AuthMode)
}

func (s *Server) secondFactorEnabled() bool {
	return s.config.AuthMode == config.AuthModeBasicDuo || s.config.AuthMode == config.AuthModeSession
}

// Start listens on the configured port. It blocks until the app is shut down.
func (s *Server) Start() error {
	s.log.Info("server starting", slog.String("port", s.config.Port), slog.String("auth_mode", s.config.AuthMode))
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.log.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			s.log.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if err := s.cache.Close(); err != nil {
		s.log.Error("error closing redis", slog.String("error", err.Error()))
	}

	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.log.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}
