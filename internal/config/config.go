// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Auth modes accepted by AUTH_MODE. Exactly one is active per process.
const (
	AuthModeBasic    = "basic"
	AuthModeBasicDuo = "basic_duo"
	AuthModeSession  = "session"
)

// ErrConfigNotFound is returned when no config file exists in any search path.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	BlogName    string `mapstructure:"BLOG_NAME"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"`

	AuthMode           string `mapstructure:"AUTH_MODE"`
	Username           string `mapstructure:"AUTH_USERNAME"`
	PasswordSalt       string `mapstructure:"PASSWORD_SALT"`
	PasswordIterations int    `mapstructure:"PASSWORD_ITERATIONS"`
	PasswordHash       string `mapstructure:"PASSWORD_HASH"`

	DuoIKey string `mapstructure:"DUO_IKEY"`
	DuoSKey string `mapstructure:"DUO_SKEY"`
	DuoAKey string `mapstructure:"DUO_AKEY"`
	DuoHost string `mapstructure:"DUO_HOST"`

	SessionSecret string `mapstructure:"SESSION_SECRET"`

	RedisURL             string `mapstructure:"REDIS_URL"`
	PostsCacheTTLSeconds int    `mapstructure:"POSTS_CACHE_TTL_SECONDS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	LogFile   string `mapstructure:"LOG_FILE"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads configuration from config.yml in the working directory or its parent.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".", "..")
}

// LoadConfigFrom loads configuration from the first config.yml found in paths,
// overlaid with config.<APP_ENV>.yml and environment variables. A .env file
// next to the binary is loaded into the environment first, if present.
func LoadConfigFrom(paths ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w (searched %s)", ErrConfigNotFound, strings.Join(paths, ", "))
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	env := strings.TrimSpace(v.GetString("APP_ENV"))
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.AuthMode = strings.ToLower(strings.TrimSpace(config.AuthMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BLOG_NAME", "til")
	v.SetDefault("DATABASE_URL", "sqlite://til.sqlite")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AUTH_MODE", AuthModeBasic)
	v.SetDefault("AUTH_USERNAME", "")
	v.SetDefault("PASSWORD_SALT", "")
	v.SetDefault("PASSWORD_ITERATIONS", 100000)
	v.SetDefault("PASSWORD_HASH", "")
	v.SetDefault("DUO_IKEY", "")
	v.SetDefault("DUO_SKEY", "")
	v.SetDefault("DUO_AKEY", "")
	v.SetDefault("DUO_HOST", "")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("POSTS_CACHE_TTL_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "")
}

// AuthEnabled reports whether the session gate is active. An empty username disables it.
func (c *Config) AuthEnabled() bool {
	return c.Username != ""
}

// IsProduction reports whether APP_ENV names a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present for the selected auth mode.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	switch c.AuthMode {
	case AuthModeBasic, AuthModeBasicDuo, AuthModeSession:
	default:
		return fmt.Errorf("AUTH_MODE %q is not one of basic, basic_duo, session", c.AuthMode)
	}

	if !c.AuthEnabled() {
		if c.IsProduction() {
			log.Println("WARNING: AUTH_USERNAME is empty in production. Anyone can post.")
		}
		return nil
	}

	if c.AuthMode == AuthModeBasic || c.AuthMode == AuthModeBasicDuo {
		if c.PasswordSalt == "" {
			return errors.New("PASSWORD_SALT is required when authentication is enabled")
		}
		if c.PasswordHash == "" {
			return errors.New("PASSWORD_HASH is required when authentication is enabled")
		}
		if c.PasswordIterations <= 0 {
			return errors.New("PASSWORD_ITERATIONS must be positive")
		}
	}

	if c.AuthMode == AuthModeBasicDuo || c.AuthMode == AuthModeSession {
		if c.DuoIKey == "" || c.DuoSKey == "" || c.DuoAKey == "" || c.DuoHost == "" {
			return errors.New("DUO_IKEY, DUO_SKEY, DUO_AKEY and DUO_HOST are required for second-factor modes")
		}
	}

	if c.AuthMode == AuthModeSession {
		if c.SessionSecret == "" {
			return errors.New("SESSION_SECRET is required in session mode")
		}
		if c.IsProduction() && len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if len(c.SessionSecret) < 32 {
			log.Println("WARNING: SESSION_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}
