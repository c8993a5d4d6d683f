// Package cli implements the til command line.
package cli

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"til/internal/cache"
	"til/internal/config"
	"til/internal/database"
	"til/internal/observability"
	"til/internal/repository"
	"til/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type options struct {
	configDir string
}

// NewRootCommand builds the til command. With no arguments it initializes the
// database; with a single argument it prints that password's digest.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "til [password]",
		Short: "Today I learned",
		Long: `til manages the database behind the til blog.

Run without arguments to create the schema and seed the README post.
Run with a single argument to print the PBKDF2 digest of that password
for PASSWORD_HASH. A single argument is always treated as a password, so
subcommands without flags must be spelled out, for example
"til init --readme README.md" or "til seed --posts 10".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHash(cmd, opts, args[0])
			}
			return runInit(cmd, opts, defaultReadme)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory holding config.yml (default: . then ..)")

	cmd.AddCommand(
		newInitCommand(opts),
		newHashCommand(opts),
		newSeedCommand(opts),
	)

	return cmd
}

func (o *options) load() (*config.Config, error) {
	if o.configDir != "" {
		return config.LoadConfigFrom(o.configDir)
	}
	return config.LoadConfig()
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return observability.NewLoggerTo(w, observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
}

// store is the database and optional cache behind a CLI post service.
type store struct {
	db    *gorm.DB
	cache *cache.Cache
}

// openPosts connects to the configured database, creating the schema, and
// returns a post service over it. Posts written here retire the server's
// cached list when REDIS_URL points at the same Redis.
func openPosts(cfg *config.Config, log *slog.Logger) (*store, *service.PostService, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	st := &store{db: db, cache: cache.Init(cfg.RedisURL, log)}
	ttl := time.Duration(cfg.PostsCacheTTLSeconds) * time.Second
	return st, service.NewPostService(db, repository.NewPostRepository(db), st.cache, ttl, log), nil
}

func (s *store) Close() {
	_ = s.cache.Close()
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Execute runs cmd with args. A lone positional argument is always the
// password to hash, even when it names a subcommand, so "til seed" prints the
// digest of "seed". Subcommands run when given more than that.
func Execute(cmd *cobra.Command, args []string) error {
	cmd.SetArgs(passwordArgs(args))
	return cmd.Execute()
}

func passwordArgs(args []string) []string {
	pos := -1
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--config-dir":
			i++
		case strings.HasPrefix(arg, "--config-dir="):
		case strings.HasPrefix(arg, "-"):
			return args
		case pos >= 0:
			return args
		default:
			pos = i
		}
	}
	if pos < 0 {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[:pos]...)
	out = append(out, "hash")
	return append(out, args[pos:]...)
}
