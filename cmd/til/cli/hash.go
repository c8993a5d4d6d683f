package cli

import (
	"fmt"

	"til/internal/auth"

	"github.com/spf13/cobra"
)

func newHashCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the digest of a password for PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(cmd, opts, args[0])
		},
	}
}

func runHash(cmd *cobra.Command, opts *options, password string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.PasswordIterations <= 0 {
		return fmt.Errorf("PASSWORD_ITERATIONS must be positive, got %d", cfg.PasswordIterations)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "password hash:")
	fmt.Fprintln(cmd.OutOrStdout(), auth.HashPassword(password, cfg.PasswordSalt, cfg.PasswordIterations))
	return nil
}
