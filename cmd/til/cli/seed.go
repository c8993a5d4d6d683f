package cli

import (
	"fmt"

	"til/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *options) *cobra.Command {
	var seedOpts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake posts for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed fake posts with APP_ENV=%s", cfg.Env)
			}

			st, posts, err := openPosts(cfg, newLogger(cmd.ErrOrStderr(), cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			created, err := seed.FakePosts(cmd.Context(), posts, seedOpts)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d posts\n", len(created))
			return err
		},
	}

	cmd.Flags().IntVar(&seedOpts.NumPosts, "posts", 10, "number of posts to create")
	cmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed for reproducible content (0 = random)")

	return cmd
}
