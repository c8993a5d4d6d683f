package cli

import (
	"fmt"

	"til/internal/seed"

	"github.com/spf13/cobra"
)

const defaultReadme = "README.md"

func newInitCommand(opts *options) *cobra.Command {
	var readme string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed the README post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, readme)
		},
	}

	cmd.Flags().StringVar(&readme, "readme", defaultReadme, "markdown file stored as the first post")

	return cmd
}

func runInit(cmd *cobra.Command, opts *options, readme string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg)

	fmt.Fprintln(cmd.OutOrStdout(), "initializing database")
	st, posts, err := openPosts(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	post, err := seed.Readme(cmd.Context(), posts, readme)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded post %d from %s\n", post.ID, readme)
	return nil
}
