package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached data, the citation graph or rate limiter state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			graph, _ := cmd.Flags().GetBool("graph")
			state, _ := cmd.Flags().GetBool("state")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{
				Cache: cache,
				Graph: graph,
				State: state,
			}

			switch {
			case all:
				opts = app.CleanOptions{Cache: true, Graph: true, State: true}
			case !cache && !graph && !state:
				// Default behavior: clean the cache
				opts.Cache = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().Bool("cache", false, "Remove cached registry data, documents and text")
	cmd.Flags().Bool("graph", false, "Remove the citation graph and stored records")
	cmd.Flags().Bool("state", false, "Remove rate limiter state")
	cmd.Flags().BoolP("all", "a", false, "Remove everything")

	return cmd
}
