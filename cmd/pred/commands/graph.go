package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/app"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the citation graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			return c.app.ExportGraph(cmd.Context(), cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringP("format", "f", app.FormatJSON, "Output format: json or dot")
	return cmd
}
