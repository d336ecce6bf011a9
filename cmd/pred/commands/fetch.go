package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/core/domain"
)

func (c *CLI) newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [ids...]",
		Short: "Fetch devices and update the citation graph",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			report, err := c.app.Fetch(cmd.Context(), args)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printWarnings(cmd.ErrOrStderr(), report.Warnings)
			printBuild(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func printBuild(w io.Writer, report *domain.BuildReport) {
	st := newStyles(w)
	_, _ = fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("run %s: %d devices, %d citations", report.RunID, len(report.Devices), report.Edges)))
	for _, id := range slices.Sorted(maps.Keys(report.Devices)) {
		_, _ = fmt.Fprintf(w, "%s  %s\n", st.id.Render(id), confidenceText(st, report.Devices[id]))
	}
}
