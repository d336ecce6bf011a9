package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/core/domain"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [ids...]",
		Short: "Check devices for upstream changes",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			statuses, err := c.app.Check(cmd.Context(), args)
			// Print what was checked even when some devices failed.
			if asJSON {
				if jsonErr := writeJSON(cmd.OutOrStdout(), statuses); jsonErr != nil {
					return jsonErr
				}
			} else {
				printChanges(cmd.OutOrStdout(), statuses)
			}
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print the results as JSON")
	return cmd
}

func printChanges(w io.Writer, statuses []domain.ChangeStatus) {
	st := newStyles(w)
	for _, s := range statuses {
		kind := string(s.Kind)
		switch s.Kind {
		case domain.ChangeUnchanged:
			kind = st.high.Render(kind)
		case domain.ChangeUpdated:
			kind = st.medium.Render(kind)
		case domain.ChangeRemoved:
			kind = st.low.Render(kind)
		}
		_, _ = fmt.Fprintf(w, "%s  %s\n", st.id.Render(s.ID), kind)
		for _, d := range s.Diff {
			_, _ = fmt.Fprintf(w, "      %s: %s -> %s\n", d.Field, d.Old, d.New)
		}
	}
}
