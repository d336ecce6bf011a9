package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/app"
	"go.trai.ch/predicate/internal/core/domain"
)

func (c *CLI) newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [candidates...]",
		Short: "Rank candidate predicates for a device",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			productCode, _ := cmd.Flags().GetString("product-code")
			description, _ := cmd.Flags().GetString("description")
			candidates, _ := cmd.Flags().GetStringSlice("candidate")
			limit, _ := cmd.Flags().GetInt("limit")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			asJSON, _ := cmd.Flags().GetBool("json")

			candidates = append(candidates, args...)
			if productCode == "" && len(candidates) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}

			report, err := c.app.Rank(cmd.Context(), app.RankOptions{
				ProductCode: productCode,
				Description: description,
				Candidates:  candidates,
				Limit:       limit,
				NoCache:     noCache,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printWarnings(cmd.ErrOrStderr(), report.Warnings)
			printRanking(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringP("product-code", "p", "", "Search candidates sharing this product code")
	cmd.Flags().StringP("description", "d", "", "Description of the subject device")
	cmd.Flags().StringSliceP("candidate", "c", nil, "Candidate device identifier (repeatable)")
	cmd.Flags().IntP("limit", "l", 10, "Maximum number of candidates to print")
	cmd.Flags().BoolP("no-cache", "n", false, "Ignore a cached ranking and recompute")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func printRanking(w io.Writer, report *domain.RankReport) {
	st := newStyles(w)
	source := "computed"
	if report.FromCache {
		source = "cached"
	}
	_, _ = fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("run %s (%s)", report.RunID, source)))

	for i, rc := range report.Candidates {
		_, _ = fmt.Fprintf(w, "%2d. %s  score %.3f  confidence %s\n",
			i+1, st.id.Render(rc.ID), rc.Score, confidenceText(st, rc.Confidence))
		for _, line := range rc.Rationale {
			_, _ = fmt.Fprintln(w, "      "+st.dim.Render(line))
		}
	}
}
