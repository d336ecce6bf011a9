// Package commands implements the CLI commands for pred.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/predicate/internal/app"
	"go.trai.ch/predicate/internal/build"
	"go.trai.ch/predicate/internal/core/domain"
)

// CLI represents the command line interface for pred.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Rank(ctx context.Context, opts app.RankOptions) (*domain.RankReport, error)
	Fetch(ctx context.Context, ids []string) (*domain.BuildReport, error)
	Check(ctx context.Context, ids []string) ([]domain.ChangeStatus, error)
	ExportGraph(ctx context.Context, w io.Writer, format string) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pred",
		Short:         "Predicate citation graph and ranking for device clearances",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRankCmd())
	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newGraphCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	st := newStyles(w)
	for _, msg := range warnings {
		_, _ = fmt.Fprintln(w, st.warning.Render("warning: ")+msg)
	}
}

func confidenceText(st styles, c domain.Confidence) string {
	level := c.Level()
	switch level {
	case domain.ConfidenceHigh:
		return st.high.Render(string(level))
	case domain.ConfidenceMedium:
		return st.medium.Render(string(level))
	default:
		return st.low.Render(string(level))
	}
}
