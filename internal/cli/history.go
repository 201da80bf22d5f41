package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/backmassage/kramtex/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	Journal string
	Limit   int
}

// NewHistoryCommand creates the history command, which lists recent runs
// from a build journal.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded in a build journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite build journal (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "number of runs to show")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "limit must be positive")
	}
	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open journal", err)
	}
	defer j.Close()

	runs, err := j.LastRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot read journal", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPLATFORM\tCONTAINER\tMODE\tJOBS\tEXIT")
	for _, r := range runs {
		exit := "-"
		if !r.Finished.IsZero() {
			exit = fmt.Sprint(r.ExitStatus)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Started.Local().Format("2006-01-02 15:04:05"),
			r.Platform, r.Container, r.Mode, r.Jobs, exit)
	}
	return tw.Flush()
}
