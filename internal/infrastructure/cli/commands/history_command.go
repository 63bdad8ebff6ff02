package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/app"
	"github.com/mendtool/mend/internal/domain"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past healing runs",
	}
	cmd.AddCommand(newHistoryListCommand(container))
	cmd.AddCommand(newHistorySearchCommand(container))
	cmd.AddCommand(newHistoryClearCommand(container))
	cmd.AddCommand(newHistoryExportCommand(container))
	return cmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var (
		limit  int
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent healing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := container.RunRepository.Runs(limit, search)
			if err != nil {
				return err
			}
			displayRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultHistoryLimit, "Maximum number of runs to show")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter runs by project, command, or blocker text")
	return cmd
}

func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search runs by project, command, or blocker text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := container.RunRepository.Runs(limit, args[0])
			if err != nil {
				return err
			}
			displayRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultHistorySearchLimit, "Maximum number of matches to show")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.RunRepository.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export runs to a jsonl file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.RunRepository.ExportJSON(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported history to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "mend-history.jsonl", "Destination file")
	return cmd
}

func displayRuns(out io.Writer, runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No healing runs recorded yet.")
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, run := range runs {
		status := red.Sprint("failed")
		if run.Success {
			status = green.Sprint("passed")
		}
		fmt.Fprintf(out, "%s  %-20s %-8s %d attempt(s)  %s\n",
			run.Timestamp.Format(domain.TimestampFormat),
			run.Project,
			status,
			run.Attempts,
			run.TestCommand,
		)
		if run.HardBlocker != "" {
			fmt.Fprintf(out, "    blocked: %s\n", run.HardBlocker)
		}
	}
}
