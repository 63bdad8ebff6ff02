// Package commands holds the cobra subcommands besides heal.
package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/app"
	"github.com/mendtool/mend/internal/domain"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the mend environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.DoctorService == nil {
				return fmt.Errorf("doctor service unavailable")
			}

			report, err := container.DoctorService.Run(cmd.Context())

			// Display the report even if there were errors.
			displayHealthReport(cmd.OutOrStdout(), report)

			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			return nil
		},
	}
}

func displayHealthReport(out io.Writer, report domain.HealthReport) {
	okLabel := color.New(color.FgGreen).Sprint("OK  ")
	warnLabel := color.New(color.FgYellow).Sprint("WARN")
	failLabel := color.New(color.FgRed).Sprint("FAIL")

	for _, check := range report.Checks {
		label := okLabel
		switch check.Status {
		case domain.HealthWarn:
			label = warnLabel
		case domain.HealthError:
			label = failLabel
		}
		fmt.Fprintf(out, "[%s] %s - %s\n", label, check.Name, check.Details)
	}
}
