// Package cli exposes the cobra command tree.
package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/app"
	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}
	container.HealService.Prompter = NewPrompter(nil, nil)

	healCmd := newHealCommand(container)

	root := &cobra.Command{
		Use:   "mend",
		Short: "mend - test suite healing loop",
		Long:  "mend diagnoses why a project's test suite fails to run, applies authorized fixes, and retries within a bounded number of attempts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(healCmd)
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root, nil
}

func newHealCommand(container *app.Container) *cobra.Command {
	var (
		name          string
		language      string
		framework     string
		testFramework string
		testCommand   string
		files         []string
		confirm       bool
		jsonOut       bool
		debug         bool
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "heal [project path]",
		Short: "Diagnose and fix a failing test suite, then re-run it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(absPath)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			req := domain.HealRequest{
				Context: ctx,
				Project: domain.ProjectDescriptor{
					Name:          name,
					Language:      language,
					Framework:     framework,
					TestFramework: testFramework,
					Path:          absPath,
				},
				GeneratedFiles: expandFiles(files),
				TestCommand:    testCommand,
				Confirm:        confirm,
				Debug:          debug,
			}

			var spin *spinner.Spinner
			if !jsonOut && !confirm {
				spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				spin.Suffix = " healing test suite..."
				spin.Start()
			}
			result, err := container.HealService.Run(req)
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}
			return RenderResult(cmd.OutOrStdout(), result, jsonOut)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name (defaults to the directory name)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Project language (node, python, java, dotnet, go)")
	cmd.Flags().StringVar(&framework, "framework", "", "Application framework (informational)")
	cmd.Flags().StringVar(&testFramework, "test-framework", "", "Test framework (jest, vitest, pytest, ...)")
	cmd.Flags().StringVarP(&testCommand, "cmd", "c", "", "Test command to run (required)")
	cmd.Flags().StringSliceVarP(&files, "files", "f", nil, "Generated test files, relative to the project root")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Ask before each auto-fix command")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable verbose logging")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall run deadline (0 = no deadline)")
	_ = cmd.MarkFlagRequired("cmd")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

// expandFiles splits comma-joined entries the slice flag may have kept
// together and drops empties.
func expandFiles(files []string) []string {
	var out []string
	for _, entry := range files {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
