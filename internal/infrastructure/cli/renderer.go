package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/mendtool/mend/internal/domain"
)

const timePrecision = 10 * time.Millisecond

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
	faintColor = color.New(color.Faint)
)

// RenderResult prints the outcome of a healing run.
func RenderResult(out io.Writer, result domain.HealingLoopResult, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	switch result.Outcome() {
	case domain.OutcomeSucceeded:
		okColor.Fprintf(out, "Test suite passed after %d attempt(s).\n", result.Attempts)
	case domain.OutcomeHardBlocked:
		errColor.Fprintf(out, "Healing stopped: %s\n", result.HardBlocker)
		fmt.Fprintf(out, "Attempts used: %d\n", result.Attempts)
	case domain.OutcomeExhausted:
		errColor.Fprintf(out, "Iteration budget exhausted after %d attempt(s).\n", result.Attempts)
		if result.LastError != "" {
			fmt.Fprintf(out, "Last failure: %s\n", result.LastError)
		}
	}
	faintColor.Fprintf(out, "Run %s finished in %s\n", result.RunID, result.Duration.Round(timePrecision))

	if len(result.FinalActions) > 0 {
		fmt.Fprintln(out, "\nApplied fixes:")
		for _, action := range result.FinalActions {
			marker := okColor.Sprint("+")
			if !action.Success {
				marker = errColor.Sprint("x")
			}
			fmt.Fprintf(out, "  %s %s\n", marker, action.Command)
		}
	}

	unresolved := unresolvedIssues(result.FinalIssues)
	if len(unresolved) > 0 {
		fmt.Fprintln(out, "\nUnresolved issues:")
		for _, issue := range unresolved {
			warnColor.Fprintf(out, "  [%s] %s\n", issue.Code, issue.Message)
			for _, step := range issue.Remediation {
				fmt.Fprintf(out, "      %s", step.Title)
				if step.Command != "" {
					faintColor.Fprintf(out, "  (%s)", step.Command)
				}
				fmt.Fprintln(out)
			}
		}
	}

	return nil
}

func unresolvedIssues(issues []domain.Issue) []domain.Issue {
	var out []domain.Issue
	for _, issue := range issues {
		if !issue.AutoFixed {
			out = append(out, issue)
		}
	}
	return out
}
