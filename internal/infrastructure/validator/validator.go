// Package validator checks generated test files for syntax errors before
// each execution attempt, using the ecosystem's own parser via the command
// runner.
package validator

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// CommandValidator shells out to the language toolchain per file. Files with
// no known checker are accepted as-is.
type CommandValidator struct {
	runner  ports.CommandRunner
	prober  ports.ToolProber
	timeout time.Duration
}

// New creates a validator over the shared runner and tool prober.
func New(runner ports.CommandRunner, prober ports.ToolProber, timeout time.Duration) *CommandValidator {
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	return &CommandValidator{runner: runner, prober: prober, timeout: timeout}
}

var lineRe = regexp.MustCompile(`(?m)(?::|, line )(\d+)`)

// Validate implements ports.SyntaxValidator. The report is advisory: a file
// whose checker tool is unavailable does not fail validation.
func (v *CommandValidator) Validate(ctx context.Context, projectPath string, files []string) (domain.ValidationReport, error) {
	report := domain.ValidationReport{Valid: true}

	for _, file := range files {
		command, tool := v.checkCommand(file)
		if command == "" || !v.prober.Available(tool) {
			continue
		}

		result, err := v.runner.Run(ctx, domain.CommandSpec{
			Command: command,
			Dir:     projectPath,
			Timeout: v.timeout,
		})
		if err != nil {
			return domain.ValidationReport{}, fmt.Errorf("validator: checking %s: %w", file, err)
		}
		if result.ExitCode == 0 {
			continue
		}

		report.Valid = false
		report.Errors = append(report.Errors, domain.SyntaxError{
			File:    file,
			Line:    extractLine(result.Combined()),
			Message: firstLine(result.Combined()),
		})
	}

	return report, nil
}

// checkCommand maps a file to its syntax-check invocation and the tool it
// needs. Quoting keeps paths with spaces intact.
func (v *CommandValidator) checkCommand(file string) (command, tool string) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".js", ".cjs", ".mjs":
		return fmt.Sprintf("node --check %q", file), "node"
	case ".py":
		return fmt.Sprintf("python3 -m py_compile %q", file), "python3"
	case ".go":
		return fmt.Sprintf("gofmt -e %q", file), "gofmt"
	default:
		// .ts/.tsx, .java, .cs need a project-wide compile; the execution
		// attempt itself surfaces those errors.
		return "", ""
	}
}

func extractLine(output string) int {
	if m := lineRe.FindStringSubmatch(output); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

func firstLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.IndexByte(output, '\n'); idx >= 0 {
		return output[:idx]
	}
	return output
}

var _ ports.SyntaxValidator = (*CommandValidator)(nil)
