// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and
// external adapters (infrastructure). The healing loop depends only on these
// abstractions, which keeps failure classification and remediation dispatch
// testable without spawning real processes.
package ports

import (
	"context"

	"github.com/mendtool/mend/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.mend/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// CommandRunner is the sole component that executes OS processes. A non-zero
// exit code is reported in the result, never as an error; errors are reserved
// for spawn failures and timeouts.
type CommandRunner interface {
	Run(ctx context.Context, spec domain.CommandSpec) (domain.CommandResult, error)
}

// Healer detects and fixes environment/configuration problems for one
// ecosystem. Analyze is read-only inspection that records issues on the
// ledger; Heal executes authorized remediations for unresolved issues and
// must be idempotent when no new issues appeared.
type Healer interface {
	Name() string
	Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error
	Heal(ctx context.Context, projectRoot string) error
}

// HealerFactory builds the healer variant for a project's ecosystem, bound
// to the run's ledger and auto-fix policy.
type HealerFactory interface {
	ForProject(project domain.ProjectDescriptor, ledger *domain.Ledger, policy domain.AutoFixPolicy, prompter ConfirmationPrompter) (Healer, error)
}

// OutputClassifier maps raw process output to a failure category. Stateless
// and deterministic: the same input always yields the same classification.
type OutputClassifier interface {
	Classify(output string) domain.Classification
}

// SyntaxValidator checks the generated files before each execution attempt.
type SyntaxValidator interface {
	Validate(ctx context.Context, projectPath string, files []string) (domain.ValidationReport, error)
}

// RunRepository persists healing runs and their executed actions.
type RunRepository interface {
	SaveRun(record domain.RunRecord) error
	SaveAction(runID string, action domain.AutoFixAction) error
	Runs(limit int, search string) ([]domain.RunRecord, error)
	Clear() error
	ExportJSON(dest string) error
	PruneOlderThan(days int) error
}

// ToolProber reports whether an ecosystem binary is available on PATH.
// Implementations may cache probe results.
type ToolProber interface {
	Available(name string) bool
}

// ConfirmationPrompter handles interactive approval of remediation commands.
type ConfirmationPrompter interface {
	Confirm(command string, description string) (bool, error)
	Enabled() bool
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
