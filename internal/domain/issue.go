// Package domain defines core business entities and value objects for mend.
//
// The domain layer is independent of infrastructure concerns and represents
// pure data structures shared by the healing loop, healers, and reporting.
package domain

import "time"

// IssueStage identifies where in the pipeline an issue was detected.
type IssueStage string

const (
	StageAnalysis  IssueStage = "analysis"
	StageEnvSetup  IssueStage = "env-setup"
	StageExecution IssueStage = "execution"
)

// Severity ranks how serious an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueCode is a stable taxonomy tag used for lookups and recurrence counting.
type IssueCode string

const (
	IssueMissingDependency     IssueCode = "missing_dependency"
	IssueMissingInternalModule IssueCode = "missing_internal_module"
	IssueMissingManifest       IssueCode = "missing_manifest"
	IssueMissingToolchain      IssueCode = "missing_toolchain"
	IssueMissingRunnerConfig   IssueCode = "missing_runner_config"
	IssueMissingPreset         IssueCode = "missing_preset"
	IssueMissingEnvironment    IssueCode = "missing_environment"
	IssueTestTypeErrors        IssueCode = "test_type_errors"
	IssueMockMisuse            IssueCode = "mock_misuse"
	IssueServiceUnreachable    IssueCode = "service_unreachable"
	IssueNoTestsDiscovered     IssueCode = "no_tests_discovered"
	IssueSyntaxInvalid         IssueCode = "syntax_invalid"
)

// RemediationStep is a human-readable suggested fix, optionally executable.
type RemediationStep struct {
	Title       string
	Description string
	Command     string
}

// AutoFixAction records one remediation command actually executed.
// Immutable once created.
type AutoFixAction struct {
	ID          string
	Project     string
	Path        string
	Command     string
	Description string
	Success     bool
	Timestamp   time.Time
	Stdout      string
	Stderr      string
}

// Issue is a single detected problem. Created once per detection event,
// mutated only to attach remediation or mark the fix, never deleted.
type Issue struct {
	Project        string
	Stage          IssueStage
	Severity       Severity
	Code           IssueCode
	Message        string
	Details        string
	AutoFixed      bool
	Remediation    []RemediationStep
	AutoFixActions []AutoFixAction
}

// Key returns the code:message pair used for recurrence counting.
func (i Issue) Key() string {
	return string(i.Code) + ":" + i.Message
}
