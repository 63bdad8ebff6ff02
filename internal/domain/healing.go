package domain

import (
	"context"
	"time"
)

// FailureCategory enumerates classifier outcomes for a failed test run.
type FailureCategory string

const (
	FailureServiceUnreachable    FailureCategory = "service_unreachable"
	FailureMissingDependency     FailureCategory = "missing_dependency"
	FailureMissingInternalModule FailureCategory = "missing_internal_module"
	FailureMissingRunnerConfig   FailureCategory = "missing_runner_config"
	FailureMissingPreset         FailureCategory = "missing_preset"
	FailureTestTypeErrors        FailureCategory = "test_type_errors"
	FailureMockMisuse            FailureCategory = "mock_misuse"
	FailureNoTestsFound          FailureCategory = "no_tests_found"
	FailureUnknown               FailureCategory = "unknown"
)

// Classification couples the matched category with the extracted target
// (a module specifier or a host:port/URL, when the output reveals one).
type Classification struct {
	Category FailureCategory
	Target   string
}

// LoopState names the controller states, mostly for logging.
type LoopState string

const (
	StateValidating  LoopState = "validating"
	StateExecuting   LoopState = "executing"
	StateClassifying LoopState = "classifying"
	StateRemediating LoopState = "remediating"
	StateSucceeded   LoopState = "succeeded"
	StateHardBlocked LoopState = "hard_blocked"
	StateExhausted   LoopState = "exhausted"
)

// RunOutcome distinguishes the three terminal shapes of a healing run.
type RunOutcome string

const (
	OutcomeSucceeded   RunOutcome = "succeeded"
	OutcomeHardBlocked RunOutcome = "hard_blocked"
	OutcomeExhausted   RunOutcome = "exhausted"
)

// HealRequest is the controller input for one healing run.
type HealRequest struct {
	Context        context.Context
	Project        ProjectDescriptor
	GeneratedFiles []string
	TestCommand    string
	Confirm        bool
	Debug          bool
}

// HealingLoopResult is the controller output for one run. HardBlocker is set
// if and only if the loop gave up for a specific reason; an exhausted run
// carries only LastError.
type HealingLoopResult struct {
	RunID        string
	Success      bool
	Attempts     int
	FinalIssues  []Issue
	FinalActions []AutoFixAction
	HardBlocker  string
	LastError    string
	Duration     time.Duration
}

// Outcome reports which of the three terminal shapes the run ended in.
func (r HealingLoopResult) Outcome() RunOutcome {
	switch {
	case r.Success:
		return OutcomeSucceeded
	case r.HardBlocker != "":
		return OutcomeHardBlocked
	default:
		return OutcomeExhausted
	}
}

// CommandSpec describes one shell command for the command runner.
type CommandSpec struct {
	Command string
	Dir     string
	Timeout time.Duration
}

// CommandResult wraps the outcome of an executed command. A non-zero exit
// code is a normal result, not an error.
type CommandResult struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	DurationMS int64
}

// Combined merges stdout and stderr the way test runners are usually read:
// stdout first, stderr appended below a separator when both are present.
func (r CommandResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}
