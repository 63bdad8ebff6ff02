// Package services contains the use-case layer: the healing loop controller
// and the doctor diagnostics, wired to infrastructure through ports.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// HealLoopService runs the bounded diagnose-fix-retry loop for one project.
type HealLoopService struct {
	ConfigProvider ports.ConfigProvider
	HealerFactory  ports.HealerFactory
	Runner         ports.CommandRunner
	Classifier     ports.OutputClassifier
	Validator      ports.SyntaxValidator
	Repository     ports.RunRepository
	Prompter       ports.ConfirmationPrompter
	Logger         ports.Logger
}

var (
	passSummaryRe = regexp.MustCompile(`(?i)\b\d+\s+(?:tests?\s+)?pass(?:ed|ing)\b|test result: ok|OK \(\d+ tests?\)`)
	failSummaryRe = regexp.MustCompile(`(?i)\b\d+\s+(?:tests?\s+)?fail(?:ed|ing)\b|\bFAILED\b|\bno tests? (?:found|to run)\b|collected 0 items|Test suite failed to run`)
)

// Run executes the healing loop until the suite passes, a hard blocker is
// hit, or the iteration budget is spent. The returned result always carries
// the full issue and action trail.
func (s *HealLoopService) Run(req domain.HealRequest) (domain.HealingLoopResult, error) {
	if s.ConfigProvider == nil || s.HealerFactory == nil || s.Runner == nil ||
		s.Classifier == nil || s.Validator == nil || s.Logger == nil {
		return domain.HealingLoopResult{}, errors.New("services.HealLoopService dependencies not satisfied")
	}
	if req.TestCommand == "" {
		return domain.HealingLoopResult{}, errors.New("test command is required")
	}
	if req.Project.Path == "" {
		return domain.HealingLoopResult{}, errors.New("project path is required")
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		return domain.HealingLoopResult{}, fmt.Errorf("load config: %w", err)
	}
	policy := cfg.AutoFix
	maxIterations := policy.MaxIterations
	if maxIterations <= 0 {
		maxIterations = domain.DefaultMaxIterations
	}
	timeout := time.Duration(cfg.Execution.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}

	start := time.Now()
	runID := uuid.NewString()
	ledger := domain.NewLedger(req.Project.Name)

	var prompter ports.ConfirmationPrompter
	if req.Confirm {
		prompter = s.Prompter
	}

	healer, err := s.HealerFactory.ForProject(req.Project, ledger, policy, prompter)
	if err != nil {
		return domain.HealingLoopResult{}, err
	}

	s.Logger.Info("healing run started", map[string]interface{}{
		"runId":    runID,
		"project":  req.Project.Name,
		"language": req.Project.Language,
		"healer":   healer.Name(),
		"maxIter":  maxIterations,
	})

	result := domain.HealingLoopResult{RunID: runID}
	recurrence := map[string]int{}
	counted := 0

	for result.Attempts < maxIterations && result.HardBlocker == "" {
		s.logState(domain.StateValidating, runID, result.Attempts)
		report, err := s.Validator.Validate(ctx, req.Project.Path, req.GeneratedFiles)
		if err != nil {
			result.LastError = err.Error()
			result.Attempts++
			continue
		}
		if !report.Valid {
			for _, synErr := range report.Errors {
				ledger.Record(domain.Issue{
					Stage:    domain.StageAnalysis,
					Severity: domain.SeverityError,
					Code:     domain.IssueSyntaxInvalid,
					Message:  fmt.Sprintf("%s:%d: %s", synErr.File, synErr.Line, synErr.Message),
				})
			}
			result.Attempts++
			result.HardBlocker = "generated test files contain syntax errors"
			break
		}

		if err := healer.Analyze(ctx, req.Project, req.GeneratedFiles); err != nil {
			return result, fmt.Errorf("analyze: %w", err)
		}

		if blocker := s.countRecurrences(ledger, recurrence, &counted); blocker != "" {
			result.HardBlocker = blocker
			break
		}
		if blocker := policyBlocker(ledger, policy); blocker != "" {
			result.HardBlocker = blocker
			break
		}

		s.logState(domain.StateRemediating, runID, result.Attempts)
		if err := healer.Heal(ctx, req.Project.Path); err != nil {
			result.LastError = err.Error()
			result.Attempts++
			continue
		}

		s.logState(domain.StateExecuting, runID, result.Attempts)
		result.Attempts++
		execResult, err := s.Runner.Run(ctx, domain.CommandSpec{
			Command: req.TestCommand,
			Dir:     req.Project.Path,
			Timeout: timeout,
		})
		if err != nil {
			result.LastError = err.Error()
			continue
		}

		output := execResult.Combined()
		if executionSucceeded(output) {
			result.Success = true
			result.LastError = ""
			break
		}
		result.LastError = summarizeFailure(output)

		s.logState(domain.StateClassifying, runID, result.Attempts)
		classification := s.Classifier.Classify(output)
		s.Logger.Debug("failure classified", map[string]interface{}{
			"category": string(classification.Category),
			"target":   classification.Target,
		})

		if blocker := s.handleClassification(ledger, classification); blocker != "" {
			result.HardBlocker = blocker
			break
		}
	}

	// A blocked run that never reached execution still spent its first pass.
	if result.Attempts == 0 {
		result.Attempts = 1
	}

	result.FinalIssues = ledger.Issues()
	result.FinalActions = ledger.Actions()
	result.Duration = time.Since(start)

	s.persist(req, cfg, result)
	s.Logger.Info("healing run finished", map[string]interface{}{
		"runId":    runID,
		"outcome":  string(result.Outcome()),
		"attempts": result.Attempts,
	})
	return result, nil
}

// handleClassification records the execution-stage issue for a failed attempt
// and returns a hard-blocker reason for categories the loop cannot fix.
func (s *HealLoopService) handleClassification(ledger *domain.Ledger, cls domain.Classification) string {
	switch cls.Category {
	case domain.FailureServiceUnreachable:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueServiceUnreachable,
			Message:  "tests depend on an external service that is not reachable",
			Details:  cls.Target,
			Remediation: []domain.RemediationStep{{
				Title:       "Start the service",
				Description: "Start the service the tests connect to, or point them at a reachable instance.",
			}},
		})
		return "Target service not reachable at " + withScheme(cls.Target)

	case domain.FailureTestTypeErrors:
		// Retried like other mechanical failures; if the same type error
		// keeps coming back the recurrence rule trips the blocker.
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueTestTypeErrors,
			Message:  "generated tests contain type errors",
			Remediation: []domain.RemediationStep{{
				Title:       "Regenerate the tests",
				Description: "Type errors confined to test code usually need regeneration rather than environment changes.",
			}},
		})

	case domain.FailureMockMisuse:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueMockMisuse,
			Message:  "generated tests misuse the mocking framework",
			Remediation: []domain.RemediationStep{{
				Title:       "Regenerate the tests",
				Description: "Mocking API misuse in test code cannot be fixed by environment changes.",
			}},
		})
		return "generated tests misuse the mocking framework"

	case domain.FailureMissingDependency:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingDependency,
			Message:  missingModuleMessage(cls.Target),
			Details:  cls.Target,
		})

	case domain.FailureMissingInternalModule:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingInternalModule,
			Message:  missingModuleMessage(cls.Target),
			Details:  cls.Target,
		})

	case domain.FailureMissingRunnerConfig:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingRunnerConfig,
			Message:  "test runner configuration is missing or invalid",
		})

	case domain.FailureMissingPreset:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingPreset,
			Message:  "test runner preset or transform is missing",
			Details:  cls.Target,
		})

	case domain.FailureNoTestsFound:
		ledger.Record(domain.Issue{
			Stage:    domain.StageExecution,
			Severity: domain.SeverityError,
			Code:     domain.IssueNoTestsDiscovered,
			Message:  "the runner discovered no tests",
		})

	case domain.FailureUnknown:
		// Nothing actionable; the loop retries until exhausted.
	}
	return ""
}

// countRecurrences tallies issue keys as they appear and trips the hard
// blocker when the same code:message pair keeps coming back.
func (s *HealLoopService) countRecurrences(ledger *domain.Ledger, recurrence map[string]int, counted *int) string {
	issues := ledger.Issues()
	for _, issue := range issues[*counted:] {
		key := issue.Key()
		recurrence[key]++
		if recurrence[key] >= domain.RecurrenceLimit {
			return fmt.Sprintf("issue recurred %d times without resolution: %s", recurrence[key], issue.Message)
		}
	}
	*counted = len(issues)
	return ""
}

// policyBlocker stops the loop when an unresolved error needs a capability
// the policy disables. The issue and its remediation stay on the ledger.
func policyBlocker(ledger *domain.Ledger, policy domain.AutoFixPolicy) string {
	for _, issue := range ledger.Unresolved() {
		if issue.Severity != domain.SeverityError {
			continue
		}
		switch issue.Code {
		case domain.IssueMissingDependency, domain.IssueMissingPreset:
			if !policy.CanInstall() {
				return fmt.Sprintf("fixing %s requires install_dependencies, which is disabled", issue.Code)
			}
		case domain.IssueMissingInternalModule, domain.IssueMissingRunnerConfig, domain.IssueNoTestsDiscovered:
			if !policy.CanEditConfig() {
				return fmt.Sprintf("fixing %s requires edit_config, which is disabled", issue.Code)
			}
		case domain.IssueMissingEnvironment:
			if !policy.CanCreateEnvironment() && !policy.CanInstall() {
				return fmt.Sprintf("fixing %s requires create_environment, which is disabled", issue.Code)
			}
		}
	}
	return ""
}

func (s *HealLoopService) persist(req domain.HealRequest, cfg domain.Config, result domain.HealingLoopResult) {
	if s.Repository == nil {
		return
	}
	record := domain.RunRecord{
		RunID:       result.RunID,
		Timestamp:   time.Now(),
		Project:     req.Project.Name,
		Language:    string(domain.NormalizeLanguage(req.Project.Language)),
		TestCommand: req.TestCommand,
		Success:     result.Success,
		Attempts:    result.Attempts,
		HardBlocker: result.HardBlocker,
		LastError:   result.LastError,
		IssueCount:  len(result.FinalIssues),
		ActionCount: len(result.FinalActions),
		DurationMS:  result.Duration.Milliseconds(),
	}
	if err := s.Repository.SaveRun(record); err != nil {
		s.Logger.Warn("saving run history failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, action := range result.FinalActions {
		if err := s.Repository.SaveAction(result.RunID, action); err != nil {
			s.Logger.Warn("saving action history failed", map[string]interface{}{"error": err.Error()})
			break
		}
	}
	if err := s.Repository.PruneOlderThan(cfg.History.RetentionDays); err != nil {
		s.Logger.Warn("pruning run history failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *HealLoopService) logState(state domain.LoopState, runID string, attempt int) {
	s.Logger.Debug("loop state", map[string]interface{}{
		"state":   string(state),
		"runId":   runID,
		"attempt": attempt,
	})
}

// executionSucceeded reads the verdict from the output alone. A pass summary
// wins outright even next to failure markers, a failure marker without one
// loses, and output carrying neither marker is treated as a pass.
func executionSucceeded(output string) bool {
	if passSummaryRe.MatchString(output) {
		return true
	}
	return !failSummaryRe.MatchString(output)
}

func missingModuleMessage(target string) string {
	if target == "" {
		return "a required module cannot be resolved"
	}
	return fmt.Sprintf("module %q cannot be resolved", target)
}

func withScheme(target string) string {
	if target == "" {
		return "unknown address"
	}
	if strings.Contains(target, "://") {
		return target
	}
	return "http://" + target
}

// summarizeFailure keeps the first meaningful line of the runner output so
// the result and history stay readable.
func summarizeFailure(output string) string {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 300 {
				return line[:300]
			}
			return line
		}
	}
	return "test command failed"
}
