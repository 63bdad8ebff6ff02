package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

type stubConfig struct {
	cfg domain.Config
}

func (s stubConfig) Load(context.Context) (domain.Config, error) {
	return s.cfg, nil
}

type scriptedRunner struct {
	results []domain.CommandResult
	calls   int
}

func (r *scriptedRunner) Run(context.Context, domain.CommandSpec) (domain.CommandResult, error) {
	idx := r.calls
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	r.calls++
	return r.results[idx], nil
}

type keywordClassifier struct{}

func (keywordClassifier) Classify(output string) domain.Classification {
	switch {
	case strings.Contains(output, "ECONNREFUSED"):
		return domain.Classification{Category: domain.FailureServiceUnreachable, Target: "127.0.0.1:3000"}
	case strings.Contains(output, "Cannot find module"):
		return domain.Classification{Category: domain.FailureMissingDependency, Target: "axios"}
	case strings.Contains(output, "error TS"):
		return domain.Classification{Category: domain.FailureTestTypeErrors}
	default:
		return domain.Classification{Category: domain.FailureUnknown}
	}
}

type passValidator struct{}

func (passValidator) Validate(context.Context, string, []string) (domain.ValidationReport, error) {
	return domain.ValidationReport{Valid: true}, nil
}

type failValidator struct{}

func (failValidator) Validate(context.Context, string, []string) (domain.ValidationReport, error) {
	return domain.ValidationReport{
		Valid:  false,
		Errors: []domain.SyntaxError{{File: "tests/sum.test.js", Line: 3, Message: "Unexpected token"}},
	}, nil
}

type fakeHealer struct {
	ledger *domain.Ledger
	fixAll bool
}

func (h *fakeHealer) Name() string { return "fake" }

func (h *fakeHealer) Analyze(context.Context, domain.ProjectDescriptor, []string) error {
	return nil
}

func (h *fakeHealer) Heal(context.Context, string) error {
	if !h.fixAll {
		return nil
	}
	for _, issue := range h.ledger.Unresolved() {
		action := domain.AutoFixAction{
			ID:        "act-" + string(issue.Code),
			Command:   "npm install " + issue.Details,
			Success:   true,
			Timestamp: time.Now(),
		}
		h.ledger.AddAction(action)
		h.ledger.MarkFixed(issue, action)
	}
	return nil
}

type fakeFactory struct {
	fixAll bool
	healer *fakeHealer
	policy domain.AutoFixPolicy
}

func (f *fakeFactory) ForProject(_ domain.ProjectDescriptor, ledger *domain.Ledger, policy domain.AutoFixPolicy, _ ports.ConfirmationPrompter) (ports.Healer, error) {
	f.policy = policy
	f.healer = &fakeHealer{ledger: ledger, fixAll: f.fixAll}
	return f.healer, nil
}

type memoryRepo struct {
	runs    []domain.RunRecord
	actions []domain.AutoFixAction
}

func (r *memoryRepo) SaveRun(rec domain.RunRecord) error { r.runs = append(r.runs, rec); return nil }
func (r *memoryRepo) SaveAction(_ string, a domain.AutoFixAction) error {
	r.actions = append(r.actions, a)
	return nil
}
func (r *memoryRepo) Runs(int, string) ([]domain.RunRecord, error) { return r.runs, nil }
func (r *memoryRepo) Clear() error                                 { return nil }
func (r *memoryRepo) ExportJSON(string) error                      { return nil }
func (r *memoryRepo) PruneOlderThan(int) error                     { return nil }

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{})        {}
func (nopLogger) Info(string, map[string]interface{})         {}
func (nopLogger) Warn(string, map[string]interface{})         {}
func (nopLogger) Error(string, error, map[string]interface{}) {}

func testConfig(maxIterations int) domain.Config {
	return domain.Config{
		AutoFix: domain.AutoFixPolicy{
			Enabled:             true,
			InstallDependencies: true,
			EditConfig:          true,
			CreateEnvironment:   true,
			MaxIterations:       maxIterations,
		},
		Execution: domain.ExecutionSettings{TimeoutSeconds: 5},
	}
}

func newService(cfg domain.Config, runner ports.CommandRunner, factory ports.HealerFactory, validator ports.SyntaxValidator, repo ports.RunRepository) *HealLoopService {
	return &HealLoopService{
		ConfigProvider: stubConfig{cfg: cfg},
		HealerFactory:  factory,
		Runner:         runner,
		Classifier:     keywordClassifier{},
		Validator:      validator,
		Repository:     repo,
		Prompter:       nil,
		Logger:         nopLogger{},
	}
}

func healRequest() domain.HealRequest {
	return domain.HealRequest{
		Project: domain.ProjectDescriptor{
			Name:     "shop-api",
			Language: "node",
			Path:     "/proj",
		},
		GeneratedFiles: []string{"tests/sum.test.js"},
		TestCommand:    "npx jest",
	}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 0, Stdout: "Tests: 5 passed, 5 total"},
	}}
	repo := &memoryRepo{}
	svc := newService(testConfig(5), runner, &fakeFactory{}, passValidator{}, repo)

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success || result.Attempts != 1 {
		t.Fatalf("Success = %v, Attempts = %d; want success in 1", result.Success, result.Attempts)
	}
	if result.Outcome() != domain.OutcomeSucceeded {
		t.Fatalf("Outcome() = %s", result.Outcome())
	}
	if len(repo.runs) != 1 || !repo.runs[0].Success {
		t.Fatalf("run not persisted: %+v", repo.runs)
	}
}

func TestRunInstallsMissingDependencyThenPasses(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "Cannot find module 'axios'\nTest Suites: 1 failed, 1 total"},
		{ExitCode: 0, Stdout: "Tests: 3 passed, 3 total"},
	}}
	repo := &memoryRepo{}
	factory := &fakeFactory{fixAll: true}
	svc := newService(testConfig(5), runner, factory, passValidator{}, repo)

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false; blocker=%q lastErr=%q", result.HardBlocker, result.LastError)
	}
	if result.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", result.Attempts)
	}
	if len(result.FinalActions) == 0 {
		t.Fatal("no auto-fix actions recorded")
	}

	fixed := false
	for _, issue := range result.FinalIssues {
		if issue.Code == domain.IssueMissingDependency && issue.AutoFixed {
			fixed = true
		}
	}
	if !fixed {
		t.Fatal("dependency issue not marked auto-fixed")
	}
	if len(repo.actions) != len(result.FinalActions) {
		t.Fatalf("persisted actions = %d, want %d", len(repo.actions), len(result.FinalActions))
	}
}

func TestRunHardBlocksOnUnreachableService(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "connect ECONNREFUSED 127.0.0.1:3000\nTest Suites: 1 failed, 1 total"},
	}}
	svc := newService(testConfig(5), runner, &fakeFactory{fixAll: true}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want hard block")
	}
	want := "Target service not reachable at http://127.0.0.1:3000"
	if result.HardBlocker != want {
		t.Fatalf("HardBlocker = %q, want %q", result.HardBlocker, want)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1 (no retry on unreachable service)", result.Attempts)
	}
	if result.Outcome() != domain.OutcomeHardBlocked {
		t.Fatalf("Outcome() = %s", result.Outcome())
	}
}

func TestRunExhaustsIterationBudgetOnUnknownFailure(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "Tests: 3 failed, 3 total\nSegmentation fault (core dumped)"},
	}}
	svc := newService(testConfig(3), runner, &fakeFactory{}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want exhaustion")
	}
	if result.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", result.Attempts)
	}
	if result.HardBlocker != "" {
		t.Fatalf("HardBlocker = %q, want empty for exhausted run", result.HardBlocker)
	}
	if result.LastError == "" {
		t.Fatal("LastError empty on exhausted run")
	}
	if result.Outcome() != domain.OutcomeExhausted {
		t.Fatalf("Outcome() = %s", result.Outcome())
	}
}

func TestRunBlocksOnRecurringIssue(t *testing.T) {
	// The install "succeeds" from the healer's view but the failure output
	// never changes, so the same issue keeps being recorded.
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "Cannot find module 'axios'\nTest Suites: 1 failed, 1 total"},
	}}
	svc := newService(testConfig(5), runner, &fakeFactory{fixAll: true}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want recurrence block")
	}
	if !strings.Contains(result.HardBlocker, "recurred") {
		t.Fatalf("HardBlocker = %q, want recurrence reason", result.HardBlocker)
	}
	if result.Attempts >= 5 {
		t.Fatalf("Attempts = %d, want fewer than the full budget", result.Attempts)
	}
}

func TestRunBlocksWhenInstallGateDisabled(t *testing.T) {
	cfg := testConfig(5)
	cfg.AutoFix.InstallDependencies = false
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "Cannot find module 'axios'\nTest Suites: 1 failed, 1 total"},
	}}
	svc := newService(cfg, runner, &fakeFactory{}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want policy block")
	}
	if !strings.Contains(result.HardBlocker, "install_dependencies") {
		t.Fatalf("HardBlocker = %q, want install gate reason", result.HardBlocker)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", result.Attempts)
	}

	// The gated issue keeps its remediation guidance for the user.
	found := false
	for _, issue := range result.FinalIssues {
		if issue.Code == domain.IssueMissingDependency && !issue.AutoFixed {
			found = true
		}
	}
	if !found {
		t.Fatal("gated dependency issue missing from result")
	}
}

func TestRunRetriesTypeErrorsUntilRecurrenceBlock(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stderr: "Test suite failed to run\ntests/user.test.ts(3,1): error TS2345: bad argument"},
	}}
	svc := newService(testConfig(5), runner, &fakeFactory{}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want recurrence block")
	}
	if result.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3 retries before the block", result.Attempts)
	}
	if !strings.Contains(result.HardBlocker, "recurred") {
		t.Fatalf("HardBlocker = %q, want recurrence reason", result.HardBlocker)
	}

	typeErrors := 0
	for _, issue := range result.FinalIssues {
		if issue.Code == domain.IssueTestTypeErrors {
			typeErrors++
		}
	}
	if typeErrors != 3 {
		t.Fatalf("type error issues = %d, want one per attempt", typeErrors)
	}
}

func TestRunHardBlocksOnSyntaxErrors(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{{ExitCode: 0}}}
	svc := newService(testConfig(5), runner, &fakeFactory{}, failValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1 (validation consumed the iteration)", result.Attempts)
	}
	if result.HardBlocker == "" {
		t.Fatal("HardBlocker empty for invalid syntax")
	}
	found := false
	for _, issue := range result.FinalIssues {
		if issue.Code == domain.IssueSyntaxInvalid {
			found = true
		}
	}
	if !found {
		t.Fatal("syntax issue not recorded")
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	svc := newService(testConfig(5), &scriptedRunner{results: []domain.CommandResult{{}}}, &fakeFactory{}, passValidator{}, &memoryRepo{})

	req := healRequest()
	req.TestCommand = ""
	if _, err := svc.Run(req); err == nil {
		t.Fatal("Run() error = nil for empty test command")
	}

	req = healRequest()
	req.Project.Path = ""
	if _, err := svc.Run(req); err == nil {
		t.Fatal("Run() error = nil for empty project path")
	}
}

func TestRunPassSummaryOutranksFailureMarkers(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stdout: "Tests: 1 failed, 4 passed, 5 total\nForce exiting Jest"},
	}}
	svc := newService(testConfig(5), runner, &fakeFactory{}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false; lastErr=%q", result.LastError)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRunMarkerlessOutputIsOptimisticSuccess(t *testing.T) {
	runner := &scriptedRunner{results: []domain.CommandResult{
		{ExitCode: 1, Stdout: "some unrelated warning output"},
	}}
	svc := newService(testConfig(5), runner, &fakeFactory{}, passValidator{}, &memoryRepo{})

	result, err := svc.Run(healRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false; lastErr=%q", result.LastError)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", result.Attempts)
	}
}
