package validator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mendtool/mend/internal/domain"
)

type scriptedRunner struct {
	results map[string]domain.CommandResult
	ran     []string
}

func (r *scriptedRunner) Run(_ context.Context, spec domain.CommandSpec) (domain.CommandResult, error) {
	r.ran = append(r.ran, spec.Command)
	for prefix, result := range r.results {
		if strings.HasPrefix(spec.Command, prefix) {
			return result, nil
		}
	}
	return domain.CommandResult{ExitCode: 0}, nil
}

type allProber struct{}

func (allProber) Available(string) bool { return true }

func TestValidatePassesCleanFiles(t *testing.T) {
	runner := &scriptedRunner{}
	v := New(runner, allProber{}, time.Second)

	report, err := v.Validate(context.Background(), "/proj", []string{"tests/sum.test.js", "tests/test_api.py"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !report.Valid {
		t.Fatalf("Valid = false, errors = %+v", report.Errors)
	}
	if len(runner.ran) != 2 {
		t.Fatalf("commands run = %d, want 2", len(runner.ran))
	}
}

func TestValidateReportsSyntaxError(t *testing.T) {
	runner := &scriptedRunner{results: map[string]domain.CommandResult{
		"python3 -m py_compile": {
			ExitCode: 1,
			Stderr:   `  File "tests/test_api.py", line 7` + "\n    def broken(\nSyntaxError: invalid syntax",
		},
	}}
	v := New(runner, allProber{}, time.Second)

	report, err := v.Validate(context.Background(), "/proj", []string{"tests/test_api.py"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if report.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(report.Errors))
	}
	if report.Errors[0].Line != 7 {
		t.Fatalf("Line = %d, want 7", report.Errors[0].Line)
	}
	if report.Errors[0].File != "tests/test_api.py" {
		t.Fatalf("File = %q", report.Errors[0].File)
	}
}

func TestValidateSkipsUncheckableFiles(t *testing.T) {
	runner := &scriptedRunner{}
	v := New(runner, allProber{}, time.Second)

	report, err := v.Validate(context.Background(), "/proj", []string{"tests/api.test.ts", "Tests/ApiTests.cs"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !report.Valid {
		t.Fatal("Valid = false for uncheckable files")
	}
	if len(runner.ran) != 0 {
		t.Fatalf("commands run = %v, want none", runner.ran)
	}
}
