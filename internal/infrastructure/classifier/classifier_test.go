package classifier

import (
	"testing"

	"github.com/mendtool/mend/internal/domain"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New("/nonexistent/classifier.yaml")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClassifyCategories(t *testing.T) {
	c := newDefaultClassifier(t)

	cases := []struct {
		name   string
		output string
		want   domain.FailureCategory
	}{
		{
			name:   "node missing package",
			output: "Error: Cannot find module 'left-pad'\nRequire stack:\n- /app/tests/sum.test.js",
			want:   domain.FailureMissingDependency,
		},
		{
			name:   "node missing relative import",
			output: "Cannot find module './utils/helpers' from 'tests/api.test.ts'",
			want:   domain.FailureMissingInternalModule,
		},
		{
			name:   "python missing module",
			output: "ModuleNotFoundError: No module named 'requests'",
			want:   domain.FailureMissingDependency,
		},
		{
			name:   "go missing package",
			output: "main.go:5:2: no required module provides package github.com/stretchr/testify/assert; to add it:",
			want:   domain.FailureMissingDependency,
		},
		{
			name:   "connection refused",
			output: "Error: connect ECONNREFUSED 127.0.0.1:3000\n    at TCPConnectWrap.afterConnect",
			want:   domain.FailureServiceUnreachable,
		},
		{
			name:   "missing preset",
			output: "Validation Error: Preset ts-jest not found.",
			want:   domain.FailureMissingPreset,
		},
		{
			name:   "esm without transform",
			output: "SyntaxError: Cannot use import statement outside a module",
			want:   domain.FailureMissingPreset,
		},
		{
			name:   "runner config missing",
			output: "pytest: error: unrecognized arguments: --cov-report",
			want:   domain.FailureMissingRunnerConfig,
		},
		{
			name:   "typescript errors",
			output: "tests/user.test.ts(14,7): error TS2345: Argument of type 'string' is not assignable.",
			want:   domain.FailureTestTypeErrors,
		},
		{
			name:   "mock misuse",
			output: "TypeError: userService.fetch.mockReturnValue is not a function",
			want:   domain.FailureMockMisuse,
		},
		{
			name:   "no tests jest",
			output: "No tests found, exiting with code 1",
			want:   domain.FailureNoTestsFound,
		},
		{
			name:   "no tests pytest",
			output: "collected 0 items\n\n===== no tests ran in 0.01s =====",
			want:   domain.FailureNoTestsFound,
		},
		{
			name:   "unknown",
			output: "Segmentation fault (core dumped)",
			want:   domain.FailureUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.output)
			if got.Category != tc.want {
				t.Fatalf("Classify() = %s, want %s", got.Category, tc.want)
			}
		})
	}
}

func TestClassifyOrderingConnectionBeforeModule(t *testing.T) {
	c := newDefaultClassifier(t)

	// Both patterns present: the connection failure must win.
	output := "Error: connect ECONNREFUSED 127.0.0.1:3000\nCannot find module 'http-helper'"
	got := c.Classify(output)
	if got.Category != domain.FailureServiceUnreachable {
		t.Fatalf("Classify() = %s, want %s", got.Category, domain.FailureServiceUnreachable)
	}
	if got.Target != "127.0.0.1:3000" {
		t.Fatalf("Target = %q, want 127.0.0.1:3000", got.Target)
	}
}

func TestClassifyDeterminism(t *testing.T) {
	c := newDefaultClassifier(t)

	output := "Cannot find module 'axios'"
	first := c.Classify(output)
	for i := 0; i < 10; i++ {
		if got := c.Classify(output); got != first {
			t.Fatalf("Classify() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyTargetExtraction(t *testing.T) {
	c := newDefaultClassifier(t)

	cases := []struct {
		output string
		target string
	}{
		{"Cannot find module 'left-pad'", "left-pad"},
		{"Cannot find module './helpers'", "./helpers"},
		{"ModuleNotFoundError: No module named 'flask_cors'", "flask_cors"},
		{"connect ECONNREFUSED 10.0.0.5:8080", "10.0.0.5:8080"},
		{"Failed to connect to http://localhost:9200 cluster", "http://localhost:9200"},
	}

	for _, tc := range cases {
		got := c.Classify(tc.output)
		if got.Target != tc.target {
			t.Errorf("Classify(%q).Target = %q, want %q", tc.output, got.Target, tc.target)
		}
	}
}
