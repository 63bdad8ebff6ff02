package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mendtool/mend/internal/domain"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	r := NewShellRunner("/bin/sh")

	result, err := r.Run(context.Background(), domain.CommandSpec{
		Command: "echo out; echo err 1>&2; exit 3",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for non-zero exit", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "out") {
		t.Errorf("Stdout = %q, want to contain 'out'", result.Stdout)
	}
	if !strings.Contains(result.Stderr, "err") {
		t.Errorf("Stderr = %q, want to contain 'err'", result.Stderr)
	}
}

func TestRunZeroExit(t *testing.T) {
	r := NewShellRunner("/bin/sh")

	result, err := r.Run(context.Background(), domain.CommandSpec{
		Command: "true",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestRunTimeoutKillsCommand(t *testing.T) {
	r := NewShellRunner("/bin/sh")

	start := time.Now()
	_, err := r.Run(context.Background(), domain.CommandSpec{
		Command: "sleep 30",
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took %s, process group was not killed", elapsed)
	}
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	r := NewShellRunner("")
	if _, err := r.Run(context.Background(), domain.CommandSpec{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCombinedOutput(t *testing.T) {
	result := domain.CommandResult{Stdout: "a", Stderr: "b"}
	if got := result.Combined(); got != "a\nb" {
		t.Fatalf("Combined() = %q", got)
	}
	if got := (domain.CommandResult{Stderr: "b"}).Combined(); got != "b" {
		t.Fatalf("Combined() stderr-only = %q", got)
	}
}
