// Package runner executes shell commands with a hard timeout. It is the only
// component that touches the OS process boundary.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// ErrTimeout marks commands killed by the runner's deadline.
var ErrTimeout = errors.New("command timed out")

// ShellRunner runs commands through the configured shell.
type ShellRunner struct {
	shell string
}

// NewShellRunner builds a new runner, shell defaults to $SHELL then /bin/sh.
func NewShellRunner(shell string) *ShellRunner {
	if shell == "" || shell == "auto" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ShellRunner{shell: shell}
}

// Run implements ports.CommandRunner. A non-zero exit code is returned in the
// result with a nil error; errors are reserved for spawn failures and
// timeouts. On timeout the whole process group is killed, not just the shell.
func (r *ShellRunner) Run(ctx context.Context, spec domain.CommandSpec) (domain.CommandResult, error) {
	if spec.Command == "" {
		return domain.CommandResult{}, errors.New("command is required")
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(r.shell, "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	// A new process group so a timeout kill reaches the command's children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.CommandResult{}, fmt.Errorf("start %q: %w", spec.Command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-execCtx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		result := r.result(stdout, stderr, start)
		result.ExitCode = -1
		return result, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, spec.Command)
	case err := <-done:
		result := r.result(stdout, stderr, start)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("run %q: %w", spec.Command, err)
		}
		result.ExitCode = 0
		return result, nil
	}
}

func (r *ShellRunner) result(stdout, stderr bytes.Buffer, start time.Time) domain.CommandResult {
	return domain.CommandResult{
		Stdout:     truncate(stdout.String()),
		Stderr:     truncate(stderr.String()),
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func truncate(s string) string {
	if len(s) > domain.MaxCapturedOutput {
		return s[:domain.MaxCapturedOutput] + "\n...[truncated]"
	}
	return s
}

var _ ports.CommandRunner = (*ShellRunner)(nil)
