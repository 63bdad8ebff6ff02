// Package healer contains the per-ecosystem healers that detect and, when
// authorized, fix environment problems blocking a generated test suite.
package healer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// Session carries the shared bookkeeping every healer variant operates on:
// the run's ledger, the command runner, the auto-fix policy, and tracking of
// which issues a fix was already attempted for. Keeping this in one value
// passed to each variant avoids inherited mutable state between variants.
type Session struct {
	Project  domain.ProjectDescriptor
	Ledger   *domain.Ledger
	Runner   ports.CommandRunner
	Policy   domain.AutoFixPolicy
	Prompter ports.ConfirmationPrompter
	Logger   ports.Logger
	Prober   ports.ToolProber
	Timeout  time.Duration

	attempted map[*domain.Issue]struct{}
	files     []string
}

func newSession(project domain.ProjectDescriptor, ledger *domain.Ledger, policy domain.AutoFixPolicy, runner ports.CommandRunner, prober ports.ToolProber, prompter ports.ConfirmationPrompter, log ports.Logger, timeout time.Duration) *Session {
	return &Session{
		Project:   project,
		Ledger:    ledger,
		Runner:    runner,
		Policy:    policy,
		Prompter:  prompter,
		Logger:    log,
		Prober:    prober,
		Timeout:   timeout,
		attempted: make(map[*domain.Issue]struct{}),
	}
}

// report records a new issue with its remediation steps attached.
func (s *Session) report(issue domain.Issue, steps ...domain.RemediationStep) *domain.Issue {
	issue.Remediation = append(issue.Remediation, steps...)
	s.Logger.Debug("issue recorded", map[string]interface{}{
		"code":    string(issue.Code),
		"message": issue.Message,
	})
	return s.Ledger.Record(issue)
}

// pending returns unresolved issues no fix was attempted for yet. Calling
// Heal twice without new issues therefore performs no additional actions.
func (s *Session) pending() []*domain.Issue {
	var out []*domain.Issue
	for _, issue := range s.Ledger.Unresolved() {
		if _, done := s.attempted[issue]; !done {
			out = append(out, issue)
		}
	}
	return out
}

func (s *Session) markAttempted(issue *domain.Issue) {
	s.attempted[issue] = struct{}{}
}

// setGeneratedFiles stashes the file list from the latest Analyze pass so
// Heal can rewrite imports in the same files.
func (s *Session) setGeneratedFiles(files []string) {
	s.files = files
}

func (s *Session) generatedFiles() []string {
	return s.files
}

// fix executes one remediation command, records the AutoFixAction on the
// ledger and the issue, and marks the issue fixed on success. Runner errors
// (spawn failure, timeout) propagate to the caller.
func (s *Session) fix(ctx context.Context, issue *domain.Issue, dir, command, description string) error {
	if s.Prompter != nil && s.Prompter.Enabled() {
		approved, err := s.Prompter.Confirm(command, description)
		if err != nil || !approved {
			s.markAttempted(issue)
			return nil
		}
	}

	result, err := s.Runner.Run(ctx, domain.CommandSpec{
		Command: command,
		Dir:     dir,
		Timeout: s.Timeout,
	})

	action := domain.AutoFixAction{
		ID:          uuid.NewString(),
		Project:     s.Project.Name,
		Path:        dir,
		Command:     command,
		Description: description,
		Success:     err == nil && result.ExitCode == 0,
		Timestamp:   time.Now(),
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
	}
	s.Ledger.AddAction(action)
	s.markAttempted(issue)

	if action.Success {
		s.Ledger.MarkFixed(issue, action)
		s.Logger.Info("auto-fix applied", map[string]interface{}{
			"command": command,
			"issue":   string(issue.Code),
		})
	} else {
		s.Ledger.AttachAction(issue, action)
		s.Logger.Warn("auto-fix failed", map[string]interface{}{
			"command":  command,
			"issue":    string(issue.Code),
			"exitCode": result.ExitCode,
		})
	}
	return err
}

// fixWithWrite applies a file edit directly and records it as an action.
func (s *Session) fixWithWrite(issue *domain.Issue, path string, contents []byte, description string) {
	if s.Prompter != nil && s.Prompter.Enabled() {
		approved, err := s.Prompter.Confirm("write "+path, description)
		if err != nil || !approved {
			s.markAttempted(issue)
			return
		}
	}

	err := os.WriteFile(path, contents, 0o644)
	action := domain.AutoFixAction{
		ID:          uuid.NewString(),
		Project:     s.Project.Name,
		Path:        filepath.Dir(path),
		Command:     "write " + filepath.Base(path),
		Description: description,
		Success:     err == nil,
		Timestamp:   time.Now(),
	}
	if err != nil {
		action.Stderr = err.Error()
	}
	s.Ledger.AddAction(action)
	s.markAttempted(issue)

	if action.Success {
		s.Ledger.MarkFixed(issue, action)
	} else {
		s.Ledger.AttachAction(issue, action)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
