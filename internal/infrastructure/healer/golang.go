package healer

import (
	"context"
	"path/filepath"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// GoHealer handles Go modules. Module resolution is delegated to the go
// tool itself.
type GoHealer struct {
	session *Session
}

// Name implements ports.Healer.
func (h *GoHealer) Name() string { return "go" }

func (h *GoHealer) Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error {
	s := h.session
	root := project.Path
	s.setGeneratedFiles(generatedFiles)

	if !s.Prober.Available("go") {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingToolchain,
			Message:  "go toolchain not found on PATH",
		}, domain.RemediationStep{
			Title:       "Install Go",
			Description: "Install the Go toolchain and re-run.",
		})
		return nil
	}

	if !fileExists(filepath.Join(root, "go.mod")) {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingManifest,
			Message:  "go.mod not found",
		}, domain.RemediationStep{
			Title:       "Initialize a module",
			Description: "Create a go.mod for the project.",
			Command:     "go mod init " + project.Name,
		})
	}

	return nil
}

func (h *GoHealer) Heal(ctx context.Context, projectRoot string) error {
	s := h.session

	for _, issue := range s.pending() {
		switch issue.Code {
		case domain.IssueMissingDependency:
			if !s.Policy.CanInstall() {
				continue
			}
			cmd := "go mod tidy"
			if issue.Details != "" {
				cmd = "go get " + issue.Details
			}
			if err := s.fix(ctx, issue, projectRoot, cmd, "fetch missing module"); err != nil {
				return err
			}

		case domain.IssueMissingEnvironment:
			if !s.Policy.CanInstall() {
				continue
			}
			if err := s.fix(ctx, issue, projectRoot, "go mod download", "download module dependencies"); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ ports.Healer = (*GoHealer)(nil)
