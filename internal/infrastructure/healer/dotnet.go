package healer

import (
	"context"
	"path/filepath"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// DotNetHealer handles .NET projects; NuGet resolution goes through
// `dotnet restore`.
type DotNetHealer struct {
	session *Session
}

// Name implements ports.Healer.
func (h *DotNetHealer) Name() string { return "dotnet" }

func (h *DotNetHealer) Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error {
	s := h.session
	root := project.Path
	s.setGeneratedFiles(generatedFiles)

	if !s.Prober.Available("dotnet") {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingToolchain,
			Message:  "dotnet SDK not found on PATH",
		}, domain.RemediationStep{
			Title:       "Install the .NET SDK",
			Description: "Install the .NET SDK matching the project's target framework.",
		})
		return nil
	}

	if !hasProjectFile(root) {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingManifest,
			Message:  "no .csproj or .sln file found",
		}, domain.RemediationStep{
			Title:       "Add a project file",
			Description: "The test project needs a .csproj definition before it can build.",
		})
		return nil
	}

	if !fileExists(filepath.Join(root, "obj")) {
		s.report(domain.Issue{
			Stage:    domain.StageEnvSetup,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingEnvironment,
			Message:  "NuGet packages have not been restored",
		}, domain.RemediationStep{
			Title:       "Restore packages",
			Description: "Restore the declared NuGet packages.",
			Command:     "dotnet restore",
		})
	}

	return nil
}

func (h *DotNetHealer) Heal(ctx context.Context, projectRoot string) error {
	s := h.session

	for _, issue := range s.pending() {
		switch issue.Code {
		case domain.IssueMissingDependency, domain.IssueMissingEnvironment:
			if !s.Policy.CanInstall() {
				continue
			}
			if err := s.fix(ctx, issue, projectRoot, "dotnet restore", "restore NuGet packages"); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasProjectFile(root string) bool {
	for _, pattern := range []string{"*.csproj", "*.sln", "*.fsproj"} {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

var _ ports.Healer = (*DotNetHealer)(nil)
