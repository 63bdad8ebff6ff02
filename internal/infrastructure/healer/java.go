package healer

import (
	"context"
	"path/filepath"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// JavaHealer handles Maven and Gradle builds. Dependency resolution is
// delegated to the build tool rather than inferred per import.
type JavaHealer struct {
	session *Session
}

// Name implements ports.Healer.
func (h *JavaHealer) Name() string { return "java" }

func (h *JavaHealer) Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error {
	s := h.session
	root := project.Path
	s.setGeneratedFiles(generatedFiles)

	build := detectJavaBuild(root)
	if build == "" {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingManifest,
			Message:  "no pom.xml or build.gradle found",
		}, domain.RemediationStep{
			Title:       "Add a build file",
			Description: "The project needs a Maven or Gradle build definition before tests can run.",
		})
		return nil
	}

	tool := buildTool(root, build)
	if !s.Prober.Available(filepath.Base(tool)) && !fileExists(filepath.Join(root, tool)) {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingToolchain,
			Message:  tool + " not found on PATH",
		}, domain.RemediationStep{
			Title:       "Install " + tool,
			Description: "Install the build tool or add the wrapper script to the repository.",
		})
		return nil
	}

	// Resolution problems surface at execution time; seed one env-setup
	// issue when the local repository was never populated.
	if build == "maven" && !fileExists(filepath.Join(root, "target")) {
		s.report(domain.Issue{
			Stage:    domain.StageEnvSetup,
			Severity: domain.SeverityWarning,
			Code:     domain.IssueMissingEnvironment,
			Message:  "project has not been built, dependencies may be unresolved",
		}, domain.RemediationStep{
			Title:       "Resolve dependencies",
			Description: "Download the declared dependencies into the local repository.",
			Command:     resolveCommand(root, build),
		})
	}

	return nil
}

func (h *JavaHealer) Heal(ctx context.Context, projectRoot string) error {
	s := h.session
	build := detectJavaBuild(projectRoot)

	for _, issue := range s.pending() {
		switch issue.Code {
		case domain.IssueMissingDependency, domain.IssueMissingEnvironment:
			if !s.Policy.CanInstall() || build == "" {
				continue
			}
			cmd := resolveCommand(projectRoot, build)
			if err := s.fix(ctx, issue, projectRoot, cmd, "resolve build dependencies"); err != nil {
				return err
			}
		}
	}
	return nil
}

func detectJavaBuild(root string) string {
	switch {
	case fileExists(filepath.Join(root, "pom.xml")):
		return "maven"
	case fileExists(filepath.Join(root, "build.gradle")), fileExists(filepath.Join(root, "build.gradle.kts")):
		return "gradle"
	default:
		return ""
	}
}

// buildTool prefers the project wrapper script when present.
func buildTool(root, build string) string {
	if build == "maven" {
		if fileExists(filepath.Join(root, "mvnw")) {
			return "./mvnw"
		}
		return "mvn"
	}
	if fileExists(filepath.Join(root, "gradlew")) {
		return "./gradlew"
	}
	return "gradle"
}

func resolveCommand(root, build string) string {
	tool := buildTool(root, build)
	if build == "maven" {
		return tool + " -q -DskipTests dependency:resolve"
	}
	return tool + " --quiet dependencies"
}

var _ ports.Healer = (*JavaHealer)(nil)
