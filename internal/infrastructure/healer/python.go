package healer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// PythonHealer handles pip/venv projects running pytest suites.
type PythonHealer struct {
	session *Session
}

// Name implements ports.Healer.
func (h *PythonHealer) Name() string { return "python" }

// pyStdlib covers the standard library modules generated tests commonly
// import. Anything here is never treated as an installable dependency.
var pyStdlib = map[string]struct{}{
	"abc": {}, "argparse": {}, "asyncio": {}, "base64": {}, "collections": {},
	"contextlib": {}, "copy": {}, "csv": {}, "dataclasses": {}, "datetime": {},
	"decimal": {}, "enum": {}, "functools": {}, "hashlib": {}, "http": {},
	"importlib": {}, "io": {}, "itertools": {}, "json": {}, "logging": {},
	"math": {}, "os": {}, "pathlib": {}, "random": {}, "re": {}, "shutil": {},
	"socket": {}, "sqlite3": {}, "string": {}, "subprocess": {}, "sys": {},
	"tempfile": {}, "threading": {}, "time": {}, "typing": {}, "unittest": {},
	"urllib": {}, "uuid": {}, "warnings": {}, "xml": {},
}

// importNameToPackage maps import names whose PyPI distribution differs.
var importNameToPackage = map[string]string{
	"flask_cors":      "flask-cors",
	"dotenv":          "python-dotenv",
	"yaml":            "PyYAML",
	"PIL":             "Pillow",
	"bs4":             "beautifulsoup4",
	"sklearn":         "scikit-learn",
	"dateutil":        "python-dateutil",
	"jwt":             "PyJWT",
	"google.protobuf": "protobuf",
}

var pyImportRe = regexp.MustCompile(`(?m)^\s*(?:from\s+([A-Za-z_][A-Za-z0-9_.]*)\s+import|import\s+([A-Za-z_][A-Za-z0-9_.]*))`)

// Analyze inspects the project without mutating it.
func (h *PythonHealer) Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error {
	s := h.session
	root := project.Path
	s.setGeneratedFiles(generatedFiles)

	if !s.Prober.Available("python3") && !s.Prober.Available("python") {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingToolchain,
			Message:  "python interpreter not found on PATH",
		}, domain.RemediationStep{
			Title:       "Install Python",
			Description: "Install Python 3 and re-run.",
		})
		return nil
	}

	declared := h.declaredDependencies(root)
	hasManifest := fileExists(filepath.Join(root, "requirements.txt")) ||
		fileExists(filepath.Join(root, "pyproject.toml")) ||
		fileExists(filepath.Join(root, "setup.py"))
	if !hasManifest {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityWarning,
			Code:     domain.IssueMissingManifest,
			Message:  "no requirements.txt or pyproject.toml found",
		}, domain.RemediationStep{
			Title:       "Create requirements.txt",
			Description: "Declare the project's dependencies so they can be installed reproducibly.",
		})
	}

	if !fileExists(filepath.Join(root, ".venv")) && !fileExists(filepath.Join(root, "venv")) {
		s.report(domain.Issue{
			Stage:    domain.StageEnvSetup,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingEnvironment,
			Message:  "no virtual environment found",
		}, domain.RemediationStep{
			Title:       "Create a virtual environment",
			Description: "Create an isolated environment for the project's packages.",
			Command:     "python3 -m venv .venv",
		})
	}

	seen := map[string]struct{}{}
	for _, file := range generatedFiles {
		for _, name := range scanPythonImports(filepath.Join(root, file)) {
			top := strings.Split(name, ".")[0]
			if _, std := pyStdlib[top]; std {
				continue
			}
			if isLocalPythonModule(root, top) {
				continue
			}
			pkg := pipPackageName(name)
			if _, ok := declared[strings.ToLower(pkg)]; ok {
				continue
			}
			if _, dup := seen[pkg]; dup {
				continue
			}
			seen[pkg] = struct{}{}
			s.report(domain.Issue{
				Stage:    domain.StageAnalysis,
				Severity: domain.SeverityError,
				Code:     domain.IssueMissingDependency,
				Message:  fmt.Sprintf("package %q is imported by tests but not declared", pkg),
				Details:  pkg,
			}, domain.RemediationStep{
				Title:       "Install " + pkg,
				Description: "Install the package used by the generated tests.",
				Command:     h.pip(root) + " install " + pkg,
			})
		}
	}

	if strings.EqualFold(project.TestFramework, "pytest") && !hasPytestConfig(root) {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityWarning,
			Code:     domain.IssueMissingRunnerConfig,
			Message:  "no pytest configuration found",
		}, domain.RemediationStep{
			Title:       "Create pytest.ini",
			Description: "Add a minimal pytest configuration so test discovery is deterministic.",
		})
	}

	return nil
}

// Heal executes authorized fixes for the unresolved issues on the ledger.
func (h *PythonHealer) Heal(ctx context.Context, projectRoot string) error {
	s := h.session

	for _, issue := range s.pending() {
		switch issue.Code {
		case domain.IssueMissingEnvironment:
			if !s.Policy.CanCreateEnvironment() {
				continue
			}
			if err := s.fix(ctx, issue, projectRoot, "python3 -m venv .venv", "create virtual environment"); err != nil {
				return err
			}

		case domain.IssueMissingDependency:
			if !s.Policy.CanInstall() || issue.Details == "" {
				continue
			}
			cmd := h.pip(projectRoot) + " install " + issue.Details
			if err := s.fix(ctx, issue, projectRoot, cmd, "install missing package "+issue.Details); err != nil {
				return err
			}

		case domain.IssueMissingRunnerConfig:
			if !s.Policy.CanEditConfig() {
				continue
			}
			path := filepath.Join(projectRoot, "pytest.ini")
			if fileExists(path) {
				s.markAttempted(issue)
				continue
			}
			s.fixWithWrite(issue, path, []byte(defaultPytestConfig), "create minimal pytest configuration")
		}
	}

	return nil
}

const defaultPytestConfig = `[pytest]
testpaths = tests
python_files = test_*.py *_test.py
`

// pip prefers the virtual environment's pip when one exists.
func (h *PythonHealer) pip(root string) string {
	for _, dir := range []string{".venv", "venv"} {
		candidate := filepath.Join(root, dir, "bin", "pip")
		if fileExists(candidate) {
			return candidate
		}
	}
	return "pip"
}

func (h *PythonHealer) declaredDependencies(root string) map[string]struct{} {
	declared := map[string]struct{}{}

	if data, err := os.ReadFile(filepath.Join(root, "requirements.txt")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			name := regexp.MustCompile(`^[A-Za-z0-9_.\-]+`).FindString(line)
			if name != "" {
				declared[strings.ToLower(name)] = struct{}{}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		for _, m := range regexp.MustCompile(`"([A-Za-z0-9_.\-]+)[^"]*"`).FindAllStringSubmatch(string(data), -1) {
			declared[strings.ToLower(m[1])] = struct{}{}
		}
	}

	return declared
}

func scanPythonImports(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var names []string
	for _, m := range pyImportRe.FindAllStringSubmatch(string(data), -1) {
		if m[1] != "" {
			names = append(names, m[1])
		} else {
			names = append(names, m[2])
		}
	}
	return names
}

func isLocalPythonModule(root, name string) bool {
	if fileExists(filepath.Join(root, name+".py")) || fileExists(filepath.Join(root, name)) {
		return true
	}
	for _, dir := range []string{"src", "app", "lib"} {
		if fileExists(filepath.Join(root, dir, name+".py")) || fileExists(filepath.Join(root, dir, name)) {
			return true
		}
	}
	return false
}

func pipPackageName(importName string) string {
	if pkg, ok := importNameToPackage[importName]; ok {
		return pkg
	}
	top := strings.Split(importName, ".")[0]
	if pkg, ok := importNameToPackage[top]; ok {
		return pkg
	}
	return top
}

func hasPytestConfig(root string) bool {
	for _, name := range []string{"pytest.ini", "setup.cfg", "tox.ini"} {
		if fileExists(filepath.Join(root, name)) {
			return true
		}
	}
	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		return strings.Contains(string(data), "[tool.pytest")
	}
	return false
}

var _ ports.Healer = (*PythonHealer)(nil)
