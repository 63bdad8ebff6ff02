package healer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// NodeHealer handles npm/yarn/pnpm projects running jest or vitest suites.
type NodeHealer struct {
	session *Session
}

// Name implements ports.Healer.
func (h *NodeHealer) Name() string { return "node" }

// nodeBuiltins are module specifiers resolved by the runtime itself. They
// are never installable and must not produce install attempts.
var nodeBuiltins = map[string]struct{}{
	"assert": {}, "async_hooks": {}, "buffer": {}, "child_process": {},
	"cluster": {}, "console": {}, "constants": {}, "crypto": {}, "dgram": {},
	"dns": {}, "domain": {}, "events": {}, "fs": {}, "http": {}, "http2": {},
	"https": {}, "inspector": {}, "module": {}, "net": {}, "os": {},
	"path": {}, "perf_hooks": {}, "process": {}, "punycode": {},
	"querystring": {}, "readline": {}, "repl": {}, "stream": {},
	"string_decoder": {}, "timers": {}, "tls": {}, "trace_events": {},
	"tty": {}, "url": {}, "util": {}, "v8": {}, "vm": {}, "worker_threads": {},
	"zlib": {},
}

var (
	requireRe    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	importFromRe = regexp.MustCompile(`(?m)(?:^|\s)(?:import|export)\s+[^'";]*?from\s+['"]([^'"]+)['"]`)
	bareImportRe = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
)

type packageManifest struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
	Jest            json.RawMessage   `json:"jest"`
	Type            string            `json:"type"`
}

// Analyze inspects the project without mutating it and records every problem
// found on the session ledger.
func (h *NodeHealer) Analyze(ctx context.Context, project domain.ProjectDescriptor, generatedFiles []string) error {
	s := h.session
	root := project.Path
	s.setGeneratedFiles(generatedFiles)

	if !s.Prober.Available("node") {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingToolchain,
			Message:  "node runtime not found on PATH",
		}, domain.RemediationStep{
			Title:       "Install Node.js",
			Description: "Install a Node.js runtime (e.g. via nvm or your package manager) and re-run.",
		})
		return nil
	}

	manifest, manifestOK := h.readManifest(root)
	if !manifestOK {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingManifest,
			Message:  "package.json not found or unreadable",
		}, domain.RemediationStep{
			Title:       "Create package.json",
			Description: "Initialize an npm manifest in the project root.",
			Command:     "npm init -y",
		})
	}

	declared := map[string]struct{}{}
	for name := range manifest.Dependencies {
		declared[name] = struct{}{}
	}
	for name := range manifest.DevDependencies {
		declared[name] = struct{}{}
	}

	if manifestOK && !fileExists(filepath.Join(root, "node_modules")) {
		s.report(domain.Issue{
			Stage:    domain.StageEnvSetup,
			Severity: domain.SeverityError,
			Code:     domain.IssueMissingEnvironment,
			Message:  "node_modules is missing, dependencies are not installed",
		}, domain.RemediationStep{
			Title:       "Install dependencies",
			Description: "Install the declared dependencies with the project's package manager.",
			Command:     h.packageManager(root) + " install",
		})
	}

	seen := map[string]struct{}{}
	for _, file := range generatedFiles {
		for _, spec := range scanNodeImports(filepath.Join(root, file)) {
			if isRelativeSpecifier(spec) {
				continue
			}
			pkg := packageFromSpecifier(spec)
			if _, builtin := nodeBuiltins[pkg]; builtin {
				continue
			}
			if _, ok := declared[pkg]; ok {
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
				Title:       "Add " + pkg,
				Description: "Declare and install the package used by the generated tests.",
				Command:     h.installCommand(root, pkg),
			})
		}
	}

	if manifestOK && needsJestConfig(project, manifest) && !hasJestConfig(root, manifest) {
		s.report(domain.Issue{
			Stage:    domain.StageAnalysis,
			Severity: domain.SeverityWarning,
			Code:     domain.IssueMissingRunnerConfig,
			Message:  "no jest configuration found",
		}, domain.RemediationStep{
			Title:       "Create jest.config.js",
			Description: "Add a minimal jest configuration so the runner can discover tests.",
		})
	}

	return nil
}

// Heal executes authorized fixes for the unresolved issues on the ledger.
// Issues whose fix category is disabled by policy are left unresolved.
func (h *NodeHealer) Heal(ctx context.Context, projectRoot string) error {
	s := h.session

	for _, issue := range s.pending() {
		switch issue.Code {
		case domain.IssueMissingDependency:
			if !s.Policy.CanInstall() || issue.Details == "" {
				continue
			}
			if _, builtin := nodeBuiltins[packageFromSpecifier(issue.Details)]; builtin {
				// runtime modules are never installable
				s.markAttempted(issue)
				continue
			}
			cmd := h.installCommand(projectRoot, issue.Details)
			if err := s.fix(ctx, issue, projectRoot, cmd, "install missing package "+issue.Details); err != nil {
				return err
			}

		case domain.IssueMissingEnvironment:
			if !s.Policy.CanInstall() {
				continue
			}
			cmd := h.packageManager(projectRoot) + " install"
			if err := s.fix(ctx, issue, projectRoot, cmd, "install declared dependencies"); err != nil {
				return err
			}

		case domain.IssueMissingRunnerConfig, domain.IssueNoTestsDiscovered:
			if !s.Policy.CanEditConfig() {
				continue
			}
			path := filepath.Join(projectRoot, "jest.config.js")
			if fileExists(path) {
				s.markAttempted(issue)
				continue
			}
			s.fixWithWrite(issue, path, []byte(defaultJestConfig), "create minimal jest configuration")

		case domain.IssueMissingPreset:
			if !s.Policy.CanInstall() {
				continue
			}
			preset := issue.Details
			if preset == "" {
				preset = "ts-jest"
			}
			cmd := h.installDevCommand(projectRoot, preset)
			if err := s.fix(ctx, issue, projectRoot, cmd, "install test runner preset "+preset); err != nil {
				return err
			}

		case domain.IssueMissingInternalModule:
			if !s.Policy.CanEditConfig() {
				continue
			}
			h.normalizeRelativeImport(issue, projectRoot)
		}
	}

	return nil
}

const defaultJestConfig = `module.exports = {
  testEnvironment: 'node',
  testMatch: ['**/*.test.js', '**/*.test.ts', '**/*.spec.js', '**/*.spec.ts'],
};
`

// normalizeRelativeImport rewrites a broken relative specifier in the
// generated files when a sibling file with a known extension exists. When no
// candidate resolves the issue stays unresolved.
func (h *NodeHealer) normalizeRelativeImport(issue *domain.Issue, root string) {
	s := h.session
	broken := issue.Details
	if broken == "" {
		s.markAttempted(issue)
		return
	}

	fixed := ""
	for _, suffix := range []string{".js", ".ts", ".jsx", ".tsx", "/index.js", "/index.ts"} {
		candidate := broken + suffix
		if fileExists(filepath.Join(root, filepath.FromSlash(candidate))) {
			fixed = candidate
			break
		}
	}
	if fixed == "" {
		s.markAttempted(issue)
		return
	}

	rewrote := false
	for _, file := range h.session.generatedFiles() {
		path := filepath.Join(root, file)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		updated := strings.ReplaceAll(string(data), "'"+broken+"'", "'"+fixed+"'")
		updated = strings.ReplaceAll(updated, `"`+broken+`"`, `"`+fixed+`"`)
		if updated == string(data) {
			continue
		}
		s.fixWithWrite(issue, path, []byte(updated), fmt.Sprintf("rewrite import %q to %q", broken, fixed))
		rewrote = true
	}
	if !rewrote {
		s.markAttempted(issue)
	}
}

func (h *NodeHealer) readManifest(root string) (packageManifest, bool) {
	var manifest packageManifest
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return manifest, false
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, false
	}
	return manifest, true
}

// packageManager picks the manager by lock file, defaulting to npm.
func (h *NodeHealer) packageManager(root string) string {
	switch {
	case fileExists(filepath.Join(root, "yarn.lock")):
		return "yarn"
	case fileExists(filepath.Join(root, "pnpm-lock.yaml")):
		return "pnpm"
	default:
		return "npm"
	}
}

func (h *NodeHealer) installCommand(root, pkg string) string {
	switch h.packageManager(root) {
	case "yarn":
		return "yarn add " + pkg
	case "pnpm":
		return "pnpm add " + pkg
	default:
		return "npm install " + pkg
	}
}

func (h *NodeHealer) installDevCommand(root, pkg string) string {
	switch h.packageManager(root) {
	case "yarn":
		return "yarn add --dev " + pkg
	case "pnpm":
		return "pnpm add -D " + pkg
	default:
		return "npm install --save-dev " + pkg
	}
}

func needsJestConfig(project domain.ProjectDescriptor, manifest packageManifest) bool {
	if strings.EqualFold(project.TestFramework, "jest") {
		return true
	}
	_, hasJestDep := manifest.DevDependencies["jest"]
	return hasJestDep
}

func hasJestConfig(root string, manifest packageManifest) bool {
	for _, name := range []string{"jest.config.js", "jest.config.ts", "jest.config.mjs", "jest.config.cjs", "jest.config.json"} {
		if fileExists(filepath.Join(root, name)) {
			return true
		}
	}
	return len(manifest.Jest) > 0
}

// scanNodeImports extracts the module specifiers a source file references.
func scanNodeImports(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	src := string(data)

	var specs []string
	for _, re := range []*regexp.Regexp{requireRe, importFromRe, bareImportRe} {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			specs = append(specs, m[1])
		}
	}
	return specs
}

func isRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// packageFromSpecifier reduces a deep import like "lodash/fp" to the package
// name, keeping the two-part form for scoped packages.
func packageFromSpecifier(spec string) string {
	spec = strings.TrimPrefix(spec, "node:")
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

var _ ports.Healer = (*NodeHealer)(nil)
