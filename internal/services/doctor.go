package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// DoctorService runs environment diagnostics: config, classifier rules,
// toolchains, and the history store.
type DoctorService struct {
	ConfigProvider ports.ConfigProvider
	Classifier     ports.OutputClassifier
	Prober         ports.ToolProber
	Repository     ports.RunRepository
}

// doctorTools are the ecosystem binaries worth reporting on.
var doctorTools = []string{"node", "npm", "python3", "go", "java", "dotnet"}

// Run executes checks and returns a report.
func (s *DoctorService) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))
	checks = append(checks, policyCheck(cfg.AutoFix))

	if s.Classifier != nil {
		probe := s.Classifier.Classify("Error: Cannot find module 'left-pad'")
		if probe.Category == domain.FailureMissingDependency {
			checks = append(checks, ok("Classifier rules", "patterns loaded and matching"))
		} else {
			checks = append(checks, warn("Classifier rules", fmt.Sprintf("probe classified as %s", probe.Category)))
		}
	} else {
		checks = append(checks, warn("Classifier rules", "classifier not initialized"))
	}
	checks = append(checks, rulesFileCheck(cfg.Classifier.RulesFile))

	if s.Prober != nil {
		var available, missing []string
		for _, tool := range doctorTools {
			if s.Prober.Available(tool) {
				available = append(available, tool)
			} else {
				missing = append(missing, tool)
			}
		}
		checks = append(checks, ok("Toolchains", fmt.Sprintf("available: %s", joinOrNone(available))))
		if len(missing) > 0 {
			checks = append(checks, warn("Toolchains", fmt.Sprintf("not on PATH: %s", strings.Join(missing, ", "))))
		}
	}

	if s.Repository != nil {
		if runs, err := s.Repository.Runs(1, ""); err != nil {
			checks = append(checks, warn("History store", err.Error()))
		} else if len(runs) == 0 {
			checks = append(checks, ok("History store", "reachable, no runs recorded yet"))
		} else {
			checks = append(checks, ok("History store", fmt.Sprintf("last run %s", runs[0].Timestamp.Format(domain.TimestampFormat))))
		}
	}

	return domain.HealthReport{Checks: checks}, nil
}

func policyCheck(policy domain.AutoFixPolicy) domain.HealthCheck {
	if !policy.Enabled {
		return warn("Auto-fix policy", "disabled; runs will only diagnose")
	}
	var gates []string
	if policy.CanInstall() {
		gates = append(gates, "install_dependencies")
	}
	if policy.CanEditConfig() {
		gates = append(gates, "edit_config")
	}
	if policy.CanCreateEnvironment() {
		gates = append(gates, "create_environment")
	}
	return ok("Auto-fix policy", fmt.Sprintf("enabled (%s), max %d iterations", joinOrNone(gates), policy.MaxIterations))
}

func rulesFileCheck(path string) domain.HealthCheck {
	if path == "" {
		return ok("Rules file", "using embedded defaults")
	}
	expanded := expandHome(path)
	if _, err := os.Stat(expanded); err != nil {
		return ok("Rules file", fmt.Sprintf("%s missing, using embedded defaults", expanded))
	}
	return ok("Rules file", expanded)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
