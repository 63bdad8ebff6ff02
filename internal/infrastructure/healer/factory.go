package healer

import (
	"fmt"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/ports"
)

// Factory builds the healer variant matching a project's ecosystem, binding
// it to the run's ledger, policy, and prompter.
type Factory struct {
	runner  ports.CommandRunner
	prober  ports.ToolProber
	logger  ports.Logger
	timeout time.Duration
}

// NewFactory creates a healer factory over the shared runner and prober.
func NewFactory(runner ports.CommandRunner, prober ports.ToolProber, logger ports.Logger, timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	return &Factory{runner: runner, prober: prober, logger: logger, timeout: timeout}
}

// ForProject implements ports.HealerFactory.
func (f *Factory) ForProject(project domain.ProjectDescriptor, ledger *domain.Ledger, policy domain.AutoFixPolicy, prompter ports.ConfirmationPrompter) (ports.Healer, error) {
	session := newSession(project, ledger, policy, f.runner, f.prober, prompter, f.logger, f.timeout)

	switch domain.NormalizeLanguage(project.Language) {
	case domain.LanguageNode:
		return &NodeHealer{session: session}, nil
	case domain.LanguagePython:
		return &PythonHealer{session: session}, nil
	case domain.LanguageJava:
		return &JavaHealer{session: session}, nil
	case domain.LanguageDotNet:
		return &DotNetHealer{session: session}, nil
	case domain.LanguageGo:
		return &GoHealer{session: session}, nil
	default:
		return nil, fmt.Errorf("healer: unsupported language %q", project.Language)
	}
}

var _ ports.HealerFactory = (*Factory)(nil)
