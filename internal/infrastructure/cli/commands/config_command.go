package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mendtool/mend/internal/app"
	"github.com/mendtool/mend/internal/domain"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the configuration",
	}
	cmd.AddCommand(newConfigShowCommand(container))
	cmd.AddCommand(newConfigSetCommand(container))
	return cmd
}

func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := container.ConfigLoader.Load(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and persist it.

Supported keys:
  auto_fix.enabled               true|false
  auto_fix.install_dependencies  true|false
  auto_fix.edit_config           true|false
  auto_fix.create_environment    true|false
  auto_fix.max_iterations        integer
  execution.shell                auto|bash|sh|...
  execution.timeout              seconds
  classifier.rules_file          path
  history.retention_days         integer`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := container.ConfigLoader.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := applyConfigValue(&cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := container.ConfigLoader.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func applyConfigValue(cfg *domain.Config, key, value string) error {
	switch key {
	case "auto_fix.enabled":
		return setBool(&cfg.AutoFix.Enabled, value)
	case "auto_fix.install_dependencies":
		return setBool(&cfg.AutoFix.InstallDependencies, value)
	case "auto_fix.edit_config":
		return setBool(&cfg.AutoFix.EditConfig, value)
	case "auto_fix.create_environment":
		return setBool(&cfg.AutoFix.CreateEnvironment, value)
	case "auto_fix.max_iterations":
		return setInt(&cfg.AutoFix.MaxIterations, value)
	case "execution.shell":
		cfg.Execution.Shell = value
		return nil
	case "execution.timeout":
		return setInt(&cfg.Execution.TimeoutSeconds, value)
	case "classifier.rules_file":
		cfg.Classifier.RulesFile = value
		return nil
	case "history.retention_days":
		return setInt(&cfg.History.RetentionDays, value)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
}

func setBool(dst *bool, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", value)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", value)
	}
	if parsed <= 0 {
		return fmt.Errorf("value must be positive, got %d", parsed)
	}
	*dst = parsed
	return nil
}
