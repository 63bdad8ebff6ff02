package domain

// Config mirrors ~/.mend/config.yaml.
type Config struct {
	ConfigFormatVersion string             `yaml:"config_format_version"`
	AutoFix             AutoFixPolicy      `yaml:"auto_fix"`
	Execution           ExecutionSettings  `yaml:"execution"`
	Classifier          ClassifierSettings `yaml:"classifier"`
	History             HistorySettings    `yaml:"history"`
}

// AutoFixPolicy gates what a healer may change. Each capability is evaluated
// as Enabled AND the specific flag, checked before every mutating action.
type AutoFixPolicy struct {
	Enabled             bool `yaml:"enabled"`
	InstallDependencies bool `yaml:"install_dependencies"`
	EditConfig          bool `yaml:"edit_config"`
	CreateEnvironment   bool `yaml:"create_environment"`
	MaxIterations       int  `yaml:"max_iterations"`
}

// CanInstall reports whether dependency installation is authorized.
func (p AutoFixPolicy) CanInstall() bool {
	return p.Enabled && p.InstallDependencies
}

// CanEditConfig reports whether config-file edits are authorized.
func (p AutoFixPolicy) CanEditConfig() bool {
	return p.Enabled && p.EditConfig
}

// CanCreateEnvironment reports whether creating isolated environments
// (e.g. a Python venv) is authorized.
func (p AutoFixPolicy) CanCreateEnvironment() bool {
	return p.Enabled && p.CreateEnvironment
}

// ExecutionSettings controls how remediation and test commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	TimeoutSeconds int    `yaml:"timeout"`
}

// ClassifierSettings points at the failure-pattern rules file.
type ClassifierSettings struct {
	RulesFile string `yaml:"rules_file"`
}

// HistorySettings defines run-history retention.
type HistorySettings struct {
	RetentionDays int `yaml:"retention_days"`
}
