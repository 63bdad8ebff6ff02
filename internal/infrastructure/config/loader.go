// Package config loads the mend configuration file.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mendtool/mend/assets"
	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/pkg/filesystem"
	"github.com/mendtool/mend/internal/ports"
)

// FileLoader loads YAML configuration from ~/.mend/config.yaml (overridable
// via MEND_CONFIG). A missing file is seeded with the embedded defaults.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the default
// resolution order.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
				return domain.Config{}, err
			}
			data = assets.DefaultConfigYAML
		} else {
			return domain.Config{}, err
		}
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

// Save writes the configuration back to the resolved path.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.resolvePath()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, domain.SecureFilePermissions)
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv("MEND_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(filesystem.UserHome(), ".mend", "config.yaml")
}

// hydrateDefaults fills zero values so a sparse user config still yields a
// usable policy.
func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.AutoFix.MaxIterations <= 0 {
		cfg.AutoFix.MaxIterations = domain.DefaultMaxIterations
	}
	if cfg.Execution.Shell == "" {
		cfg.Execution.Shell = "auto"
	}
	if cfg.Execution.TimeoutSeconds <= 0 {
		cfg.Execution.TimeoutSeconds = int(domain.DefaultCommandTimeout.Seconds())
	}
	if cfg.Classifier.RulesFile == "" {
		cfg.Classifier.RulesFile = filepath.Join(filesystem.UserHome(), ".mend", "classifier.yaml")
	}
	if cfg.History.RetentionDays <= 0 {
		cfg.History.RetentionDays = domain.DefaultHistoryRetainDays
	}
	return cfg
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHome(), path[2:])
	}
	return path
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
