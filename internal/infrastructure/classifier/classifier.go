// Package classifier maps raw test-runner output onto the closed failure
// taxonomy using an ordered table of compiled patterns.
package classifier

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mendtool/mend/assets"
	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/pkg/filesystem"
	"github.com/mendtool/mend/internal/ports"
)

// Classifier implements the OutputClassifier port.
type Classifier struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	re       *regexp.Regexp
	category domain.FailureCategory
}

// FailurePattern describes one regex-based classification rule.
type FailurePattern struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		FailurePatterns []FailurePattern `yaml:"failure_patterns"`
	} `yaml:"rules"`
}

// New loads classification rules from disk (or embedded defaults when the
// file is missing). Pattern order is preserved: first match wins.
func New(path string) (*Classifier, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	var compiled []compiledPattern
	for _, pattern := range rules.Rules.FailurePatterns {
		re, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{
			re:       re,
			category: domain.FailureCategory(pattern.Category),
		})
	}

	return &Classifier{patterns: compiled}, nil
}

// Classify implements ports.OutputClassifier. Stateless and deterministic.
func (c *Classifier) Classify(output string) domain.Classification {
	for _, pattern := range c.patterns {
		if pattern.re.MatchString(output) {
			return domain.Classification{
				Category: pattern.category,
				Target:   extractTarget(pattern.category, output),
			}
		}
	}
	return domain.Classification{Category: domain.FailureUnknown}
}

var (
	econnRefusedRe = regexp.MustCompile(`ECONNREFUSED\s+([\w.\-]+:\d+)`)
	hostPortRe     = regexp.MustCompile(`\b((?:\d{1,3}\.){3}\d{1,3}:\d+|localhost:\d+)\b`)
	urlRe          = regexp.MustCompile(`https?://[^\s'"]+`)
	nodeModuleRe   = regexp.MustCompile(`Cannot find module '([^']+)'|Could not locate module ([^\s]+)`)
	pyModuleRe     = regexp.MustCompile(`No module named '?([A-Za-z0-9_.]+)'?`)
	goModuleRe     = regexp.MustCompile(`no required module provides package ([^\s;]+)`)
)

// extractTarget pulls the host:port/URL or module specifier out of the
// output on a best-effort basis.
func extractTarget(category domain.FailureCategory, output string) string {
	switch category {
	case domain.FailureServiceUnreachable:
		if m := econnRefusedRe.FindStringSubmatch(output); m != nil {
			return m[1]
		}
		if m := urlRe.FindString(output); m != "" {
			return m
		}
		if m := hostPortRe.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	case domain.FailureMissingDependency, domain.FailureMissingInternalModule:
		if m := nodeModuleRe.FindStringSubmatch(output); m != nil {
			if m[1] != "" {
				return m[1]
			}
			return m[2]
		}
		if m := pyModuleRe.FindStringSubmatch(output); m != nil {
			return m[1]
		}
		if m := goModuleRe.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}
	return ""
}

func loadRules(path string) (RulesFile, error) {
	var rules RulesFile
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		// fall back to embedded defaults
		data = assets.DefaultClassifierYAML
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, err
	}
	if len(rules.Rules.FailurePatterns) == 0 {
		if err := yaml.Unmarshal(assets.DefaultClassifierYAML, &rules); err != nil {
			return RulesFile{}, err
		}
	}
	return rules, nil
}

func expandPath(path string) string {
	if path == "" {
		return filepath.Join(filesystem.UserHome(), ".mend", "classifier.yaml")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHome(), path[2:])
	}
	return path
}

var _ ports.OutputClassifier = (*Classifier)(nil)
