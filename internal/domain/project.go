package domain

import "strings"

// Language enumerates the ecosystems a healer variant exists for.
type Language string

const (
	LanguageNode    Language = "node"
	LanguagePython  Language = "python"
	LanguageJava    Language = "java"
	LanguageDotNet  Language = "dotnet"
	LanguageGo      Language = "go"
	LanguageUnknown Language = "unknown"
)

// NormalizeLanguage maps stack-detection aliases onto the healer variants.
func NormalizeLanguage(value string) Language {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "node", "nodejs", "javascript", "typescript", "js", "ts":
		return LanguageNode
	case "python", "py":
		return LanguagePython
	case "java", "kotlin", "jvm":
		return LanguageJava
	case "dotnet", ".net", "csharp", "c#":
		return LanguageDotNet
	case "go", "golang":
		return LanguageGo
	default:
		return LanguageUnknown
	}
}

// ProjectDescriptor is the read-only input supplied by stack detection.
type ProjectDescriptor struct {
	Name          string
	Language      string
	Framework     string
	TestFramework string
	Path          string
}

// SyntaxError carries one validator finding.
type SyntaxError struct {
	File    string
	Line    int
	Message string
}

// ValidationReport is the syntax validator output over the generated files.
type ValidationReport struct {
	Valid  bool
	Errors []SyntaxError
}
