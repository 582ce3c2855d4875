package runner

import (
	"fmt"
	"sort"
	"strings"
)

// Language represents a supported programming language
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageRust       Language = "rust"
)

// DefaultLanguage is used when a request names no language
const DefaultLanguage = LanguagePython

// LanguageConfig contains language-specific configuration
type LanguageConfig struct {
	// Version is the Piston runtime version
	Version     string
	DockerImage string
	FileName    string
	// RunCommand is run by sh inside the container, from the file's directory
	RunCommand string
}

var languageConfigs = map[Language]LanguageConfig{
	LanguagePython: {
		Version:     "3.10.0",
		DockerImage: "python:3.10-alpine",
		FileName:    "main.py",
		RunCommand:  "python3 main.py",
	},
	LanguageJavaScript: {
		Version:     "18.15.0",
		DockerImage: "node:18-alpine",
		FileName:    "main.js",
		RunCommand:  "node main.js",
	},
	LanguageTypeScript: {
		Version:     "5.0.3",
		DockerImage: "node:22-alpine",
		FileName:    "main.ts",
		RunCommand:  "node --experimental-strip-types main.ts",
	},
	LanguageGo: {
		Version:     "1.16.2",
		DockerImage: "golang:1.23-alpine",
		FileName:    "main.go",
		RunCommand:  "go run main.go",
	},
	LanguageJava: {
		Version:     "15.0.2",
		DockerImage: "eclipse-temurin:21-alpine",
		FileName:    "Main.java",
		RunCommand:  "java Main.java",
	},
	LanguageC: {
		Version:     "10.2.0",
		DockerImage: "gcc:13",
		FileName:    "main.c",
		RunCommand:  "gcc -Wall -o /tmp/prog main.c && /tmp/prog",
	},
	LanguageCPP: {
		Version:     "10.2.0",
		DockerImage: "gcc:13",
		FileName:    "main.cpp",
		RunCommand:  "g++ -std=c++17 -Wall -o /tmp/prog main.cpp && /tmp/prog",
	},
	LanguageRust: {
		Version:     "1.68.2",
		DockerImage: "rust:1.75-alpine",
		FileName:    "main.rs",
		RunCommand:  "rustc -o /tmp/prog main.rs && /tmp/prog",
	},
}

// IsValid checks if the language is supported
func (l Language) IsValid() bool {
	_, ok := languageConfigs[l]
	return ok
}

func (l Language) String() string {
	return string(l)
}

// Config returns the language configuration
func (l Language) Config() (LanguageConfig, bool) {
	cfg, ok := languageConfigs[l]
	return cfg, ok
}

// ParseLanguage converts a string to a Language. An empty string selects DefaultLanguage.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLanguage, nil
	}

	switch s {
	case "py", "python3":
		s = string(LanguagePython)
	case "js", "node":
		s = string(LanguageJavaScript)
	case "ts":
		s = string(LanguageTypeScript)
	case "golang":
		s = string(LanguageGo)
	case "c++":
		s = string(LanguageCPP)
	case "rs":
		s = string(LanguageRust)
	}

	lang := Language(s)
	if !lang.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, s)
	}
	return lang, nil
}

// SupportedLanguages returns all languages in name order
func SupportedLanguages() []Language {
	langs := make([]Language, 0, len(languageConfigs))
	for lang := range languageConfigs {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
