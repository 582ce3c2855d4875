package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/codedojo/internal/runner"
)

// runResult matches the daemon's execute response
type runResult struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Version  string `json:"version"`
	Backend  string `json:"backend"`
	Run      struct {
		Output     string `json:"output"`
		Code       int    `json:"code"`
		Signal     string `json:"signal"`
		DurationMS int64  `json:"duration_ms"`
	} `json:"run"`
}

func cmdRun(c *client, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	language := fs.String("language", "", "language (default: from file extension)")
	stdin := fs.String("stdin", "", "text passed to the program on stdin")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return fmt.Errorf("usage: dojo run [--language l] <file>")
	}

	path := positional[0]
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}

	lang := *language
	if lang == "" {
		lang = languageFromPath(path)
	}
	if lang == "" {
		return fmt.Errorf("cannot infer language from %s, use --language", filepath.Base(path))
	}

	var result runResult
	req := runner.ExecuteRequest{Language: lang, Code: string(code), Stdin: *stdin}
	if err := c.post("/v1/execute", req, &result); err != nil {
		return err
	}

	fmt.Print(result.Run.Output)
	if result.Run.Output != "" && !strings.HasSuffix(result.Run.Output, "\n") {
		fmt.Println()
	}
	fmt.Fprintln(os.Stderr, runSummary(result))

	if result.Run.Code != 0 {
		return fmt.Errorf("program exited with code %d", result.Run.Code)
	}
	return nil
}

func runSummary(r runResult) string {
	status := "✓"
	if r.Run.Code != 0 {
		status = fmt.Sprintf("✗ (code %d)", r.Run.Code)
	}
	if r.Run.Signal != "" {
		status += " signal " + r.Run.Signal
	}
	return fmt.Sprintf("--- %s %s via %s in %dms | Exit: %s",
		r.Language, r.Version, r.Backend, r.Run.DurationMS, status)
}

var extLanguages = map[string]runner.Language{
	".py":   runner.LanguagePython,
	".js":   runner.LanguageJavaScript,
	".mjs":  runner.LanguageJavaScript,
	".ts":   runner.LanguageTypeScript,
	".go":   runner.LanguageGo,
	".java": runner.LanguageJava,
	".c":    runner.LanguageC,
	".cc":   runner.LanguageCPP,
	".cpp":  runner.LanguageCPP,
	".rs":   runner.LanguageRust,
}

// languageFromPath returns the language for a file extension, or "" when unknown
func languageFromPath(path string) string {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return ""
	}
	return lang.String()
}
