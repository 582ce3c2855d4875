package tutor

import (
	"fmt"
	"strings"
)

const defaultLanguage = "python"

var languageNames = map[string]string{
	"python":     "Python",
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"go":         "Go",
	"java":       "Java",
	"c":          "C",
	"cpp":        "C++",
	"rust":       "Rust",
}

// BuildPrompt renders the fixed tutoring instruction for req.
// Title, problem, code and query are embedded verbatim.
func BuildPrompt(req Request) string {
	var c Context
	if req.Context != nil {
		c = *req.Context
	}

	lang := strings.ToLower(strings.TrimSpace(c.Language))
	if lang == "" {
		lang = defaultLanguage
	}
	name, ok := languageNames[lang]
	if !ok {
		name = c.Language
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s tutor for a college student.\n", name)
	fmt.Fprintf(&sb, "Problem: \"%s\".\n", c.Title)
	fmt.Fprintf(&sb, "Description: \"%s\".\n", c.Problem)
	sb.WriteString("Student Code:\n")
	fmt.Fprintf(&sb, "```%s\n%s\n```\n", lang, c.UserCode)
	fmt.Fprintf(&sb, "Student Question: \"%s\"\n", req.Query)
	sb.WriteString(`Rules:
1. Be concise (2-3 sentences max).
2. DO NOT give the full solution code unless strictly asked.
3. Focus on logic and syntax hints.
`)
	return sb.String()
}
