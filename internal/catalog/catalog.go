package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTopicNotFound    = errors.New("topic not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAmbiguousTopic   = errors.New("topic title matches more than one topic")
)

// Difficulty of a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Topic groups questions under a title
type Topic struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions,omitempty"`
}

// Question is a practice problem
type Question struct {
	ID                  int64      `json:"id"`
	TopicID             int64      `json:"topic_id"`
	TopicTitle          string     `json:"topic_title,omitempty"`
	Title               string     `json:"title"`
	Difficulty          Difficulty `json:"difficulty"`
	ProblemStatement    string     `json:"problem_statement"`
	HiddenAnswer        string     `json:"hidden_answer"`
	DetailedExplanation string     `json:"detailed_explanation"`
}

// Store reads topics and questions
type Store interface {
	// ListTopics returns all topics ordered by id, with their questions when withQuestions is set
	ListTopics(ctx context.Context, withQuestions bool) ([]Topic, error)

	// GetTopicByTitle matches title case-insensitively and returns the single
	// matching topic with its questions ordered by id
	GetTopicByTitle(ctx context.Context, title string) (*Topic, error)

	// GetQuestion returns a question with its topic title
	GetQuestion(ctx context.Context, id int64) (*Question, error)

	Ping(ctx context.Context) error
	Close() error
}

// normalizeText turns literal "\n" escape sequences stored in text columns into newlines
func normalizeText(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func (q *Question) normalize() {
	q.ProblemStatement = normalizeText(q.ProblemStatement)
	q.HiddenAnswer = normalizeText(q.HiddenAnswer)
	q.DetailedExplanation = normalizeText(q.DetailedExplanation)
}

// StarterCode returns the editor's initial code for a question
func StarterCode(q *Question, language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "python"
	}

	title := ""
	if q != nil {
		title = q.Title
	}

	switch language {
	case "python":
		return fmt.Sprintf("# Write your solution for: %s\n\ndef solve():\n    # Your code here\n    pass", title)
	case "javascript", "typescript":
		return fmt.Sprintf("// Write your solution for: %s\n\nfunction solve() {\n    // Your code here\n}", title)
	case "go":
		return fmt.Sprintf("// Write your solution for: %s\n\npackage main\n\nfunc solve() {\n\t// Your code here\n}\n\nfunc main() {\n\tsolve()\n}", title)
	case "java":
		return fmt.Sprintf("// Write your solution for: %s\n\npublic class Main {\n    static void solve() {\n        // Your code here\n    }\n\n    public static void main(String[] args) {\n        solve();\n    }\n}", title)
	case "c", "cpp":
		return fmt.Sprintf("// Write your solution for: %s\n\nvoid solve() {\n    // Your code here\n}\n\nint main() {\n    solve();\n    return 0;\n}", title)
	case "rust":
		return fmt.Sprintf("// Write your solution for: %s\n\nfn solve() {\n    // Your code here\n}\n\nfn main() {\n    solve();\n}", title)
	}

	return fmt.Sprintf("# Write your solution for: %s\n", title)
}
