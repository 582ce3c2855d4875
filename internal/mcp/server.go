package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/runner"
	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

// Runner executes code for the dojo_run tool
type Runner interface {
	Execute(ctx context.Context, req runner.ExecuteRequest) (*runner.Execution, error)
}

var errCatalogDisabled = errors.New("catalog is disabled")

// Server wraps the MCP server with dojo functionality
type Server struct {
	mcpServer *server.Server
	tutor     tutor.Asker
	catalog   catalog.Store
	runner    Runner
}

// Config contains configuration for the MCP server
type Config struct {
	Tutor   tutor.Asker
	Catalog catalog.Store
	Runner  Runner
	Version string
}

// NewServer creates a new MCP server for the dojo
func NewServer(cfg Config) *Server {
	s := &Server{
		tutor:   cfg.Tutor,
		catalog: cfg.Catalog,
		runner:  cfg.Runner,
	}

	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "codedojo",
		Version: version,
	}, server.WithInstructions(`
Code Dojo is a practice environment for programming exercises with an AI tutor.
The tutor gives hints, never full solutions.

Available tools:
- dojo_topics: List practice topics
- dojo_topic: Show a topic and its questions
- dojo_question: Show a question with starter code
- dojo_ask: Ask the tutor for a hint about your code
- dojo_run: Run code and see its output
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("dojo_topics").
		Description("List practice topics, optionally with their questions.").
		Handler(s.handleTopics)

	s.mcpServer.Tool("dojo_topic").
		Description("Show a topic and its questions by title.").
		Handler(s.handleTopic)

	s.mcpServer.Tool("dojo_question").
		Description("Show a question with starter code. The answer is only included when reveal is set.").
		Handler(s.handleQuestion)

	s.mcpServer.Tool("dojo_ask").
		Description("Ask the tutor for a hint about a problem and your current code.").
		Handler(s.handleAsk)

	s.mcpServer.Tool("dojo_run").
		Description("Run code in a sandbox and return its output and exit code.").
		Handler(s.handleRun)
}

// Input/Output types for tools

type TopicsInput struct {
	IncludeQuestions bool `json:"include_questions,omitempty" jsonschema:"description=Include each topic's questions"`
}

type QuestionSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

type TopicOutput struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Questions []QuestionSummary `json:"questions,omitempty"`
}

type TopicsOutput struct {
	Topics []TopicOutput `json:"topics"`
}

type TopicInput struct {
	Title string `json:"title" jsonschema:"description=Topic title (case-insensitive)"`
}

type QuestionInput struct {
	ID       int64  `json:"id" jsonschema:"description=Question ID"`
	Language string `json:"language,omitempty" jsonschema:"description=Language for the starter code (default: python)"`
	Reveal   bool   `json:"reveal,omitempty" jsonschema:"description=Include the answer and explanation"`
}

type QuestionOutput struct {
	ID                  int64  `json:"id"`
	Topic               string `json:"topic"`
	Title               string `json:"title"`
	Difficulty          string `json:"difficulty"`
	ProblemStatement    string `json:"problem_statement"`
	StarterCode         string `json:"starter_code"`
	HiddenAnswer        string `json:"hidden_answer,omitempty"`
	DetailedExplanation string `json:"detailed_explanation,omitempty"`
}

type AskInput struct {
	Query    string `json:"query" jsonschema:"description=Your question for the tutor"`
	Title    string `json:"title" jsonschema:"description=Problem title"`
	Problem  string `json:"problem" jsonschema:"description=Problem statement"`
	UserCode string `json:"user_code" jsonschema:"description=Your current code"`
	Language string `json:"language,omitempty" jsonschema:"description=Language of your code (default: python)"`
}

type AskOutput struct {
	Answer string `json:"answer"`
}

type RunInput struct {
	Language string `json:"language,omitempty" jsonschema:"description=Language (default: python)"`
	Version  string `json:"version,omitempty" jsonschema:"description=Language version (default: per language)"`
	Code     string `json:"code" jsonschema:"description=Source code to run"`
	Stdin    string `json:"stdin,omitempty" jsonschema:"description=Standard input"`
}

type RunOutput struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
	Summary  string `json:"summary"`
}

// Tool handlers

func (s *Server) handleTopics(ctx context.Context, input TopicsInput) (TopicsOutput, error) {
	if s.catalog == nil {
		return TopicsOutput{}, errCatalogDisabled
	}

	topics, err := s.catalog.ListTopics(ctx, input.IncludeQuestions)
	if err != nil {
		return TopicsOutput{}, fmt.Errorf("failed to list topics: %w", err)
	}

	out := TopicsOutput{Topics: make([]TopicOutput, 0, len(topics))}
	for _, t := range topics {
		out.Topics = append(out.Topics, topicOutput(t))
	}
	return out, nil
}

func (s *Server) handleTopic(ctx context.Context, input TopicInput) (TopicOutput, error) {
	if s.catalog == nil {
		return TopicOutput{}, errCatalogDisabled
	}
	if strings.TrimSpace(input.Title) == "" {
		return TopicOutput{}, fmt.Errorf("title is required")
	}

	topic, err := s.catalog.GetTopicByTitle(ctx, input.Title)
	if err != nil {
		return TopicOutput{}, fmt.Errorf("failed to get topic %q: %w", input.Title, err)
	}
	return topicOutput(*topic), nil
}

func (s *Server) handleQuestion(ctx context.Context, input QuestionInput) (QuestionOutput, error) {
	if s.catalog == nil {
		return QuestionOutput{}, errCatalogDisabled
	}

	lang, err := runner.ParseLanguage(input.Language)
	if err != nil {
		return QuestionOutput{}, err
	}

	q, err := s.catalog.GetQuestion(ctx, input.ID)
	if err != nil {
		return QuestionOutput{}, fmt.Errorf("failed to get question %d: %w", input.ID, err)
	}

	out := QuestionOutput{
		ID:               q.ID,
		Topic:            q.TopicTitle,
		Title:            q.Title,
		Difficulty:       string(q.Difficulty),
		ProblemStatement: q.ProblemStatement,
		StarterCode:      catalog.StarterCode(q, lang.String()),
	}
	if input.Reveal {
		out.HiddenAnswer = q.HiddenAnswer
		out.DetailedExplanation = q.DetailedExplanation
	}
	return out, nil
}

func (s *Server) handleAsk(ctx context.Context, input AskInput) (AskOutput, error) {
	if s.tutor == nil {
		return AskOutput{}, fmt.Errorf("tutor is not configured")
	}

	resp, err := s.tutor.Ask(ctx, tutor.Request{
		Query: input.Query,
		Context: &tutor.Context{
			Title:    input.Title,
			Problem:  input.Problem,
			UserCode: input.UserCode,
			Language: input.Language,
		},
	})
	if err != nil {
		return AskOutput{}, fmt.Errorf("tutor request failed: %w", err)
	}

	return AskOutput{Answer: resp.Answer}, nil
}

func (s *Server) handleRun(ctx context.Context, input RunInput) (RunOutput, error) {
	if s.runner == nil {
		return RunOutput{}, fmt.Errorf("code execution is not configured")
	}

	exec, err := s.runner.Execute(ctx, runner.ExecuteRequest{
		Language: input.Language,
		Version:  input.Version,
		Code:     input.Code,
		Stdin:    input.Stdin,
	})
	if err != nil {
		return RunOutput{}, fmt.Errorf("run failed: %w", err)
	}

	out := RunOutput{
		Language: exec.Job.Language.String(),
		Version:  exec.Job.Version,
	}
	if res := exec.Result; res != nil {
		out.Output = res.Output
		out.ExitCode = res.Code
	}

	if out.ExitCode == 0 {
		out.Summary = "Exit: ✓"
	} else {
		out.Summary = fmt.Sprintf("Exit: ✗ (code %d)", out.ExitCode)
	}

	return out, nil
}

func topicOutput(t catalog.Topic) TopicOutput {
	out := TopicOutput{ID: t.ID, Title: t.Title}
	for _, q := range t.Questions {
		out.Questions = append(out.Questions, QuestionSummary{
			ID:         q.ID,
			Title:      q.Title,
			Difficulty: string(q.Difficulty),
		})
	}
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
