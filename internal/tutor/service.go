package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/codedojo/internal/llm"
)

// Generator produces content for a prompt using one credential
type Generator interface {
	GenerateContent(ctx context.Context, apiKey, prompt string) (*llm.GenerateContentResponse, error)
}

// Asker answers tutoring requests
type Asker interface {
	Ask(ctx context.Context, req Request) (*Response, error)
}

// Service forwards tutoring requests to the provider
type Service struct {
	pool      *Pool
	generator Generator
}

// NewService creates a new tutor service
func NewService(pool *Pool, generator Generator) *Service {
	return &Service{
		pool:      pool,
		generator: generator,
	}
}

// Ensure Service implements Asker
var _ Asker = (*Service)(nil)

// Ask makes exactly one provider call. Provider-reported errors and empty
// answers come back as friendly messages; only configuration, transport and
// decode failures are returned as errors.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	if req.Context == nil {
		return nil, ErrMissingContext
	}

	key, err := s.pool.Pick()
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req)

	resp, err := s.generator.GenerateContent(ctx, key, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if resp.Error != nil {
		slog.Error("provider returned an error",
			"code", resp.Error.Code,
			"status", resp.Error.Status,
			"message", resp.Error.Message,
		)
		return &Response{Answer: OverloadedMessage}, nil
	}

	text, ok := resp.FirstText()
	if !ok {
		return &Response{Answer: NoHintMessage}, nil
	}

	return &Response{Answer: text}, nil
}
