package daemon

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/runner"
	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

var errNotImplemented = errors.New("mock: not implemented")

// mockStore implements catalog.Store for testing
type mockStore struct {
	listTopicsFn  func(ctx context.Context, withQuestions bool) ([]catalog.Topic, error)
	getTopicFn    func(ctx context.Context, title string) (*catalog.Topic, error)
	getQuestionFn func(ctx context.Context, id int64) (*catalog.Question, error)
	pingErr       error
}

func (m *mockStore) ListTopics(ctx context.Context, withQuestions bool) ([]catalog.Topic, error) {
	if m.listTopicsFn != nil {
		return m.listTopicsFn(ctx, withQuestions)
	}
	return nil, errNotImplemented
}

func (m *mockStore) GetTopicByTitle(ctx context.Context, title string) (*catalog.Topic, error) {
	if m.getTopicFn != nil {
		return m.getTopicFn(ctx, title)
	}
	return nil, errNotImplemented
}

func (m *mockStore) GetQuestion(ctx context.Context, id int64) (*catalog.Question, error) {
	if m.getQuestionFn != nil {
		return m.getQuestionFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockStore) Close() error                   { return nil }

// mockExecutions implements Executions for testing
type mockExecutions struct {
	executeFn func(ctx context.Context, req runner.ExecuteRequest) (*runner.Execution, error)
	cancelFn  func(id uuid.UUID) error
	running   int
}

func (m *mockExecutions) Execute(ctx context.Context, req runner.ExecuteRequest) (*runner.Execution, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockExecutions) Cancel(id uuid.UUID) error {
	if m.cancelFn != nil {
		return m.cancelFn(id)
	}
	return errNotImplemented
}

func (m *mockExecutions) Running() int    { return m.running }
func (m *mockExecutions) Backend() string { return "mock" }

// mockAsker implements tutor.Asker for testing
type mockAsker struct {
	askFn func(ctx context.Context, req tutor.Request) (*tutor.Response, error)
}

func (m *mockAsker) Ask(ctx context.Context, req tutor.Request) (*tutor.Response, error) {
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return nil, errNotImplemented
}
