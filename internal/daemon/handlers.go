package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/runner"
)

const maxExecuteBody = 1 << 20

// Catalog handlers

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	withQuestions := r.URL.Query().Get("include") == "questions"

	topics, err := s.catalog.ListTopics(r.Context(), withQuestions)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to list topics", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"topics": topics,
	})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	title := strings.TrimSpace(r.PathValue("title"))
	if title == "" {
		s.jsonError(w, http.StatusBadRequest, "topic title is required", nil)
		return
	}

	topic, err := s.catalog.GetTopicByTitle(r.Context(), title)
	if err != nil {
		s.catalogError(w, "failed to get topic", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, topic)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	q, ok := s.loadQuestion(w, r)
	if !ok {
		return
	}

	s.jsonResponse(w, http.StatusOK, q)
}

func (s *Server) handleStarterCode(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	lang, err := runner.ParseLanguage(r.URL.Query().Get("language"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "unsupported language", err)
		return
	}

	q, ok := s.loadQuestion(w, r)
	if !ok {
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"question_id": q.ID,
		"language":    lang.String(),
		"code":        catalog.StarterCode(q, lang.String()),
	})
}

func (s *Server) loadQuestion(w http.ResponseWriter, r *http.Request) (*catalog.Question, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.jsonError(w, http.StatusBadRequest, "invalid question id", nil)
		return nil, false
	}

	q, err := s.catalog.GetQuestion(r.Context(), id)
	if err != nil {
		s.catalogError(w, "failed to get question", err)
		return nil, false
	}
	return q, true
}

func (s *Server) requireCatalog(w http.ResponseWriter) bool {
	if s.catalog == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "catalog is disabled", nil)
		return false
	}
	return true
}

func (s *Server) catalogError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, catalog.ErrTopicNotFound):
		s.jsonError(w, http.StatusNotFound, "topic not found", nil)
	case errors.Is(err, catalog.ErrQuestionNotFound):
		s.jsonError(w, http.StatusNotFound, "question not found", nil)
	case errors.Is(err, catalog.ErrAmbiguousTopic):
		s.jsonError(w, http.StatusConflict, "topic title matches more than one topic", err)
	default:
		s.jsonError(w, http.StatusInternalServerError, message, err)
	}
}

// Execution handlers

// runResponse mirrors the playground's { language, version, run: { output, code } } shape
type runResponse struct {
	ID       string    `json:"id"`
	Language string    `json:"language"`
	Version  string    `json:"version"`
	Backend  string    `json:"backend"`
	Run      runOutput `json:"run"`
}

type runOutput struct {
	Output     string `json:"output"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Code       int    `json:"code"`
	Signal     string `json:"signal,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func newRunResponse(exec *runner.Execution) runResponse {
	resp := runResponse{
		ID:       exec.ID.String(),
		Language: exec.Job.Language.String(),
		Version:  exec.Job.Version,
		Backend:  exec.Backend,
	}
	if res := exec.Result; res != nil {
		if res.Language != "" {
			resp.Language = res.Language
		}
		if res.Version != "" {
			resp.Version = res.Version
		}
		resp.Run = runOutput{
			Output:     res.Output,
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
			Code:       res.Code,
			Signal:     res.Signal,
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	return resp
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if s.executions == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "code execution is disabled", nil)
		return
	}

	var req runner.ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExecuteBody)).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	exec, err := s.executions.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrUnsupportedLanguage),
			errors.Is(err, runner.ErrEmptyCode),
			errors.Is(err, runner.ErrInvalidRunID):
			s.jsonError(w, http.StatusBadRequest, "invalid execution request", err)
		case errors.Is(err, runner.ErrRunInProgress):
			s.jsonError(w, http.StatusConflict, "run already in progress", err)
		case errors.Is(err, context.Canceled):
			s.jsonError(w, http.StatusConflict, "run canceled", nil)
		case errors.Is(err, context.DeadlineExceeded):
			s.jsonError(w, http.StatusGatewayTimeout, "run timed out", err)
		default:
			s.jsonError(w, http.StatusBadGateway, "code execution failed", err)
		}
		return
	}

	s.jsonResponse(w, http.StatusOK, newRunResponse(exec))
}

func (s *Server) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	if s.executions == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "code execution is disabled", nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid run id", nil)
		return
	}

	if err := s.executions.Cancel(id); err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			s.jsonError(w, http.StatusNotFound, "run not found", nil)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to cancel run", err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"id":       id.String(),
		"canceled": true,
	})
}
