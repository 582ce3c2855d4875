package runner

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyCode           = errors.New("code is empty")
	ErrNoRunResult         = errors.New("could not execute code")
)

// Job is a normalised execution request
type Job struct {
	Language Language
	Version  string
	Code     string
	Stdin    string
}

// Result contains the outcome of running a program
type Result struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Output   string        `json:"output"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Code     int           `json:"code"`
	Signal   string        `json:"signal,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Executor runs a single program
type Executor interface {
	// Name identifies the backend
	Name() string

	// Execute runs the job. A program that fails is a Result with a non-zero
	// Code; an error means the backend could not run it at all.
	Execute(ctx context.Context, job Job) (*Result, error)
}
