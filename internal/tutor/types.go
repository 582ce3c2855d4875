package tutor

import "errors"

// ErrNoCredentials is returned when the credential pool is empty
var ErrNoCredentials = errors.New("no API keys configured: set GEMINI_KEY_1 through GEMINI_KEY_5")

// ErrMissingContext is returned when a request has no context object
var ErrMissingContext = errors.New("missing context")

const (
	// OverloadedMessage replaces any provider-reported error
	OverloadedMessage = "I'm a bit overwhelmed right now. Try again in a few seconds!"

	// NoHintMessage is returned when the provider produced no text
	NoHintMessage = "I couldn't generate a hint."
)

// Request is a tutoring query with its problem context
type Request struct {
	Query   string   `json:"query"`
	Context *Context `json:"context"`
}

// Context bundles the problem and the student's current code
type Context struct {
	Title    string `json:"title"`
	Problem  string `json:"problem"`
	UserCode string `json:"userCode"`
	Language string `json:"language"`
}

// Response is the tutor's reply
type Response struct {
	Answer string `json:"answer"`
}

// ErrorResponse is the body of a failed tutor request
type ErrorResponse struct {
	Error string `json:"error"`
}
