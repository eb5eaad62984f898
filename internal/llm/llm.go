// Package llm defines the boundary to hosted chat-completion models.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message is one turn of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Provider produces one completion for a request.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Defaults applied by providers when a request leaves them unset.
const (
	DefaultTemperature = 0.9
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 500
)

// WithDefaults fills zero sampling parameters.
func (r Request) WithDefaults() Request {
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.TopP == 0 {
		r.TopP = DefaultTopP
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}
