// Package gemini calls Google's Gemini models through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/paranroman/bisimo/internal/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Adapter implements llm.Provider with genai.Client.
type Adapter struct {
	client *genai.Client
	model  string
}

// Options configure New.
type Options struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// New creates a Gemini API client.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Adapter{client: client, model: model}, nil
}

// Name reports the provider name.
func (a *Adapter) Name() string { return "gemini" }

// Model reports the configured model.
func (a *Adapter) Model() string { return a.model }

// Complete maps the conversation onto Gemini contents, with the assistant
// role renamed to model, and returns the generated text.
func (a *Adapter) Complete(ctx context.Context, req llm.Request) (string, error) {
	req = req.WithDefaults()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		TopP:            genai.Ptr(float32(req.TopP)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if strings.TrimSpace(req.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}
