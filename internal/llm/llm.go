package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultMaxTokens bounds every completion unless the request overrides it.
	DefaultMaxTokens = 4096
	// DefaultGeminiModel is the Gemini model used when none is configured.
	DefaultGeminiModel = "gemini-flash-lite-latest"
)

// Request is a single system + user turn sent to a chat model.
type Request struct {
	Stage       string  // Pipeline stage issuing the call, used for logs and metrics
	System      string  // System instruction
	User        string  // User message
	MaxTokens   int     // Maximum tokens to generate (0 uses the client default)
	Temperature float32 // Sampling temperature (0 uses the provider default)
}

// Completer turns a Request into the model's raw text response.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrEmptyResponse is returned when the model answered without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// HTTPError is a non-success HTTP status returned by a provider.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// GeminiClient is a Completer backed by the Google Gemini API.
type GeminiClient struct {
	modelName string
	maxTokens int
	gClient   *genai.Client
}

// NewGeminiClient creates a Gemini-backed Completer.
func NewGeminiClient(ctx context.Context, apiKey, modelName string, maxTokens int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		modelName: modelName,
		maxTokens: maxTokens,
		gClient:   gClient,
	}, nil
}

// Name identifies the provider in logs and metrics.
func (c *GeminiClient) Name() string { return "gemini" }

// Complete sends the request as a single user turn with a system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.User == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.User}},
		Role:  "user",
	}}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		config.Temperature = &temp
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
