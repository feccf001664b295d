package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultMessagesBaseURL is the public Messages API host.
	DefaultMessagesBaseURL = "https://api.anthropic.com"
	// DefaultMessagesVersion is sent in the version header.
	DefaultMessagesVersion = "2023-06-01"
	// DefaultMessagesModel is used when no model is configured.
	DefaultMessagesModel = "claude-sonnet-4-20250514"
)

// MessagesConfig configures a MessagesClient.
type MessagesConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Version   string
	MaxTokens int
	Timeout   time.Duration
}

// MessagesClient is a Completer for the POST /v1/messages chat endpoint.
// Streaming is not used.
type MessagesClient struct {
	apiKey    string
	baseURL   string
	model     string
	version   string
	maxTokens int
	client    *http.Client
}

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	System      string           `json:"system,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
	Messages    []messageContent `json:"messages"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewMessagesClient creates a Messages API client.
func NewMessagesClient(cfg MessagesConfig) (*MessagesClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("messages API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMessagesBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultMessagesModel
	}
	if cfg.Version == "" {
		cfg.Version = DefaultMessagesVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &MessagesClient{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		version:   cfg.Version,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies the provider in logs and metrics.
func (c *MessagesClient) Name() string { return "anthropic" }

// Complete posts one user message and returns the concatenated text blocks.
// Non-2xx statuses are returned as *HTTPError.
func (c *MessagesClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.User == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []messageContent{{Role: "user", Content: req.User}},
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		payload.Temperature = &temp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create messages request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute messages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &HTTPError{Provider: c.Name(), Status: resp.StatusCode, Body: string(errBody)}
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode messages response: %w", err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
