package llm

import (
	"context"
	"fmt"
	"time"

	"appscout/internal/config"
)

// NewFromConfig builds the configured provider wrapped in tracing and,
// when enabled, a circuit breaker.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Completer, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	var base Completer
	switch cfg.LLM.Provider {
	case "gemini":
		base, err = NewGeminiClient(ctx, apiKey, cfg.LLM.Gemini.Model, cfg.LLM.Gemini.MaxTokens)
	case "anthropic", "":
		base, err = NewMessagesClient(MessagesConfig{
			APIKey:    apiKey,
			BaseURL:   cfg.LLM.Anthropic.BaseURL,
			Model:     cfg.LLM.Anthropic.Model,
			Version:   cfg.LLM.Anthropic.Version,
			MaxTokens: cfg.LLM.Anthropic.MaxTokens,
			Timeout:   config.Duration(cfg.LLM.Anthropic.Timeout, 120*time.Second),
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	var client Completer = NewTracedClient(base)
	if cfg.LLM.Breaker.Failures > 0 {
		client = NewBreakerClient(client, BreakerSettings{
			Name:             cfg.LLM.Provider,
			FailureThreshold: cfg.LLM.Breaker.Failures,
			OpenTimeout:      config.Duration(cfg.LLM.Breaker.OpenTimeout, 30*time.Second),
		})
	}
	return client, nil
}
