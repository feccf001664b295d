package llm

import (
	"context"
	"time"

	"appscout/internal/logger"
	"appscout/internal/metrics"
)

// Named is implemented by completers that can report their provider name.
type Named interface {
	Name() string
}

// TracedClient wraps a Completer with structured logging and Prometheus metrics.
type TracedClient struct {
	next     Completer
	provider string
}

// NewTracedClient decorates next. The provider label is taken from next when it implements Named.
func NewTracedClient(next Completer) *TracedClient {
	provider := "custom"
	if n, ok := next.(Named); ok {
		provider = n.Name()
	}
	return &TracedClient{next: next, provider: provider}
}

// Name returns the wrapped provider's name.
func (tc *TracedClient) Name() string { return tc.provider }

// Complete calls the wrapped completer, recording latency and result.
func (tc *TracedClient) Complete(ctx context.Context, req Request) (string, error) {
	startTime := time.Now()
	text, err := tc.next.Complete(ctx, req)
	latency := time.Since(startTime)

	result := "ok"
	if err != nil {
		result = "error"
		if httpErr, ok := AsHTTPError(err); ok {
			result = "http_" + httpStatusClass(httpErr.Status)
		}
		logger.Warn("LLM completion failed",
			"stage", req.Stage,
			"provider", tc.provider,
			"latency_ms", latency.Milliseconds(),
			"error", err.Error())
	} else {
		logger.Debug("LLM completion finished",
			"stage", req.Stage,
			"provider", tc.provider,
			"latency_ms", latency.Milliseconds(),
			"prompt_tokens_est", estimateTokens(req.System+req.User),
			"completion_tokens_est", estimateTokens(text))
	}
	metrics.RecordLLMRequest(tc.provider, result, latency)

	return text, err
}

// estimateTokens gives a rough token count (about 4 characters per token).
func estimateTokens(text string) int {
	return len(text) / 4
}

func httpStatusClass(status int) string {
	switch {
	case status == 429:
		return "429"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "other"
	}
}
