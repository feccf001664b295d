// Package enrichment gathers real user feedback (store reviews, forum
// threads, developer websites) to ground LLM prompts. Every source is
// best-effort: callers treat an error or empty text as "no enrichment".
package enrichment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"appscout/internal/config"
	"appscout/internal/metrics"

	"github.com/goccy/go-json"
)

// Options selects which sources to consult and how much of each to keep.
type Options struct {
	IncludeReviews   bool `json:"includeReviews"`
	IncludeReddit    bool `json:"includeReddit"`
	IncludeWebsites  bool `json:"includeWebsites"`
	MaxReviewsPerApp int  `json:"maxReviewsPerApp,omitempty"`
	MaxRedditPosts   int  `json:"maxRedditPosts,omitempty"`
}

// Request identifies what to enrich.
type Request struct {
	AppStoreIDs []int64  `json:"appStoreIds"`
	Keywords    []string `json:"keywords"`
	Country     string   `json:"country"`
	Options     Options  `json:"options"`
}

// Provider returns a prompt-ready text block, or "" when nothing was found.
type Provider interface {
	GetEnrichmentForPrompt(ctx context.Context, req Request) (string, error)
}

// GapOptions are used while analyzing a cluster's competitive landscape.
func GapOptions() Options {
	return Options{
		IncludeReviews:   true,
		IncludeReddit:    true,
		IncludeWebsites:  false,
		MaxReviewsPerApp: 5,
		MaxRedditPosts:   5,
	}
}

// RecommendationOptions are used while writing the final recommendation.
func RecommendationOptions() Options {
	return Options{
		IncludeReviews:  true,
		IncludeReddit:   true,
		IncludeWebsites: true,
	}
}

// RemoteProvider delegates to an enrichment service exposing
// POST /enrichment/prompt.
type RemoteProvider struct {
	baseURL string
	client  *http.Client
}

// NewRemoteProvider creates a RemoteProvider for baseURL.
func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteResponse struct {
	Text string `json:"text"`
}

// GetEnrichmentForPrompt posts req and returns the service's text field.
func (p *RemoteProvider) GetEnrichmentForPrompt(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode enrichment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/enrichment/prompt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create enrichment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		metrics.RecordEnrichment("error")
		return "", fmt.Errorf("failed to execute enrichment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordEnrichment("http_error")
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("enrichment service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RecordEnrichment("error")
		return "", fmt.Errorf("failed to decode enrichment response: %w", err)
	}

	metrics.RecordEnrichment(resultLabel(parsed.Text))
	return strings.TrimSpace(parsed.Text), nil
}

func resultLabel(text string) string {
	if strings.TrimSpace(text) == "" {
		return "empty"
	}
	return "ok"
}

// NewFromConfig builds the configured provider, or nil when enrichment is off.
// lookup is only used by the builtin provider to reach developer websites.
func NewFromConfig(cfg *config.Config, lookup Lookuper) Provider {
	timeout := config.Duration(cfg.Enrichment.Timeout, 20*time.Second)
	switch cfg.Enrichment.Mode {
	case "remote":
		return NewRemoteProvider(cfg.Enrichment.BaseURL, timeout)
	case "builtin":
		return NewBuiltinProvider(BuiltinConfig{
			CatalogBaseURL: cfg.Catalog.BaseURL,
			ForumBaseURL:   cfg.Enrichment.ForumURL,
			UserAgent:      cfg.Enrichment.UserAgent,
			Timeout:        timeout,
			Lookup:         lookup,
		})
	default:
		return nil
	}
}
