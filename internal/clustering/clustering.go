// Package clustering groups discovered keywords into app concepts with a
// single LLM call and provides the pure edit operations used to correct
// the result by hand.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"appscout/internal/core"
	"appscout/internal/extract"
	"appscout/internal/llm"
	"appscout/internal/logger"
	"appscout/internal/stage"
)

// StageName labels clustering calls in logs and metrics.
const StageName = "clustering"

// MaxTerms caps how many unique terms are sent to the model.
const MaxTerms = 100

// ErrNoKeywords is returned when nothing is left to cluster after preparation.
var ErrNoKeywords = errors.New("no keywords to cluster")

const systemInstruction = `You are an App Store market analyst. Group the search keywords you are given into clusters, where each cluster represents one distinct app concept a solo developer could build.

Rules:
- Produce between 5 and 8 clusters.
- Every keyword you keep must appear in exactly one cluster. Copy keywords verbatim.
- Give each cluster a short, descriptive name (for example "Habit Tracking for ADHD", not "Group 1").
- Give each cluster a one-line theme describing the user need it serves.
- Drop keywords that are too generic, branded, or do not fit any coherent app concept.
- Prefer groupings with clear commercial potential: concepts people would pay for or subscribe to.

Respond with a single JSON object of this shape and nothing else:
{"clusters": [{"name": "string", "keywords": ["string"], "theme": "string"}]}`

type clusterResponse struct {
	Clusters []clusterItem `json:"clusters" validate:"required,dive"`
}

type clusterItem struct {
	Name     string   `json:"name" validate:"required"`
	Keywords []string `json:"keywords" validate:"required"`
	Theme    string   `json:"theme" validate:"required"`
}

func checkResponse(r *clusterResponse) error {
	if err := extract.Struct(r); err != nil {
		return err
	}
	for i, c := range r.Clusters {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Theme) == "" {
			return fmt.Errorf("clusters[%d]: name and theme must not be blank", i)
		}
	}
	return nil
}

// Engine clusters keywords with an LLM.
type Engine struct {
	completer llm.Completer
}

// NewEngine creates a clustering Engine.
func NewEngine(completer llm.Completer) *Engine {
	return &Engine{completer: completer}
}

// PrepareTerms trims terms, drops empties and case-insensitive duplicates
// (first spelling wins) and caps the result at MaxTerms.
func PrepareTerms(keywords []core.DiscoveredKeyword) []string {
	seen := make(map[string]struct{}, len(keywords))
	terms := make([]string, 0, min(len(keywords), MaxTerms))
	for _, kw := range keywords {
		term := strings.TrimSpace(kw.Term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
		if len(terms) == MaxTerms {
			break
		}
	}
	return terms
}

// ClusterKeywords asks the model to group keywords into clusters. Any
// transport, parse or validation failure is returned; there is no fallback.
func (e *Engine) ClusterKeywords(ctx context.Context, keywords []core.DiscoveredKeyword) ([]core.Cluster, error) {
	terms := PrepareTerms(keywords)
	if len(terms) == 0 {
		return nil, ErrNoKeywords
	}

	logger.Info("Clustering keywords", "input", len(keywords), "unique_terms", len(terms))

	resp, err := stage.Run(ctx, e.completer, stage.Spec[clusterResponse]{
		Stage: StageName,
		Build: func() llm.Request {
			return llm.Request{
				System: systemInstruction,
				User:   buildUserMessage(terms),
			}
		},
		Parse: func(text string) (clusterResponse, error) {
			return extract.Parse(StageName, text, checkResponse)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("keyword clustering failed: %w", err)
	}

	clusters := make([]core.Cluster, 0, len(resp.Clusters))
	for _, c := range resp.Clusters {
		clusters = append(clusters, core.NewCluster(strings.TrimSpace(c.Name), c.Keywords, strings.TrimSpace(c.Theme)))
	}

	logger.Info("Keywords clustered", "clusters", len(clusters))
	return clusters, nil
}

func buildUserMessage(terms []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cluster these %d App Store search keywords:\n\n", len(terms)))
	for _, t := range terms {
		sb.WriteString("- ")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	sb.WriteString("\nReturn JSON only.")
	return sb.String()
}
