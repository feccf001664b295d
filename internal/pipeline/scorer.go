package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"appscout/internal/core"
	"appscout/internal/logger"

	"github.com/goccy/go-json"
)

// ScoreEntry holds precomputed sub-scores for one cluster, matched by name.
type ScoreEntry struct {
	Name                 string  `json:"name"`
	CompetitionGap       float64 `json:"competitionGap"`
	MarketDemand         float64 `json:"marketDemand"`
	RevenuePotential     float64 `json:"revenuePotential"`
	TrendMomentum        float64 `json:"trendMomentum"`
	ExecutionFeasibility float64 `json:"executionFeasibility"`
	OpportunityScore     float64 `json:"opportunityScore"`
}

// StaticScorer scores clusters from a fixed table keyed by cluster name
// (case-insensitive).
type StaticScorer struct {
	entries map[string]ScoreEntry
}

// NewStaticScorer builds a scorer from entries. Later duplicates win.
func NewStaticScorer(entries []ScoreEntry) *StaticScorer {
	m := make(map[string]ScoreEntry, len(entries))
	for _, e := range entries {
		m[normalizeName(e.Name)] = e
	}
	return &StaticScorer{entries: m}
}

// LoadScores reads a JSON array of ScoreEntry from path.
func LoadScores(path string) (*StaticScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores file %s: %w", path, err)
	}
	var entries []ScoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse scores file %s: %w", path, err)
	}
	return NewStaticScorer(entries), nil
}

// Score attaches the table's scores to each matching cluster.
func (s *StaticScorer) Score(_ context.Context, clusters []core.Cluster) ([]core.ClusterScore, error) {
	scores := make([]core.ClusterScore, 0, len(clusters))
	for _, c := range clusters {
		e, ok := s.entries[normalizeName(c.Name)]
		if !ok {
			logger.Warn("No score for cluster, dropping it", "cluster", c.Name)
			continue
		}
		scores = append(scores, core.ClusterScore{
			Cluster:              c,
			CompetitionGap:       e.CompetitionGap,
			MarketDemand:         e.MarketDemand,
			RevenuePotential:     e.RevenuePotential,
			TrendMomentum:        e.TrendMomentum,
			ExecutionFeasibility: e.ExecutionFeasibility,
			OpportunityScore:     e.OpportunityScore,
		})
	}
	return scores, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
