package pipeline

import (
	"context"

	"appscout/internal/core"
)

// KeywordClusterer groups discovered keywords into clusters.
type KeywordClusterer interface {
	ClusterKeywords(ctx context.Context, keywords []core.DiscoveredKeyword) ([]core.Cluster, error)
}

// Scorer computes opportunity sub-scores for clusters. Clusters it cannot
// score are left out of the result.
type Scorer interface {
	Score(ctx context.Context, clusters []core.Cluster) ([]core.ClusterScore, error)
}

// GapAnalyzer analyzes the competitive landscape of clusters.
type GapAnalyzer interface {
	AnalyzeClusterGap(ctx context.Context, score core.ClusterScore, country string) core.GapAnalysis
	AnalyzeTopClusters(ctx context.Context, scores []core.ClusterScore, country string, topN int) ([]core.GapAnalysis, error)
}

// Recommender writes build recommendations from gap analyses.
type Recommender interface {
	GenerateRecommendation(ctx context.Context, score core.ClusterScore, analysis core.GapAnalysis, country string) core.Recommendation
	GenerateRecommendations(ctx context.Context, scores []core.ClusterScore, analyses []core.GapAnalysis, country string) ([]core.Recommendation, error)
}

// SessionSaver persists a session after each stage.
type SessionSaver interface {
	Save(ctx context.Context, session *core.Session) error
}
