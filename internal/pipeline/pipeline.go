// Package pipeline runs a research session end to end: cluster the
// discovered keywords, score the clusters, analyze the top ones and write
// recommendations, persisting the session after every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"appscout/internal/core"
	"appscout/internal/logger"
	"appscout/internal/recommend"
)

// ErrUnknownCluster is returned by Reanalyze for a cluster the session has not scored.
var ErrUnknownCluster = errors.New("cluster not found in session scores")

// Runner orchestrates the stages of a session.
type Runner struct {
	clusterer   KeywordClusterer
	analyzer    GapAnalyzer
	recommender Recommender
	saver       SessionSaver // optional
}

// NewRunner creates a Runner. saver may be nil.
func NewRunner(clusterer KeywordClusterer, analyzer GapAnalyzer, recommender Recommender, saver SessionSaver) *Runner {
	return &Runner{
		clusterer:   clusterer,
		analyzer:    analyzer,
		recommender: recommender,
		saver:       saver,
	}
}

// Stats summarizes one run.
type Stats struct {
	Keywords        int           `json:"keywords"`
	Clusters        int           `json:"clusters"`
	Scored          int           `json:"scored"`
	Analyzed        int           `json:"analyzed"`
	DegradedGaps    int           `json:"degradedGaps"`
	Recommendations int           `json:"recommendations"`
	Fallbacks       int           `json:"fallbacks"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	ProcessingTime  time.Duration `json:"processingTime"`
}

// Run takes a session in the discovering state through to complete.
// Clustering and scoring failures mark the session failed and are returned;
// later stages degrade per cluster instead of failing.
func (r *Runner) Run(ctx context.Context, session *core.Session, scorer Scorer, topN int) (*Stats, error) {
	stats := &Stats{StartTime: time.Now(), Keywords: len(session.Keywords)}
	log := logger.With("session_id", session.ID)

	if err := r.advance(ctx, session, core.StatusClustering); err != nil {
		return stats, err
	}
	log.Info().Int("keywords", len(session.Keywords)).Msg("Clustering keywords")
	clusters, err := r.clusterer.ClusterKeywords(ctx, session.Keywords)
	if err != nil {
		return stats, r.fail(ctx, session, fmt.Errorf("clustering failed: %w", err))
	}
	session.Clusters = clusters
	stats.Clusters = len(clusters)

	if err := r.advance(ctx, session, core.StatusScoring); err != nil {
		return stats, err
	}
	scores, err := scorer.Score(ctx, clusters)
	if err != nil {
		return stats, r.fail(ctx, session, fmt.Errorf("scoring failed: %w", err))
	}
	session.Scores = scores
	stats.Scored = len(scores)

	if err := r.advance(ctx, session, core.StatusAnalyzing); err != nil {
		return stats, err
	}
	log.Info().Int("scored", len(scores)).Int("top_n", topN).Msg("Analyzing market gaps")
	analyses, err := r.analyzer.AnalyzeTopClusters(ctx, scores, session.Country, topN)
	session.GapAnalyses = analyses
	if err != nil {
		return stats, r.fail(ctx, session, fmt.Errorf("gap analysis interrupted: %w", err))
	}
	if err := r.save(ctx, session); err != nil {
		return stats, err
	}
	stats.Analyzed = len(analyses)
	for _, a := range analyses {
		if a.Degraded {
			stats.DegradedGaps++
		}
	}

	recs, err := r.recommender.GenerateRecommendations(ctx, scores, analyses, session.Country)
	session.Recommendations = recs
	if err != nil {
		return stats, r.fail(ctx, session, fmt.Errorf("recommendations interrupted: %w", err))
	}
	stats.Recommendations = len(recs)
	for _, rec := range recs {
		if rec.Fallback {
			stats.Fallbacks++
		}
	}

	if err := r.advance(ctx, session, core.StatusComplete); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.ProcessingTime = stats.EndTime.Sub(stats.StartTime)
	log.Info().
		Int("clusters", stats.Clusters).
		Int("analyzed", stats.Analyzed).
		Int("recommendations", stats.Recommendations).
		Dur("duration", stats.ProcessingTime).
		Msg("Session complete")
	return stats, nil
}

// Reanalyze reruns gap analysis and the recommendation for one scored
// cluster, replacing only that cluster's records.
func (r *Runner) Reanalyze(ctx context.Context, session *core.Session, clusterID string) error {
	idx := slices.IndexFunc(session.Scores, func(s core.ClusterScore) bool { return s.ID == clusterID })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCluster, clusterID)
	}
	score := session.Scores[idx]

	logger.Info("Reanalyzing cluster", "session_id", session.ID, "cluster", score.Name)
	analysis := r.analyzer.AnalyzeClusterGap(ctx, score, session.Country)
	rec := r.recommender.GenerateRecommendation(ctx, score, analysis, session.Country)

	session.GapAnalyses = replaceOrAppend(session.GapAnalyses, analysis, func(a core.GapAnalysis) bool { return a.ClusterID == clusterID })
	session.Recommendations = replaceOrAppend(session.Recommendations, rec, func(r core.Recommendation) bool { return r.ClusterID == clusterID })
	recommend.SortByOpportunity(session.Recommendations)
	session.UpdatedAt = time.Now().UTC()

	return r.save(ctx, session)
}

func (r *Runner) advance(ctx context.Context, session *core.Session, to core.SessionStatus) error {
	if err := session.Advance(to); err != nil {
		return err
	}
	return r.save(ctx, session)
}

func (r *Runner) fail(ctx context.Context, session *core.Session, err error) error {
	logger.Error("Session failed", err, "session_id", session.ID, "status", string(session.Status))
	session.Fail(err)
	if saveErr := r.save(ctx, session); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	return err
}

func (r *Runner) save(ctx context.Context, session *core.Session) error {
	if r.saver == nil {
		return nil
	}
	// Persist even when the run was cancelled so the failure is recorded.
	if err := r.saver.Save(context.WithoutCancel(ctx), session); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func replaceOrAppend[T any](items []T, item T, match func(T) bool) []T {
	if i := slices.IndexFunc(items, match); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}
