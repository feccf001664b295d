// Package recommend turns a scored cluster and its gap analysis into a
// concrete build recommendation.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"appscout/internal/core"
	"appscout/internal/enrichment"
	"appscout/internal/extract"
	"appscout/internal/llm"
	"appscout/internal/logger"
	"appscout/internal/stage"

	"gonum.org/v1/gonum/stat"
)

// StageName labels recommendation calls in logs and metrics.
const StageName = "recommendation"

const (
	enrichmentApps     = 3
	enrichmentKeywords = 5

	// IncompleteReason leads the reasoning of every fallback recommendation.
	IncompleteReason = "Analysis incomplete - recommendation generated from available data"
	// UnknownGap is the fallback primary gap when the analysis found none.
	UnknownGap   = "Market gap requires further analysis"
	notAvailable = "N/A"
)

const systemInstruction = `You are a pragmatic product strategist advising an indie iOS developer on what to build next.

Using only the market data you are given, write one specific, realistic recommendation for an app the developer could ship and sell. Ground every claim in the numbers, complaints and gaps provided; do not invent statistics. Keep the MVP small enough for one developer to build in a few weeks, and pick a monetization model that fits how users in this market already pay.

Respond with a single JSON object of this shape and nothing else:
{
  "headline": "one-sentence pitch",
  "reasoning": ["data-backed reason", "..."],
  "combinedSearchVolume": "short description of demand",
  "competitionSummary": "short description of the competitive landscape",
  "primaryGap": "the single most important unmet need",
  "suggestedMonetization": "pricing model and price points",
  "mvpScope": "the smallest feature set worth shipping",
  "differentiator": "why users would switch"
}`

type recommendationResponse struct {
	Headline              string   `json:"headline" validate:"required"`
	Reasoning             []string `json:"reasoning" validate:"required"`
	CombinedSearchVolume  string   `json:"combinedSearchVolume" validate:"required"`
	CompetitionSummary    string   `json:"competitionSummary" validate:"required"`
	PrimaryGap            string   `json:"primaryGap" validate:"required"`
	SuggestedMonetization string   `json:"suggestedMonetization" validate:"required"`
	MVPScope              string   `json:"mvpScope" validate:"required"`
	Differentiator        string   `json:"differentiator" validate:"required"`
}

func checkResponse(r *recommendationResponse) error {
	return extract.Struct(r)
}

// Engine generates recommendations.
type Engine struct {
	completer  llm.Completer
	enrichment enrichment.Provider
	pacer      stage.Pacer
}

// NewEngine creates a recommendation Engine. provider may be nil.
func NewEngine(completer llm.Completer, provider enrichment.Provider, pacer stage.Pacer) *Engine {
	if pacer == nil {
		pacer = stage.NoDelay
	}
	return &Engine{completer: completer, enrichment: provider, pacer: pacer}
}

// GenerateRecommendation never returns an error. When the model fails or
// answers with an invalid shape, a fallback built from the inputs is
// returned. The opportunity score always comes from score. country is the
// storefront passed to the enrichment provider.
func (e *Engine) GenerateRecommendation(ctx context.Context, score core.ClusterScore, analysis core.GapAnalysis, country string) core.Recommendation {
	enrichmentText := e.fetchEnrichment(ctx, analysis, score.Keywords, country)

	rec, _ := stage.Run(ctx, e.completer, stage.Spec[core.Recommendation]{
		Stage: StageName,
		Build: func() llm.Request {
			return llm.Request{
				System: systemInstruction,
				User:   buildUserMessage(score, analysis, enrichmentText),
			}
		},
		Parse: func(text string) (core.Recommendation, error) {
			resp, err := extract.Parse(StageName, text, checkResponse)
			if err != nil {
				return core.Recommendation{}, err
			}
			return core.Recommendation{
				ClusterID:             score.ID,
				ClusterName:           score.Name,
				Headline:              resp.Headline,
				Reasoning:             resp.Reasoning,
				CombinedSearchVolume:  resp.CombinedSearchVolume,
				CompetitionSummary:    resp.CompetitionSummary,
				PrimaryGap:            resp.PrimaryGap,
				SuggestedMonetization: resp.SuggestedMonetization,
				MVPScope:              resp.MVPScope,
				Differentiator:        resp.Differentiator,
				OpportunityScore:      score.OpportunityScore,
			}, nil
		},
		Fallback: func(error) core.Recommendation {
			return Fallback(score, analysis)
		},
	})
	return rec
}

// Fallback builds a recommendation from the inputs alone.
func Fallback(score core.ClusterScore, analysis core.GapAnalysis) core.Recommendation {
	primaryGap := UnknownGap
	if len(analysis.Gaps) > 0 {
		primaryGap = analysis.Gaps[0]
	}

	reasoning := []string{
		IncompleteReason,
		fmt.Sprintf("Opportunity score of %.0f/100", score.OpportunityScore),
	}
	if n := len(analysis.AnalyzedApps); n > 0 {
		reasoning = append(reasoning, fmt.Sprintf("%d competing apps analyzed", n))
	}

	return core.Recommendation{
		ClusterID:             score.ID,
		ClusterName:           score.Name,
		Headline:              fmt.Sprintf("Build an app for %s", score.Name),
		Reasoning:             reasoning,
		CombinedSearchVolume:  fmt.Sprintf("%d related keywords", len(score.Keywords)),
		CompetitionSummary:    fmt.Sprintf("%d competing apps found", len(analysis.AnalyzedApps)),
		PrimaryGap:            primaryGap,
		SuggestedMonetization: cmp.Or(analysis.MonetizationInsights, notAvailable),
		MVPScope:              "Focus on solving the primary gap",
		Differentiator:        primaryGap,
		OpportunityScore:      score.OpportunityScore,
		Fallback:              true,
	}
}

// GenerateRecommendations pairs each score with its analysis by cluster id,
// skipping scores without one, and returns recommendations ordered by
// opportunity score (highest first, ties by cluster id).
func (e *Engine) GenerateRecommendations(ctx context.Context, scores []core.ClusterScore, analyses []core.GapAnalysis, country string) ([]core.Recommendation, error) {
	byID := make(map[string]core.GapAnalysis, len(analyses))
	for _, a := range analyses {
		byID[a.ClusterID] = a
	}

	type pair struct {
		score    core.ClusterScore
		analysis core.GapAnalysis
	}
	var pairs []pair
	for _, s := range scores {
		a, ok := byID[s.ID]
		if !ok {
			logger.Warn("Skipping cluster without gap analysis", "cluster_id", s.ID, "cluster", s.Name)
			continue
		}
		pairs = append(pairs, pair{score: s, analysis: a})
	}

	recs, err := stage.Sequential(ctx, pairs, e.pacer, func(ctx context.Context, p pair) (core.Recommendation, bool) {
		return e.GenerateRecommendation(ctx, p.score, p.analysis, country), true
	})
	SortByOpportunity(recs)
	return recs, err
}

// SortByOpportunity orders recommendations highest score first, ties by cluster id.
func SortByOpportunity(recs []core.Recommendation) {
	slices.SortStableFunc(recs, func(a, b core.Recommendation) int {
		if c := cmp.Compare(b.OpportunityScore, a.OpportunityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ClusterID, b.ClusterID)
	})
}

func (e *Engine) fetchEnrichment(ctx context.Context, analysis core.GapAnalysis, keywords []string, country string) string {
	if e.enrichment == nil || len(analysis.AnalyzedApps) == 0 {
		return ""
	}
	apps := analysis.AnalyzedApps[:min(len(analysis.AnalyzedApps), enrichmentApps)]
	ids := make([]int64, len(apps))
	for i, app := range apps {
		ids[i] = app.ID
	}

	text, err := e.enrichment.GetEnrichmentForPrompt(ctx, enrichment.Request{
		AppStoreIDs: ids,
		Keywords:    keywords[:min(len(keywords), enrichmentKeywords)],
		Country:     country,
		Options:     enrichment.RecommendationOptions(),
	})
	if err != nil {
		logger.Warn("Enrichment unavailable for recommendation", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// AppStats returns the mean rating and mean review count of apps, formatted
// for a prompt, or "N/A" for both when there are no apps. Apps without a
// rating are left out of the rating mean.
func AppStats(apps []core.AnalyzedApp) (meanRating, meanReviews string) {
	if len(apps) == 0 {
		return notAvailable, notAvailable
	}

	reviews := make([]float64, len(apps))
	var ratings []float64
	for i, app := range apps {
		reviews[i] = float64(app.ReviewCount)
		if app.Rating != nil {
			ratings = append(ratings, *app.Rating)
		}
	}

	meanRating = notAvailable
	if len(ratings) > 0 {
		meanRating = fmt.Sprintf("%.1f", stat.Mean(ratings, nil))
	}
	meanReviews = fmt.Sprintf("%.0f", stat.Mean(reviews, nil))
	return meanRating, meanReviews
}

func buildUserMessage(score core.ClusterScore, analysis core.GapAnalysis, enrichmentText string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("CLUSTER: %s\n", score.Name))
	sb.WriteString(fmt.Sprintf("Keywords: %s\n\n", strings.Join(score.Keywords, ", ")))

	sb.WriteString("SCORES (0-100):\n")
	sb.WriteString(fmt.Sprintf("- Opportunity: %.1f\n", score.OpportunityScore))
	sb.WriteString(fmt.Sprintf("- Competition gap: %.1f\n", score.CompetitionGap))
	sb.WriteString(fmt.Sprintf("- Market demand: %.1f\n", score.MarketDemand))
	sb.WriteString(fmt.Sprintf("- Revenue potential: %.1f\n", score.RevenuePotential))
	sb.WriteString(fmt.Sprintf("- Trend momentum: %.1f\n", score.TrendMomentum))
	sb.WriteString(fmt.Sprintf("- Execution feasibility: %.1f\n\n", score.ExecutionFeasibility))

	meanRating, meanReviews := AppStats(analysis.AnalyzedApps)
	sb.WriteString("COMPETITION:\n")
	sb.WriteString(fmt.Sprintf("- Apps analyzed: %d\n", len(analysis.AnalyzedApps)))
	sb.WriteString(fmt.Sprintf("- Average rating: %s\n", meanRating))
	sb.WriteString(fmt.Sprintf("- Average review count: %s\n\n", meanReviews))

	writeList(&sb, "EXISTING FEATURES", analysis.ExistingFeatures)
	writeList(&sb, "USER COMPLAINTS", analysis.UserComplaints)
	writeList(&sb, "MARKET GAPS", analysis.Gaps)
	sb.WriteString(fmt.Sprintf("MONETIZATION:\n%s\n\n", cmp.Or(analysis.MonetizationInsights, notAvailable)))

	if enrichmentText != "" {
		sb.WriteString("=== REAL USER FEEDBACK & DISCUSSIONS ===\n")
		sb.WriteString(enrichmentText)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return JSON only.")
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	sb.WriteString(title + ":\n")
	if len(items) == 0 {
		sb.WriteString("- none identified\n\n")
		return
	}
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	sb.WriteString("\n")
}
