// Package gap analyzes the competitive landscape of a cluster: what the
// top apps already do, what users complain about and what is missing.
package gap

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"appscout/internal/catalog"
	"appscout/internal/core"
	"appscout/internal/enrichment"
	"appscout/internal/extract"
	"appscout/internal/llm"
	"appscout/internal/logger"
	"appscout/internal/metrics"
	"appscout/internal/stage"

	"github.com/goccy/go-json"
)

// StageName labels gap analysis calls in logs and metrics.
const StageName = "gap_analysis"

const (
	// DefaultTopN is how many clusters AnalyzeTopClusters covers.
	DefaultTopN = 3

	maxDescriptionChars = 500
	maxPromptKeywords   = 10
	enrichmentApps      = 3
	enrichmentKeywords  = 5

	// EnrichmentHeading delimits real user feedback in the prompt.
	EnrichmentHeading = "=== REAL USER FEEDBACK & DISCUSSIONS ==="
)

// Placeholder content for degraded results.
const (
	NoAppsComplaint     = "No competing apps found in App Store"
	FirstMoverGap       = "Opportunity to be first mover in this space"
	NoMonetizationData  = "No monetization data available"
	FailedComplaint     = "Analysis failed - please retry"
	FailedMonetization  = "Unable to analyze monetization patterns"
	MissingMonetization = "No monetization insights provided"
)

const systemInstruction = `You are an App Store competitive analyst helping an indie developer find underserved markets.

You will receive summaries of the top competing apps for one app concept, the concept's search keywords and, when available, real user feedback from reviews and forum discussions.

Your job:
1. Identify the features that most competing apps already offer.
2. Identify the most common user complaints. Use both the app summaries and the real user feedback; prefer concrete, repeated pain points.
3. Identify market gaps: needs that no app serves well. Where forum discussions are provided, validate each gap against them.
4. Summarize how these apps make money (pricing, subscriptions, ads, one-time purchases) and what users think of it.

Respond with a single JSON object of this shape and nothing else:
{"existingFeatures": ["string"], "userComplaints": ["string"], "gaps": ["string"], "monetizationInsights": "string"}`

// AppSource finds the competing apps for a set of keywords.
type AppSource interface {
	GetTopAppsForCluster(ctx context.Context, keywords []string, country string) []core.AnalyzedApp
}

// gapResponse keeps each field raw so a wrong-typed field defaults on its
// own instead of failing the whole response.
type gapResponse struct {
	ExistingFeatures     json.RawMessage `json:"existingFeatures"`
	UserComplaints       json.RawMessage `json:"userComplaints"`
	Gaps                 json.RawMessage `json:"gaps"`
	MonetizationInsights json.RawMessage `json:"monetizationInsights"`
}

// Engine runs gap analysis for clusters.
type Engine struct {
	apps       AppSource
	completer  llm.Completer
	enrichment enrichment.Provider
	pacer      stage.Pacer
}

// NewEngine creates a gap analysis Engine. provider may be nil and pacer
// defaults to no delay.
func NewEngine(apps AppSource, completer llm.Completer, provider enrichment.Provider, pacer stage.Pacer) *Engine {
	if pacer == nil {
		pacer = stage.NoDelay
	}
	return &Engine{
		apps:       apps,
		completer:  completer,
		enrichment: provider,
		pacer:      pacer,
	}
}

// AnalyzeClusterGap never returns an error: an empty catalog result and any
// LLM failure both produce a degraded record. Fetched apps are always kept.
func (e *Engine) AnalyzeClusterGap(ctx context.Context, score core.ClusterScore, country string) core.GapAnalysis {
	apps := e.apps.GetTopAppsForCluster(ctx, score.Keywords, country)

	if len(apps) == 0 {
		logger.Info("No competing apps found", "cluster", score.Name)
		metrics.RecordStage(StageName, metrics.OutcomeSkipped)
		return core.GapAnalysis{
			ClusterID:            score.ID,
			ClusterName:          score.Name,
			ExistingFeatures:     []string{},
			UserComplaints:       []string{NoAppsComplaint},
			Gaps:                 []string{FirstMoverGap},
			MonetizationInsights: NoMonetizationData,
			AnalyzedApps:         []core.AnalyzedApp{},
			Degraded:             true,
		}
	}

	enrichmentText := e.fetchEnrichment(ctx, apps, score.Keywords, country)

	analysis, _ := stage.Run(ctx, e.completer, stage.Spec[core.GapAnalysis]{
		Stage: StageName,
		Build: func() llm.Request {
			return llm.Request{
				System: systemInstruction,
				User:   buildUserMessage(score, apps, enrichmentText),
			}
		},
		Parse: func(text string) (core.GapAnalysis, error) {
			resp, err := extract.Parse[gapResponse](StageName, text, nil)
			if err != nil {
				return core.GapAnalysis{}, err
			}
			return core.GapAnalysis{
				ClusterID:            score.ID,
				ClusterName:          score.Name,
				ExistingFeatures:     stringList(resp.ExistingFeatures),
				UserComplaints:       stringList(resp.UserComplaints),
				Gaps:                 stringList(resp.Gaps),
				MonetizationInsights: cmp.Or(strings.TrimSpace(stringField(resp.MonetizationInsights)), MissingMonetization),
				AnalyzedApps:         apps,
			}, nil
		},
		Fallback: func(error) core.GapAnalysis {
			return core.GapAnalysis{
				ClusterID:            score.ID,
				ClusterName:          score.Name,
				ExistingFeatures:     []string{},
				UserComplaints:       []string{FailedComplaint},
				Gaps:                 []string{},
				MonetizationInsights: FailedMonetization,
				AnalyzedApps:         apps,
				Degraded:             true,
			}
		},
	})
	return analysis
}

// AnalyzeTopClusters analyzes the topN highest-scoring clusters one at a time,
// pacing LLM calls. Results are ordered by opportunity score, highest first.
func (e *Engine) AnalyzeTopClusters(ctx context.Context, scores []core.ClusterScore, country string, topN int) ([]core.GapAnalysis, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	ranked := RankByOpportunity(scores)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	logger.Info("Analyzing top clusters", "clusters", len(ranked), "country", country)
	return stage.Sequential(ctx, ranked, e.pacer, func(ctx context.Context, s core.ClusterScore) (core.GapAnalysis, bool) {
		return e.AnalyzeClusterGap(ctx, s, country), true
	})
}

// RankByOpportunity returns a copy of scores sorted by opportunity score,
// highest first, ties broken by cluster id.
func RankByOpportunity(scores []core.ClusterScore) []core.ClusterScore {
	ranked := slices.Clone(scores)
	slices.SortStableFunc(ranked, func(a, b core.ClusterScore) int {
		if c := cmp.Compare(b.OpportunityScore, a.OpportunityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ranked
}

func (e *Engine) fetchEnrichment(ctx context.Context, apps []core.AnalyzedApp, keywords []string, country string) string {
	if e.enrichment == nil {
		return ""
	}

	ids := make([]int64, 0, enrichmentApps)
	for _, app := range apps[:min(len(apps), enrichmentApps)] {
		ids = append(ids, app.ID)
	}

	text, err := e.enrichment.GetEnrichmentForPrompt(ctx, enrichment.Request{
		AppStoreIDs: ids,
		Keywords:    keywords[:min(len(keywords), enrichmentKeywords)],
		Country:     country,
		Options:     enrichment.GapOptions(),
	})
	if err != nil {
		logger.Warn("Enrichment unavailable for gap analysis", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// SummarizeApp renders one competitor for a prompt.
func SummarizeApp(app core.AnalyzedApp) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("App: %s\n", app.Name))
	sb.WriteString(fmt.Sprintf("Rating: %s (%d reviews)\n", catalog.FormatRating(app.Rating), app.ReviewCount))
	sb.WriteString(fmt.Sprintf("Price: %s\n", catalog.FormatPrice(app.Price)))
	if app.HasSubscription {
		sb.WriteString("Monetization: mentions subscriptions or in-app upgrades\n")
	}
	sb.WriteString(fmt.Sprintf("Description: %s\n", truncateRunes(app.Description, maxDescriptionChars)))
	return sb.String()
}

func buildUserMessage(score core.ClusterScore, apps []core.AnalyzedApp, enrichmentText string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("APP CONCEPT: %s\n", score.Name))
	if score.Theme != "" {
		sb.WriteString(fmt.Sprintf("Theme: %s\n", score.Theme))
	}
	keywords := score.Keywords[:min(len(score.Keywords), maxPromptKeywords)]
	sb.WriteString(fmt.Sprintf("Keywords: %s\n\n", strings.Join(keywords, ", ")))

	sb.WriteString(fmt.Sprintf("TOP %d COMPETING APPS:\n\n", len(apps)))
	for i, app := range apps {
		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		sb.WriteString(SummarizeApp(app))
		sb.WriteString("\n")
	}

	if enrichmentText != "" {
		sb.WriteString(EnrichmentHeading)
		sb.WriteString("\n")
		sb.WriteString(enrichmentText)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return JSON only.")
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// stringList decodes a JSON string array. Missing, null or wrong-typed
// values give an empty list.
func stringList(raw json.RawMessage) []string {
	var items []string
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return []string{}
	}
	return items
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
