package gap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"appscout/internal/core"
	"appscout/internal/enrichment"
	"appscout/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApps struct {
	apps  []core.AnalyzedApp
	calls int
}

func (f *fakeApps) GetTopAppsForCluster(_ context.Context, _ []string, _ string) []core.AnalyzedApp {
	f.calls++
	return f.apps
}

type recordingCompleter struct {
	text     string
	err      error
	requests []llm.Request
}

func (r *recordingCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	r.requests = append(r.requests, req)
	return r.text, r.err
}

type fakeEnrichment struct {
	text string
	err  error
	got  enrichment.Request
}

func (f *fakeEnrichment) GetEnrichmentForPrompt(_ context.Context, req enrichment.Request) (string, error) {
	f.got = req
	return f.text, f.err
}

func rating(v float64) *float64 { return &v }

func score(id, name string, opportunity float64, keywords ...string) core.ClusterScore {
	c := core.NewCluster(name, keywords, "theme")
	c.ID = id
	return core.ClusterScore{Cluster: c, OpportunityScore: opportunity}
}

func sampleApps() []core.AnalyzedApp {
	return []core.AnalyzedApp{
		{ID: 1, Name: "Fotor", Rating: rating(4.63), ReviewCount: 50000, Description: "Edit photos"},
		{ID: 2, Name: "Snapseed", ReviewCount: 1200, Price: 2.99, Description: strings.Repeat("é", 600)},
		{ID: 3, Name: "Canva", Rating: rating(4.9), ReviewCount: 500},
		{ID: 4, Name: "VSCO", ReviewCount: 100},
	}
}

func TestAnalyzeClusterGap_EmptyLandscape(t *testing.T) {
	completer := &recordingCompleter{}
	engine := NewEngine(&fakeApps{}, completer, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Niche", 50, "niche"), "us")

	assert.Equal(t, []string{NoAppsComplaint}, result.UserComplaints)
	assert.Equal(t, []string{FirstMoverGap}, result.Gaps)
	assert.Equal(t, NoMonetizationData, result.MonetizationInsights)
	assert.Empty(t, result.AnalyzedApps)
	assert.NotNil(t, result.AnalyzedApps)
	assert.Empty(t, result.ExistingFeatures)
	assert.True(t, result.Degraded)
	assert.Empty(t, completer.requests)
}

func TestAnalyzeClusterGap_InvalidJSONKeepsApps(t *testing.T) {
	apps := sampleApps()
	engine := NewEngine(&fakeApps{apps: apps}, &recordingCompleter{text: "I could not analyze this."}, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo editor"), "us")

	assert.Equal(t, apps, result.AnalyzedApps)
	assert.Equal(t, []string{FailedComplaint}, result.UserComplaints)
	assert.Equal(t, FailedMonetization, result.MonetizationInsights)
	assert.Empty(t, result.Gaps)
	assert.Empty(t, result.ExistingFeatures)
	assert.True(t, result.Degraded)
}

func TestAnalyzeClusterGap_HTTPFailureKeepsApps(t *testing.T) {
	apps := sampleApps()
	completer := &recordingCompleter{err: &llm.HTTPError{Provider: "anthropic", Status: 529}}
	engine := NewEngine(&fakeApps{apps: apps}, completer, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo editor"), "us")

	assert.Len(t, result.AnalyzedApps, 4)
	assert.Equal(t, []string{FailedComplaint}, result.UserComplaints)
}

func TestAnalyzeClusterGap_Success(t *testing.T) {
	completer := &recordingCompleter{text: "```json\n" + `{
		"existingFeatures": ["Filters", "Cropping"],
		"userComplaints": ["Too many ads"],
		"gaps": ["Batch editing without subscription"],
		"monetizationInsights": "Mostly subscriptions at $4.99/month"
	}` + "\n```"}
	provider := &fakeEnrichment{text: "Reviewers hate watermarks."}
	keywords := []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9", "k10", "k11"}
	engine := NewEngine(&fakeApps{apps: sampleApps()}, completer, provider, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, keywords...), "gb")

	assert.Equal(t, "c1", result.ClusterID)
	assert.Equal(t, "Photo", result.ClusterName)
	assert.Equal(t, []string{"Filters", "Cropping"}, result.ExistingFeatures)
	assert.Equal(t, []string{"Batch editing without subscription"}, result.Gaps)
	assert.False(t, result.Degraded)
	assert.Len(t, result.AnalyzedApps, 4)

	assert.Equal(t, []int64{1, 2, 3}, provider.got.AppStoreIDs)
	assert.Equal(t, keywords[:5], provider.got.Keywords)
	assert.Equal(t, "gb", provider.got.Country)
	assert.False(t, provider.got.Options.IncludeWebsites)
	assert.Equal(t, 5, provider.got.Options.MaxReviewsPerApp)

	require.Len(t, completer.requests, 1)
	user := completer.requests[0].User
	assert.Contains(t, user, "Rating: 4.6 (50000 reviews)")
	assert.Contains(t, user, "Rating: N/A (1200 reviews)")
	assert.Contains(t, user, "Price: $2.99")
	assert.Contains(t, user, "Price: Free")
	assert.Contains(t, user, strings.Repeat("é", 500)+"...")
	assert.NotContains(t, user, strings.Repeat("é", 501))
	assert.Contains(t, user, "k10")
	assert.NotContains(t, user, "k11")
	assert.Contains(t, user, EnrichmentHeading+"\nReviewers hate watermarks.")
	assert.Equal(t, StageName, completer.requests[0].Stage)
}

func TestAnalyzeClusterGap_MissingFieldsDefault(t *testing.T) {
	engine := NewEngine(&fakeApps{apps: sampleApps()}, &recordingCompleter{text: `{"gaps":["Offline mode"]}`}, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo"), "us")

	assert.Equal(t, []string{"Offline mode"}, result.Gaps)
	assert.Equal(t, []string{}, result.ExistingFeatures)
	assert.Equal(t, []string{}, result.UserComplaints)
	assert.Equal(t, MissingMonetization, result.MonetizationInsights)
	assert.False(t, result.Degraded)
}

func TestAnalyzeClusterGap_WrongTypedFieldsDefault(t *testing.T) {
	apps := sampleApps()
	completer := &recordingCompleter{text: `{"existingFeatures":["Filters"],"userComplaints":["Ads"],"gaps":"none","monetizationInsights":5}`}
	engine := NewEngine(&fakeApps{apps: apps}, completer, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo"), "us")

	assert.False(t, result.Degraded)
	assert.Equal(t, []string{"Filters"}, result.ExistingFeatures)
	assert.Equal(t, []string{"Ads"}, result.UserComplaints)
	assert.Equal(t, []string{}, result.Gaps)
	assert.Equal(t, MissingMonetization, result.MonetizationInsights)
	assert.Equal(t, apps, result.AnalyzedApps)
}

func TestAnalyzeClusterGap_NonObjectResponseFallsBack(t *testing.T) {
	engine := NewEngine(&fakeApps{apps: sampleApps()}, &recordingCompleter{text: `["Filters"]`}, nil, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo"), "us")

	assert.True(t, result.Degraded)
	assert.Equal(t, []string{FailedComplaint}, result.UserComplaints)
}

func TestAnalyzeClusterGap_EnrichmentFailureIsIgnored(t *testing.T) {
	completer := &recordingCompleter{text: `{"gaps":[]}`}
	provider := &fakeEnrichment{err: errors.New("timeout")}
	engine := NewEngine(&fakeApps{apps: sampleApps()}, completer, provider, nil)

	result := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo"), "us")

	assert.False(t, result.Degraded)
	require.Len(t, completer.requests, 1)
	assert.NotContains(t, completer.requests[0].User, EnrichmentHeading)
}

func TestAnalyzeTopClusters_OrdersAndLimits(t *testing.T) {
	completer := &recordingCompleter{text: `{}`}
	engine := NewEngine(&fakeApps{apps: sampleApps()}, completer, nil, nil)

	scores := []core.ClusterScore{
		score("a", "Low", 30, "a"),
		score("b", "High", 90, "b"),
		score("c", "Mid", 60, "c"),
		score("d", "Lowest", 10, "d"),
	}

	results, err := engine.AnalyzeTopClusters(context.Background(), scores, "us", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{results[0].ClusterID, results[1].ClusterID, results[2].ClusterID})
	assert.Len(t, completer.requests, 3)
}

func TestRankByOpportunity_TieBreak(t *testing.T) {
	ranked := RankByOpportunity([]core.ClusterScore{score("z", "Z", 50), score("a", "A", 50), score("m", "M", 70)})
	assert.Equal(t, "m", ranked[0].ID)
	assert.Equal(t, "a", ranked[1].ID)
	assert.Equal(t, "z", ranked[2].ID)
}

func TestAnalyzeClusterGap_OpenBreakerDegrades(t *testing.T) {
	inner := &recordingCompleter{err: &llm.HTTPError{Provider: "anthropic", Status: 529}}
	breaker := llm.NewBreakerClient(inner, llm.BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute})
	apps := &fakeApps{apps: sampleApps()}
	engine := NewEngine(apps, breaker, nil, nil)

	first := engine.AnalyzeClusterGap(context.Background(), score("c1", "Photo", 80, "photo editor"), "us")
	second := engine.AnalyzeClusterGap(context.Background(), score("c2", "Video", 70, "video editor"), "us")

	assert.True(t, first.Degraded)
	assert.True(t, second.Degraded)
	assert.Equal(t, []string{FailedComplaint}, second.UserComplaints)
	assert.Len(t, second.AnalyzedApps, 4)
	assert.Len(t, inner.requests, 1, "open breaker short-circuits the second call")
}
