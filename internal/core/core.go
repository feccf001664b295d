package core

import "github.com/google/uuid"

// DiscoveredKeyword is a raw search term produced by keyword discovery.
type DiscoveredKeyword struct {
	Term     string  `json:"term"`     // Search term as discovered
	Priority float64 `json:"priority"` // Discovery priority (higher is more relevant)
	Position int     `json:"position"` // Ranking position observed during discovery
}

// Cluster is a named group of related keywords representing one app concept.
type Cluster struct {
	ID           string   `json:"id"`           // Process-local unique identifier
	Name         string   `json:"name"`         // Human-readable cluster name
	Keywords     []string `json:"keywords"`     // Member keywords
	Theme        string   `json:"theme"`        // One-line description of the theme
	KeywordCount int      `json:"keywordCount"` // Always len(Keywords)
}

// NewCluster builds a cluster with a fresh id and a consistent keyword count.
func NewCluster(name string, keywords []string, theme string) Cluster {
	kws := make([]string, len(keywords))
	copy(kws, keywords)
	return Cluster{
		ID:           NewID(),
		Name:         name,
		Keywords:     kws,
		Theme:        theme,
		KeywordCount: len(kws),
	}
}

// NewID returns a fresh identifier for clusters and sessions.
func NewID() string {
	return uuid.NewString()
}

// ClusterScore is a cluster plus the opportunity sub-scores computed upstream.
// It is treated as an immutable input record.
type ClusterScore struct {
	Cluster
	CompetitionGap       float64 `json:"competitionGap"`       // 0-100
	MarketDemand         float64 `json:"marketDemand"`         // 0-100
	RevenuePotential     float64 `json:"revenuePotential"`     // 0-100
	TrendMomentum        float64 `json:"trendMomentum"`        // 0-100
	ExecutionFeasibility float64 `json:"executionFeasibility"` // 0-100
	OpportunityScore     float64 `json:"opportunityScore"`     // Composite 0-100
}

// AnalyzedApp is the normalized view of one catalog listing.
type AnalyzedApp struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Rating          *float64 `json:"rating,omitempty"` // nil when the catalog reports no rating
	ReviewCount     int      `json:"reviewCount"`
	Icon            string   `json:"icon"`
	Price           float64  `json:"price"`
	FormattedPrice  string   `json:"formattedPrice,omitempty"`
	Description     string   `json:"description,omitempty"`
	HasSubscription bool     `json:"hasSubscription"`
}

// GapAnalysis is the synthesized competitive picture for one cluster.
type GapAnalysis struct {
	ClusterID            string        `json:"clusterId"`
	ClusterName          string        `json:"clusterName"`
	ExistingFeatures     []string      `json:"existingFeatures"`
	UserComplaints       []string      `json:"userComplaints"`
	Gaps                 []string      `json:"gaps"`
	MonetizationInsights string        `json:"monetizationInsights"`
	AnalyzedApps         []AnalyzedApp `json:"analyzedApps"`
	Degraded             bool          `json:"degraded,omitempty"` // Placeholder content instead of LLM output
}

// Recommendation is the final, actionable build suggestion for one cluster.
type Recommendation struct {
	ClusterID             string   `json:"clusterId"`
	ClusterName           string   `json:"clusterName"`
	Headline              string   `json:"headline"`
	Reasoning             []string `json:"reasoning"`
	CombinedSearchVolume  string   `json:"combinedSearchVolume"`
	CompetitionSummary    string   `json:"competitionSummary"`
	PrimaryGap            string   `json:"primaryGap"`
	SuggestedMonetization string   `json:"suggestedMonetization"`
	MVPScope              string   `json:"mvpScope"`
	Differentiator        string   `json:"differentiator"`
	OpportunityScore      float64  `json:"opportunityScore"`
	Fallback              bool     `json:"fallback,omitempty"` // Generated without a valid LLM response
}
