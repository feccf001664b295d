package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appscout/internal/core"
)

func sampleSession() *core.Session {
	rating := 4.25
	session := core.NewSession("us", []core.DiscoveredKeyword{{Term: "habit tracker"}})
	session.Status = core.StatusComplete
	session.Clusters = []core.Cluster{core.NewCluster("Habit Tracking", []string{"habit tracker", "streaks"}, "Build routines")}
	session.GapAnalyses = []core.GapAnalysis{{
		ClusterID:            session.Clusters[0].ID,
		ClusterName:          "Habit Tracking",
		ExistingFeatures:     []string{"Reminders"},
		UserComplaints:       []string{"Paywall | everywhere"},
		Gaps:                 []string{"Apple Watch widgets"},
		MonetizationInsights: "Subscriptions",
		AnalyzedApps: []core.AnalyzedApp{
			{Name: "Streaks", Rating: &rating, ReviewCount: 3000, Price: 4.99},
			{Name: "Habit|Bull", ReviewCount: 10, HasSubscription: true},
		},
	}}
	session.Recommendations = []core.Recommendation{{
		ClusterName:      "Habit Tracking",
		Headline:         "A widget-first habit tracker",
		Reasoning:        []string{"Complaints about paywalls"},
		PrimaryGap:       "Apple Watch widgets",
		OpportunityScore: 72.4,
		Fallback:         true,
	}}
	return session
}

func TestSessionReport(t *testing.T) {
	report := SessionReport(sampleSession())

	for _, want := range []string{
		"# App Opportunity Report - ",
		"**Storefront:** US",
		"## Recommendations",
		"### 1. Habit Tracking (72/100)",
		"**A widget-first habit tracker**",
		"*Generated from partial data.*",
		"## Market Gaps",
		"| Streaks | 4.2 | 3000 | $4.99 | no |",
		"| Habit\\|Bull | N/A | 10 | Free | yes |",
		"## Keyword Clusters",
		"1. **Habit Tracking** (2 keywords) - Build routines",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
}

func TestSessionReport_EmptySessionOmitsSections(t *testing.T) {
	session := core.NewSession("gb", nil)
	session.Error = "clustering failed"
	report := SessionReport(session)

	if strings.Contains(report, "## Recommendations") || strings.Contains(report, "## Market Gaps") {
		t.Errorf("empty session should not render sections:\n%s", report)
	}
	if !strings.Contains(report, "**Error:** clustering failed") {
		t.Errorf("expected error line:\n%s", report)
	}
}

func TestHTMLPage(t *testing.T) {
	page, err := HTMLPage("Report <1>", "# Title\n\n[link](https://example.com)")
	if err != nil {
		t.Fatalf("HTMLPage failed: %v", err)
	}
	if !strings.Contains(page, "<title>Report &lt;1&gt;</title>") {
		t.Errorf("title should be escaped: %s", page)
	}
	if !strings.Contains(page, `<h1 id="title">Title</h1>`) {
		t.Errorf("markdown heading not rendered: %s", page)
	}
	if !strings.Contains(page, `target="_blank"`) {
		t.Errorf("external links should open in a new tab: %s", page)
	}
	if Markdown("") != "" {
		t.Error("empty markdown should render empty")
	}
}

func TestTerminal(t *testing.T) {
	session := sampleSession()
	term := NewTerminal(0)

	out := term.Recommendations(session.Recommendations)
	if !strings.Contains(out, "Habit Tracking") || !strings.Contains(out, "72/100") {
		t.Errorf("recommendation card missing content:\n%s", out)
	}
	if !strings.Contains(term.Clusters(session.Clusters), "streaks") {
		t.Error("cluster card should list keywords")
	}
	if !strings.Contains(term.GapAnalyses(session.GapAnalyses), "Apple Watch widgets") {
		t.Error("gap card should list gaps")
	}
	if !strings.Contains(term.Clusters(nil), "No clusters.") {
		t.Error("empty clusters should say so")
	}
}

func TestWriteReportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := WriteReportToFile("# hi\n", dir, "report.md")
	if err != nil {
		t.Fatalf("WriteReportToFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# hi\n" {
		t.Errorf("unexpected file content %q (%v)", data, err)
	}
}
