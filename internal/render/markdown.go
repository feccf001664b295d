package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"appscout/internal/catalog"
	"appscout/internal/core"
)

// SessionReport renders a full session as a markdown document.
func SessionReport(session *core.Session) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# App Opportunity Report - %s\n\n", session.CreatedAt.UTC().Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("- **Session:** `%s`\n", session.ID))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", session.Status))
	sb.WriteString(fmt.Sprintf("- **Storefront:** %s\n", strings.ToUpper(session.Country)))
	sb.WriteString(fmt.Sprintf("- **Keywords:** %d, **Clusters:** %d\n", len(session.Keywords), len(session.Clusters)))
	if session.Error != "" {
		sb.WriteString(fmt.Sprintf("- **Error:** %s\n", session.Error))
	}
	sb.WriteString("\n")

	if len(session.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		sb.WriteString(Recommendations(session.Recommendations, 3))
	}
	if len(session.GapAnalyses) > 0 {
		sb.WriteString("## Market Gaps\n\n")
		sb.WriteString(GapAnalyses(session.GapAnalyses, 3))
	}
	if len(session.Clusters) > 0 {
		sb.WriteString("## Keyword Clusters\n\n")
		sb.WriteString(Clusters(session.Clusters))
	}
	return sb.String()
}

// Clusters renders clusters as a markdown list.
func Clusters(clusters []core.Cluster) string {
	if len(clusters) == 0 {
		return "No clusters.\n\n"
	}
	var sb strings.Builder
	for i, c := range clusters {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%d keywords) - %s\n", i+1, c.Name, c.KeywordCount, c.Theme))
		sb.WriteString(fmt.Sprintf("   - id: `%s`\n", c.ID))
		sb.WriteString(fmt.Sprintf("   - %s\n", strings.Join(c.Keywords, ", ")))
	}
	sb.WriteString("\n")
	return sb.String()
}

// GapAnalyses renders gap analyses, headed at the given level.
func GapAnalyses(analyses []core.GapAnalysis, level int) string {
	heading := strings.Repeat("#", level)
	var sb strings.Builder
	for _, a := range analyses {
		sb.WriteString(fmt.Sprintf("%s %s\n\n", heading, a.ClusterName))
		if a.Degraded {
			sb.WriteString("*Partial result: the model did not return a usable analysis.*\n\n")
		}
		writeBullets(&sb, "Existing features", a.ExistingFeatures)
		writeBullets(&sb, "User complaints", a.UserComplaints)
		writeBullets(&sb, "Gaps", a.Gaps)
		sb.WriteString(fmt.Sprintf("**Monetization:** %s\n\n", a.MonetizationInsights))

		if len(a.AnalyzedApps) > 0 {
			sb.WriteString("| App | Rating | Reviews | Price | Subscription |\n")
			sb.WriteString("|---|---|---|---|---|\n")
			for _, app := range a.AnalyzedApps {
				sub := "no"
				if app.HasSubscription {
					sub = "yes"
				}
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
					escapeCell(app.Name), catalog.FormatRating(app.Rating), app.ReviewCount, catalog.FormatPrice(app.Price), sub))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Recommendations renders recommendations in the given order.
func Recommendations(recs []core.Recommendation, level int) string {
	heading := strings.Repeat("#", level)
	var sb strings.Builder
	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("%s %d. %s (%.0f/100)\n\n", heading, i+1, r.ClusterName, r.OpportunityScore))
		sb.WriteString(fmt.Sprintf("**%s**\n\n", r.Headline))
		if r.Fallback {
			sb.WriteString("*Generated from partial data.*\n\n")
		}
		writeBullets(&sb, "Why", r.Reasoning)
		sb.WriteString(fmt.Sprintf("- **Demand:** %s\n", r.CombinedSearchVolume))
		sb.WriteString(fmt.Sprintf("- **Competition:** %s\n", r.CompetitionSummary))
		sb.WriteString(fmt.Sprintf("- **Primary gap:** %s\n", r.PrimaryGap))
		sb.WriteString(fmt.Sprintf("- **Monetization:** %s\n", r.SuggestedMonetization))
		sb.WriteString(fmt.Sprintf("- **MVP scope:** %s\n", r.MVPScope))
		sb.WriteString(fmt.Sprintf("- **Differentiator:** %s\n\n", r.Differentiator))
	}
	return sb.String()
}

func writeBullets(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("**%s:**\n\n", title))
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// WriteReportToFile writes content to outputDir/filename, creating the directory.
func WriteReportToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "reports"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}
	return filePath, nil
}
