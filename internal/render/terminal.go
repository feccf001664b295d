package render

import (
	"fmt"
	"strings"

	"appscout/internal/core"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	scoreStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1)
	defaultWidth = 80
)

// Terminal renders styled output for the CLI. Width 0 uses 80 columns.
type Terminal struct {
	width int
}

// NewTerminal creates a Terminal renderer.
func NewTerminal(width int) *Terminal {
	if width <= 0 {
		width = defaultWidth
	}
	return &Terminal{width: width}
}

func (t *Terminal) card(content string) string {
	return cardStyle.Width(t.width - 2).Render(content)
}

// Clusters renders one card per cluster.
func (t *Terminal) Clusters(clusters []core.Cluster) string {
	if len(clusters) == 0 {
		return mutedStyle.Render("No clusters.")
	}
	cards := make([]string, 0, len(clusters))
	for _, c := range clusters {
		body := fmt.Sprintf("%s %s\n%s\n%s",
			titleStyle.Render(c.Name),
			mutedStyle.Render(fmt.Sprintf("(%d keywords, id %s)", c.KeywordCount, c.ID)),
			c.Theme,
			strings.Join(c.Keywords, ", "))
		cards = append(cards, t.card(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// GapAnalyses renders one card per analysis.
func (t *Terminal) GapAnalyses(analyses []core.GapAnalysis) string {
	if len(analyses) == 0 {
		return mutedStyle.Render("No gap analyses.")
	}
	cards := make([]string, 0, len(analyses))
	for _, a := range analyses {
		var sb strings.Builder
		sb.WriteString(titleStyle.Render(a.ClusterName))
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d apps analyzed", len(a.AnalyzedApps))))
		if a.Degraded {
			sb.WriteString(" " + warnStyle.Render("partial"))
		}
		sb.WriteString("\n")
		writeSection(&sb, "Features", a.ExistingFeatures)
		writeSection(&sb, "Complaints", a.UserComplaints)
		writeSection(&sb, "Gaps", a.Gaps)
		sb.WriteString("Monetization: " + a.MonetizationInsights)
		cards = append(cards, t.card(sb.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// Recommendations renders one card per recommendation.
func (t *Terminal) Recommendations(recs []core.Recommendation) string {
	if len(recs) == 0 {
		return mutedStyle.Render("No recommendations.")
	}
	cards := make([]string, 0, len(recs))
	for i, r := range recs {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			titleStyle.Render(fmt.Sprintf("%d. %s", i+1, r.ClusterName)),
			scoreStyle.Render(fmt.Sprintf("%.0f/100", r.OpportunityScore)),
			fallbackBadge(r.Fallback)))
		sb.WriteString(r.Headline + "\n")
		writeSection(&sb, "Why", r.Reasoning)
		sb.WriteString("Primary gap: " + r.PrimaryGap + "\n")
		sb.WriteString("Monetization: " + r.SuggestedMonetization + "\n")
		sb.WriteString("MVP: " + r.MVPScope + "\n")
		sb.WriteString("Differentiator: " + r.Differentiator)
		cards = append(cards, t.card(sb.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func fallbackBadge(fallback bool) string {
	if !fallback {
		return ""
	}
	return warnStyle.Render("partial")
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	for _, item := range items {
		sb.WriteString("  • " + item + "\n")
	}
}
