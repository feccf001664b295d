package catalog

import (
	"fmt"
	"strings"

	"appscout/internal/core"
)

// subscriptionLexicon marks listings whose description advertises recurring billing.
var subscriptionLexicon = []string{
	"subscription",
	"/month",
	"/year",
	"per month",
	"per year",
	"monthly",
	"yearly",
	"annual",
	"free trial",
	"in-app purchase",
	"premium",
	"pro version",
	"unlock all",
	"upgrade to",
}

// HasSubscription reports whether description mentions any subscription term.
func HasSubscription(description string) bool {
	lower := strings.ToLower(description)
	for _, term := range subscriptionLexicon {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ToAnalyzedApp normalizes a raw record. HasSubscription is derived here once.
func ToAnalyzedApp(r Record) core.AnalyzedApp {
	return core.AnalyzedApp{
		ID:              r.TrackID,
		Name:            r.TrackName,
		Rating:          r.AverageUserRating,
		ReviewCount:     r.UserRatingCount,
		Icon:            r.ArtworkURL100,
		Price:           r.Price,
		FormattedPrice:  r.FormattedPrice,
		Description:     r.Description,
		HasSubscription: HasSubscription(r.Description),
	}
}

// FormatPrice renders a price as "Free" or "$X.XX".
func FormatPrice(price float64) string {
	if price <= 0 {
		return "Free"
	}
	return fmt.Sprintf("$%.2f", price)
}

// FormatRating renders a rating with one decimal, or "N/A" when absent.
func FormatRating(rating *float64) string {
	if rating == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *rating)
}
