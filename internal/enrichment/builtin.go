package enrichment

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"appscout/internal/catalog"
	"appscout/internal/logger"
	"appscout/internal/metrics"

	"github.com/goccy/go-json"
)

const (
	defaultMaxReviews     = 5
	defaultMaxPosts       = 5
	maxReviewChars        = 300
	maxPostChars          = 400
	maxWebsiteChars       = 800
	defaultForumBaseURL   = "https://www.reddit.com"
	defaultUserAgent      = "appscout/1.0"
	defaultBuiltinTimeout = 20 * time.Second
)

// Lookuper resolves a catalog listing, used to find developer websites.
type Lookuper interface {
	Lookup(ctx context.Context, id int64, country string) (*catalog.Record, error)
}

// BuiltinConfig configures a BuiltinProvider.
type BuiltinConfig struct {
	CatalogBaseURL string // host serving the customer reviews feed
	ForumBaseURL   string // host serving /search.json
	UserAgent      string
	Timeout        time.Duration
	Lookup         Lookuper // optional; websites are skipped without it
}

// BuiltinProvider gathers enrichment directly from public endpoints.
type BuiltinProvider struct {
	catalogURL string
	forumURL   string
	userAgent  string
	lookup     Lookuper
	client     *http.Client
}

// NewBuiltinProvider creates a BuiltinProvider.
func NewBuiltinProvider(cfg BuiltinConfig) *BuiltinProvider {
	return &BuiltinProvider{
		catalogURL: strings.TrimRight(cmp.Or(cfg.CatalogBaseURL, catalog.DefaultBaseURL), "/"),
		forumURL:   strings.TrimRight(cmp.Or(cfg.ForumBaseURL, defaultForumBaseURL), "/"),
		userAgent:  cmp.Or(cfg.UserAgent, defaultUserAgent),
		lookup:     cfg.Lookup,
		client:     &http.Client{Timeout: cmp.Or(cfg.Timeout, defaultBuiltinTimeout)},
	}
}

type reviewFeed struct {
	Feed struct {
		Entry []reviewEntry `json:"entry"`
	} `json:"feed"`
}

type label struct {
	Label string `json:"label"`
}

type reviewEntry struct {
	Title   label `json:"title"`
	Content label `json:"content"`
	Rating  label `json:"im:rating"`
}

type forumListing struct {
	Data struct {
		Children []struct {
			Data forumPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type forumPost struct {
	Title       string `json:"title"`
	Selftext    string `json:"selftext"`
	Subreddit   string `json:"subreddit"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
}

// GetEnrichmentForPrompt collects every requested source. A failing source
// is logged and left out; an error is returned only when ctx is done.
func (p *BuiltinProvider) GetEnrichmentForPrompt(ctx context.Context, req Request) (string, error) {
	country := cmp.Or(req.Country, catalog.DefaultCountry)
	var sections []string

	if req.Options.IncludeReviews && len(req.AppStoreIDs) > 0 {
		if s := p.reviewsSection(ctx, req.AppStoreIDs, country, cmp.Or(req.Options.MaxReviewsPerApp, defaultMaxReviews)); s != "" {
			sections = append(sections, s)
		}
	}
	if req.Options.IncludeReddit && len(req.Keywords) > 0 {
		if s := p.forumSection(ctx, req.Keywords, cmp.Or(req.Options.MaxRedditPosts, defaultMaxPosts)); s != "" {
			sections = append(sections, s)
		}
	}
	if req.Options.IncludeWebsites && p.lookup != nil && len(req.AppStoreIDs) > 0 {
		if s := p.websitesSection(ctx, req.AppStoreIDs, country); s != "" {
			sections = append(sections, s)
		}
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordEnrichment("error")
		return "", err
	}

	text := strings.Join(sections, "\n\n")
	metrics.RecordEnrichment(resultLabel(text))
	return text, nil
}

func (p *BuiltinProvider) reviewsSection(ctx context.Context, ids []int64, country string, perApp int) string {
	var sb strings.Builder
	for _, id := range ids {
		endpoint := fmt.Sprintf("%s/%s/rss/customerreviews/id=%d/sortBy=mostRecent/json", p.catalogURL, country, id)
		var feed reviewFeed
		if err := p.getJSON(ctx, endpoint, &feed); err != nil {
			logger.Warn("Review feed unavailable", "app_id", id, "error", err)
			continue
		}
		count := 0
		for _, e := range feed.Feed.Entry {
			if count >= perApp {
				break
			}
			// The first entry of older feeds describes the app itself.
			if e.Content.Label == "" {
				continue
			}
			fmt.Fprintf(&sb, "- [app %d] %s stars, %q: %s\n", id, cmp.Or(e.Rating.Label, "?"), e.Title.Label, truncate(oneLine(e.Content.Label), maxReviewChars))
			count++
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "App Store reviews:\n" + strings.TrimRight(sb.String(), "\n")
}

func (p *BuiltinProvider) forumSection(ctx context.Context, keywords []string, maxPosts int) string {
	var sb strings.Builder
	seen := make(map[string]struct{})
	total := 0
	for _, kw := range keywords {
		if total >= maxPosts {
			break
		}
		params := url.Values{}
		params.Set("q", kw)
		params.Set("limit", strconv.Itoa(maxPosts))
		params.Set("sort", "relevance")

		var listing forumListing
		if err := p.getJSON(ctx, p.forumURL+"/search.json?"+params.Encode(), &listing); err != nil {
			logger.Warn("Forum search unavailable", "keyword", kw, "error", err)
			continue
		}
		for _, child := range listing.Data.Children {
			if total >= maxPosts {
				break
			}
			post := child.Data
			if _, dup := seen[post.Title]; dup || post.Title == "" {
				continue
			}
			seen[post.Title] = struct{}{}
			fmt.Fprintf(&sb, "- r/%s %q (%d points, %d comments)", post.Subreddit, post.Title, post.Score, post.NumComments)
			if body := strings.TrimSpace(post.Selftext); body != "" {
				sb.WriteString(": " + truncate(oneLine(body), maxPostChars))
			}
			sb.WriteString("\n")
			total++
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "Forum discussions:\n" + strings.TrimRight(sb.String(), "\n")
}

func (p *BuiltinProvider) websitesSection(ctx context.Context, ids []int64, country string) string {
	var sb strings.Builder
	for _, id := range ids {
		record, err := p.lookup.Lookup(ctx, id, country)
		if err != nil || record.SellerURL == "" {
			continue
		}
		title, text, err := p.fetchPage(ctx, record.SellerURL)
		if err != nil {
			logger.Warn("Developer website unavailable", "url", record.SellerURL, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", cmp.Or(title, record.TrackName), record.SellerURL, oneLine(text))
	}
	if sb.Len() == 0 {
		return ""
	}
	return "Developer websites:\n" + strings.TrimRight(sb.String(), "\n")
}

func (p *BuiltinProvider) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	return req, nil
}

func (p *BuiltinProvider) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := p.newRequest(ctx, endpoint)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *BuiltinProvider) fetchPage(ctx context.Context, pageURL string) (string, string, error) {
	req, err := p.newRequest(ctx, pageURL)
	if err != nil {
		return "", "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status code %d", resp.StatusCode)
	}
	return pageText(resp.Body, maxWebsiteChars)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
