package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"appscout/internal/logger"
	"appscout/internal/metrics"

	"github.com/goccy/go-json"
)

// DefaultBaseURL is the public catalog search host.
const DefaultBaseURL = "https://itunes.apple.com"

// ErrNotFound is returned by Lookup when the catalog has no such listing.
var ErrNotFound = errors.New("catalog listing not found")

// Record is one raw catalog listing as returned by the search endpoint.
type Record struct {
	TrackID           int64    `json:"trackId"`
	TrackName         string   `json:"trackName"`
	AverageUserRating *float64 `json:"averageUserRating"`
	UserRatingCount   int      `json:"userRatingCount"`
	ArtworkURL100     string   `json:"artworkUrl100"`
	Price             float64  `json:"price"`
	Description       string   `json:"description"`
	FormattedPrice    string   `json:"formattedPrice"`
	SellerURL         string   `json:"sellerUrl"`
	PrimaryGenreName  string   `json:"primaryGenreName"`
}

type searchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Record `json:"results"`
}

// StatusError is a non-success status from the catalog API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog request failed with status: %d", e.Status)
}

// Searcher searches the app catalog.
type Searcher interface {
	Search(ctx context.Context, term, country string, limit int) ([]Record, error)
}

// Client talks to the catalog search and lookup endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a catalog client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Search runs GET /search?term=&country=&entity=software&limit=.
func (c *Client) Search(ctx context.Context, term, country string, limit int) ([]Record, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("country", country)
	params.Set("entity", "software")
	params.Set("limit", strconv.Itoa(limit))

	start := time.Now()
	records, err := c.get(ctx, "/search?"+params.Encode())
	duration := time.Since(start)

	var statusErr *StatusError
	switch {
	case err == nil:
		metrics.RecordCatalogRequest("ok", duration)
		logger.Debug("Catalog search completed", "term", term, "country", country, "results_found", len(records))
	case errors.As(err, &statusErr):
		metrics.RecordCatalogRequest("http_error", duration)
	default:
		metrics.RecordCatalogRequest("error", duration)
	}
	return records, err
}

// Lookup fetches a single listing by catalog id.
func (c *Client) Lookup(ctx context.Context, id int64, country string) (*Record, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))
	params.Set("country", country)

	records, err := c.get(ctx, "/lookup?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func (c *Client) get(ctx context.Context, path string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	return parsed.Results, nil
}
