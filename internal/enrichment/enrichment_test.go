package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"appscout/internal/catalog"
	"appscout/internal/config"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteProvider_PostsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/enrichment/prompt", r.URL.Path)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{1, 2}, req.AppStoreIDs)
		assert.Equal(t, "us", req.Country)
		assert.True(t, req.Options.IncludeReviews)
		assert.False(t, req.Options.IncludeWebsites)

		fmt.Fprint(w, `{"text":"  Users hate the ads.  "}`)
	}))
	defer server.Close()

	p := NewRemoteProvider(server.URL+"/", 0)
	text, err := p.GetEnrichmentForPrompt(context.Background(), Request{
		AppStoreIDs: []int64{1, 2},
		Keywords:    []string{"budget"},
		Country:     "us",
		Options:     GapOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Users hate the ads.", text)
}

func TestRemoteProvider_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewRemoteProvider(server.URL, 0).GetEnrichmentForPrompt(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type staticLookup map[int64]*catalog.Record

func (s staticLookup) Lookup(_ context.Context, id int64, _ string) (*catalog.Record, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, catalog.ErrNotFound
}

func TestBuiltinProvider_AllSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/us/rss/customerreviews/id=7/sortBy=mostRecent/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"feed":{"entry":[
			{"title":{"label":"Too many ads"},"content":{"label":"Ads after every photo."},"im:rating":{"label":"2"}},
			{"title":{"label":"Great"},"content":{"label":"Love it"},"im:rating":{"label":"5"}}
		]}}`)
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "photo editor", r.URL.Query().Get("q"))
		assert.Equal(t, "appscout-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"data":{"children":[{"data":{"title":"Best editor without subscription?","selftext":"Looking for one-time purchase","subreddit":"photography","score":42,"num_comments":17}}]}}`)
	})
	mux.HandleFunc("/site", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Snap Studio</title><script>var x;</script></head>
			<body><nav>Menu</nav><main><h1>Edit faster</h1><p>Batch filters for creators.</p></main></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := NewBuiltinProvider(BuiltinConfig{
		CatalogBaseURL: server.URL,
		ForumBaseURL:   server.URL,
		UserAgent:      "appscout-test",
		Lookup:         staticLookup{7: {TrackID: 7, TrackName: "Snap", SellerURL: server.URL + "/site"}},
	})

	opts := RecommendationOptions()
	opts.MaxReviewsPerApp = 1
	text, err := p.GetEnrichmentForPrompt(context.Background(), Request{
		AppStoreIDs: []int64{7},
		Keywords:    []string{"photo editor"},
		Country:     "us",
		Options:     opts,
	})
	require.NoError(t, err)

	assert.Contains(t, text, "App Store reviews:")
	assert.Contains(t, text, "Ads after every photo.")
	assert.NotContains(t, text, "Love it")
	assert.Contains(t, text, "Forum discussions:")
	assert.Contains(t, text, "r/photography")
	assert.Contains(t, text, "Developer websites:")
	assert.Contains(t, text, "Snap Studio")
	assert.Contains(t, text, "Batch filters for creators.")
	assert.NotContains(t, text, "Menu")
}

func TestBuiltinProvider_FailingSourcesYieldEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewBuiltinProvider(BuiltinConfig{CatalogBaseURL: server.URL, ForumBaseURL: server.URL})
	text, err := p.GetEnrichmentForPrompt(context.Background(), Request{
		AppStoreIDs: []int64{1},
		Keywords:    []string{"x"},
		Options:     GapOptions(),
	})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPageText_FallsBackToBody(t *testing.T) {
	html := `<html><body><div><p>First</p></div><footer><p>Legal</p></footer><p>Second</p></body></html>`
	title, text, err := pageText(strings.NewReader(html), 0)
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Equal(t, "First\nSecond", text)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "hé...", truncate("héllo", 2))
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, NewFromConfig(cfg, nil))

	cfg.Enrichment.Mode = "remote"
	cfg.Enrichment.BaseURL = "http://localhost:9"
	assert.IsType(t, &RemoteProvider{}, NewFromConfig(cfg, nil))

	cfg.Enrichment.Mode = "builtin"
	assert.IsType(t, &BuiltinProvider{}, NewFromConfig(cfg, nil))
}
