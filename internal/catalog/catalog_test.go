package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results map[string][]Record
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, term, country string, limit int) ([]Record, error) {
	f.calls = append(f.calls, term)
	if err := f.errs[term]; err != nil {
		return nil, err
	}
	return f.results[term], nil
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func rating(v float64) *float64 { return &v }

func TestTopRecords_SortsByReviewCount(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{
		"photo editor": {
			{TrackID: 1, TrackName: "Small", UserRatingCount: 500},
			{TrackID: 2, TrackName: "Huge", UserRatingCount: 50000},
			{TrackID: 3, TrackName: "Medium", UserRatingCount: 1200},
		},
	}}
	agg := NewAggregator(searcher, Options{})

	records := agg.TopRecords(context.Background(), []string{"photo editor"}, "us")

	require.Len(t, records, 3)
	assert.Equal(t, []int{50000, 1200, 500}, []int{records[0].UserRatingCount, records[1].UserRatingCount, records[2].UserRatingCount})
}

func TestTopRecords_DeduplicatesAcrossKeywords(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{
		"a": {{TrackID: 7, TrackName: "First", UserRatingCount: 10}},
		"b": {{TrackID: 7, TrackName: "Second", UserRatingCount: 99}, {TrackID: 8, UserRatingCount: 5}},
	}}
	agg := NewAggregator(searcher, Options{})

	records := agg.TopRecords(context.Background(), []string{"a", "b"}, "us")

	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].TrackName)
	assert.Equal(t, int64(8), records[1].TrackID)
}

func TestTopRecords_OnlyFirstThreeKeywordsAndTopTen(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{}}
	var id int64
	for _, kw := range []string{"k1", "k2", "k3", "k4"} {
		for i := 0; i < 5; i++ {
			id++
			searcher.results[kw] = append(searcher.results[kw], Record{TrackID: id, UserRatingCount: int(id)})
		}
	}
	agg := NewAggregator(searcher, Options{})

	records := agg.TopRecords(context.Background(), []string{"k1", "k2", "k3", "k4"}, "us")

	assert.Equal(t, []string{"k1", "k2", "k3"}, searcher.calls)
	require.Len(t, records, 10)
	assert.Equal(t, int64(15), records[0].TrackID)
}

func TestTopRecords_TieBreakByTrackID(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{
		"a": {{TrackID: 9, UserRatingCount: 100}, {TrackID: 4, UserRatingCount: 100}},
	}}
	records := NewAggregator(searcher, Options{}).TopRecords(context.Background(), []string{"a"}, "us")
	assert.Equal(t, int64(4), records[0].TrackID)
	assert.Equal(t, int64(9), records[1].TrackID)
}

func TestTopRecords_FailuresYieldEmpty(t *testing.T) {
	searcher := &fakeSearcher{errs: map[string]error{
		"a": &StatusError{Status: 503},
		"b": errors.New("connection reset"),
	}}
	agg := NewAggregator(searcher, Options{})

	records := agg.TopRecords(context.Background(), []string{"a", "b"}, "us")
	assert.NotNil(t, records)
	assert.Empty(t, records)

	assert.Empty(t, agg.TopRecords(context.Background(), nil, "us"))
}

func TestTopRecords_CacheSkipsPacer(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{"Photo": {{TrackID: 1}}}}
	pacer := &countingPacer{}
	agg := NewAggregator(searcher, Options{CacheSize: 8, Pacer: pacer})

	agg.TopRecords(context.Background(), []string{"Photo"}, "us")
	agg.TopRecords(context.Background(), []string{"Photo"}, "us")

	assert.Len(t, searcher.calls, 1)
	assert.Equal(t, 1, pacer.waits)
}

func TestGetTopAppsForCluster_Normalizes(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Record{
		"budget": {{
			TrackID:           42,
			TrackName:         "Budgeter",
			AverageUserRating: rating(4.6),
			UserRatingCount:   1000,
			ArtworkURL100:     "https://example.com/icon.png",
			Description:       "Track spending. Upgrade to Premium for $4.99/month.",
		}},
	}}
	apps := NewAggregator(searcher, Options{}).GetTopAppsForCluster(context.Background(), []string{"budget"}, "")

	require.Len(t, apps, 1)
	assert.Equal(t, int64(42), apps[0].ID)
	assert.Equal(t, "Budgeter", apps[0].Name)
	assert.Equal(t, 4.6, *apps[0].Rating)
	assert.Equal(t, "https://example.com/icon.png", apps[0].Icon)
	assert.True(t, apps[0].HasSubscription)
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "habit tracker", r.URL.Query().Get("term"))
		assert.Equal(t, "gb", r.URL.Query().Get("country"))
		assert.Equal(t, "software", r.URL.Query().Get("entity"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"resultCount":1,"results":[{"trackId":5,"trackName":"Streaks","userRatingCount":300,"price":4.99,"averageUserRating":4.8}]}`)
	}))
	defer server.Close()

	records, err := NewClient(server.URL, 0).Search(context.Background(), "habit tracker", "gb", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Streaks", records[0].TrackName)
	assert.Equal(t, 4.99, records[0].Price)
}

func TestClient_SearchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).Search(context.Background(), "x", "us", 10)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.Status)
}

func TestClient_LookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).Lookup(context.Background(), 1, "us")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasSubscription(t *testing.T) {
	assert.True(t, HasSubscription("Start your FREE TRIAL today"))
	assert.True(t, HasSubscription("Only $2.99 per month"))
	assert.False(t, HasSubscription("A simple one-time purchase calculator"))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Free", FormatPrice(0))
	assert.Equal(t, "$2.99", FormatPrice(2.99))
	assert.Equal(t, "N/A", FormatRating(nil))
	assert.Equal(t, "4.5", FormatRating(rating(4.46)))
}
