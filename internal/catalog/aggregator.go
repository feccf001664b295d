package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"appscout/internal/core"
	"appscout/internal/logger"
	"appscout/internal/stage"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxKeywords is how many cluster keywords are searched.
	DefaultMaxKeywords = 3
	// DefaultResultsPerKeyword is the per-search result limit.
	DefaultResultsPerKeyword = 10
	// DefaultTopN is how many apps survive ranking.
	DefaultTopN = 10
	// DefaultCountry is used when no storefront is given.
	DefaultCountry = "us"
)

// Options tunes an Aggregator. Zero values take the defaults above.
type Options struct {
	MaxKeywords       int
	ResultsPerKeyword int
	TopN              int
	CacheSize         int // 0 disables the search cache
	Pacer             stage.Pacer
}

// Aggregator collects the most-reviewed competing apps for a set of keywords.
type Aggregator struct {
	searcher    Searcher
	pacer       stage.Pacer
	cache       *lru.Cache[string, []Record]
	maxKeywords int
	perKeyword  int
	topN        int
}

// NewAggregator wires a searcher with pacing and an optional LRU cache.
func NewAggregator(searcher Searcher, opts Options) *Aggregator {
	a := &Aggregator{
		searcher:    searcher,
		pacer:       opts.Pacer,
		maxKeywords: cmp.Or(opts.MaxKeywords, DefaultMaxKeywords),
		perKeyword:  cmp.Or(opts.ResultsPerKeyword, DefaultResultsPerKeyword),
		topN:        cmp.Or(opts.TopN, DefaultTopN),
	}
	if a.pacer == nil {
		a.pacer = stage.NoDelay
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []Record](opts.CacheSize)
		if err != nil {
			logger.Warn("Catalog cache disabled", "size", opts.CacheSize, "error", err)
		} else {
			a.cache = cache
		}
	}
	return a
}

// GetTopAppsForCluster returns up to TopN apps for the cluster's keywords,
// most-reviewed first. Lookup failures are logged and skipped; it never fails.
func (a *Aggregator) GetTopAppsForCluster(ctx context.Context, keywords []string, country string) []core.AnalyzedApp {
	records := a.TopRecords(ctx, keywords, country)
	apps := make([]core.AnalyzedApp, 0, len(records))
	for _, r := range records {
		apps = append(apps, ToAnalyzedApp(r))
	}
	return apps
}

// TopRecords is GetTopAppsForCluster without normalization.
func (a *Aggregator) TopRecords(ctx context.Context, keywords []string, country string) []Record {
	if country == "" {
		country = DefaultCountry
	}
	if len(keywords) > a.maxKeywords {
		keywords = keywords[:a.maxKeywords]
	}

	seen := make(map[int64]struct{})
	var all []Record
	for _, keyword := range keywords {
		records, ok := a.search(ctx, keyword, country)
		if !ok {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		for _, r := range records {
			if _, dup := seen[r.TrackID]; dup {
				continue
			}
			seen[r.TrackID] = struct{}{}
			all = append(all, r)
		}
	}

	slices.SortStableFunc(all, func(x, y Record) int {
		if c := cmp.Compare(y.UserRatingCount, x.UserRatingCount); c != 0 {
			return c
		}
		return cmp.Compare(x.TrackID, y.TrackID)
	})
	if len(all) > a.topN {
		all = all[:a.topN]
	}
	if all == nil {
		all = []Record{}
	}
	return all
}

func (a *Aggregator) search(ctx context.Context, keyword, country string) ([]Record, bool) {
	key := cacheKey(country, keyword)
	if a.cache != nil {
		if records, ok := a.cache.Get(key); ok {
			logger.Debug("Catalog cache hit", "term", keyword, "country", country)
			return records, true
		}
	}

	if err := a.pacer.Wait(ctx); err != nil {
		logger.Warn("Catalog search cancelled", "term", keyword, "error", err)
		return nil, false
	}

	records, err := a.searcher.Search(ctx, keyword, country, a.perKeyword)
	if err != nil {
		logger.Error("Catalog search failed", err, "term", keyword, "country", country)
		return nil, false
	}
	if a.cache != nil {
		a.cache.Add(key, records)
	}
	return records, true
}

func cacheKey(country, term string) string {
	return country + "|" + strings.ToLower(strings.TrimSpace(term))
}
