package pipeline

import (
	"context"
	"fmt"
	"time"

	"appscout/internal/catalog"
	"appscout/internal/clustering"
	"appscout/internal/config"
	"appscout/internal/enrichment"
	"appscout/internal/gap"
	"appscout/internal/llm"
	"appscout/internal/recommend"
	"appscout/internal/stage"
)

// Engines bundles the stage engines wired from configuration.
type Engines struct {
	Clustering *clustering.Engine
	Gap        *gap.Engine
	Recommend  *recommend.Engine
	Aggregator *catalog.Aggregator
	Country    string
	TopN       int
}

// Builder wires engines from configuration. Collaborators can be overridden
// before Build, which is how tests inject fakes.
type Builder struct {
	cfg        *config.Config
	completer  llm.Completer
	searcher   catalog.Searcher
	enrichment enrichment.Provider
	noEnrich   bool
	saver      SessionSaver
}

// NewBuilder creates a Builder for cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithCompleter overrides the LLM client built from configuration.
func (b *Builder) WithCompleter(c llm.Completer) *Builder {
	b.completer = c
	return b
}

// WithSearcher overrides the catalog client built from configuration.
func (b *Builder) WithSearcher(s catalog.Searcher) *Builder {
	b.searcher = s
	return b
}

// WithEnrichment overrides the configured enrichment provider.
func (b *Builder) WithEnrichment(p enrichment.Provider) *Builder {
	b.enrichment = p
	return b
}

// WithoutEnrichment disables enrichment regardless of configuration.
func (b *Builder) WithoutEnrichment() *Builder {
	b.noEnrich = true
	return b
}

// WithSaver sets where sessions are persisted.
func (b *Builder) WithSaver(s SessionSaver) *Builder {
	b.saver = s
	return b
}

// Engines builds the stage engines.
func (b *Builder) Engines(ctx context.Context) (*Engines, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	completer := b.completer
	if completer == nil {
		var err error
		completer, err = llm.NewFromConfig(ctx, b.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	catalogCfg := b.cfg.Catalog
	client := catalog.NewClient(catalogCfg.BaseURL, config.Duration(catalogCfg.Timeout, 15*time.Second))
	searcher := b.searcher
	if searcher == nil {
		searcher = client
	}
	aggregator := catalog.NewAggregator(searcher, catalog.Options{
		MaxKeywords:       catalogCfg.MaxKeywords,
		ResultsPerKeyword: catalogCfg.ResultsPerKeyword,
		TopN:              catalogCfg.TopN,
		CacheSize:         catalogCfg.CacheSize,
		Pacer:             stage.NewPacer(config.Duration(catalogCfg.Delay, 200*time.Millisecond)),
	})

	var provider enrichment.Provider
	switch {
	case b.noEnrich:
	case b.enrichment != nil:
		provider = b.enrichment
	default:
		provider = enrichment.NewFromConfig(b.cfg, client)
	}

	llmPacer := stage.NewPacer(config.Duration(b.cfg.Pipeline.LLMDelay, 500*time.Millisecond))

	return &Engines{
		Clustering: clustering.NewEngine(completer),
		Gap:        gap.NewEngine(aggregator, completer, provider, llmPacer),
		Recommend:  recommend.NewEngine(completer, provider, llmPacer),
		Aggregator: aggregator,
		Country:    catalogCfg.Country,
		TopN:       b.cfg.Pipeline.TopN,
	}, nil
}

// Build returns a Runner over freshly wired engines.
func (b *Builder) Build(ctx context.Context) (*Runner, *Engines, error) {
	engines, err := b.Engines(ctx)
	if err != nil {
		return nil, nil, err
	}
	return NewRunner(engines.Clustering, engines.Gap, engines.Recommend, b.saver), engines, nil
}
