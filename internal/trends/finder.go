package trends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	conciter "github.com/sourcegraph/conc/iter"
)

// ErrInvalidMaxResults is returned when maxResults is not positive.
var ErrInvalidMaxResults = errors.New("maxResults must be positive")

// Result is a ranked list together with statistics about the run that
// produced it.
type Result struct {
	Query        string
	Trends       RankedTrendList
	Articles     int
	Clusters     int
	Chunks       int
	FailedChunks int
	Duration     time.Duration
}

// Finder runs the full pipeline from search adapters to a ranked list.
type Finder struct {
	adapters  []SourceAdapter
	enricher  Enricher
	stopWords StopWords
	chunkSize int
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Finder.
type Option func(*Finder)

// WithStopWords replaces DefaultStopWords.
func WithStopWords(s StopWords) Option {
	return func(f *Finder) { f.stopWords = s }
}

// WithChunkSize sets the number of clusters per enrichment call.
func WithChunkSize(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Finder) { f.logger = l }
}

// WithClock sets the clock used for articles without a usable date.
func WithClock(now func() time.Time) Option {
	return func(f *Finder) { f.now = now }
}

// NewFinder creates a Finder over the given adapters and enricher.
func NewFinder(adapters []SourceAdapter, enricher Enricher, opts ...Option) *Finder {
	f := &Finder{
		adapters:  adapters,
		enricher:  enricher,
		stopWords: DefaultStopWords,
		chunkSize: DefaultChunkSize,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindTrends returns the ranked trends for query.
func (f *Finder) FindTrends(ctx context.Context, query string, maxResults int) (RankedTrendList, error) {
	res, err := f.Find(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return res.Trends, nil
}

// Find runs ingestion, grouping, enrichment and ranking. Enrichment chunks
// run concurrently and their output is joined in submission order before
// ranking. Failed chunks are logged and skipped, so a run in which every
// chunk fails yields an empty list. If ctx is done before ranking, Find
// returns ctx.Err() and no trends.
func (f *Finder) Find(ctx context.Context, query string, maxResults int) (*Result, error) {
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxResults, maxResults)
	}
	if f.enricher == nil {
		return nil, errors.New("no enricher configured")
	}

	start := f.now()
	res := &Result{Query: query}

	articles := Ingest(ctx, query, f.adapters, start, f.logger)
	res.Articles = len(articles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := GroupArticles(articles, f.stopWords)
	res.Clusters = len(clusters)

	chunks := ChunkClusters(clusters, f.chunkSize)
	res.Chunks = len(chunks)
	f.logger.Info().Str("query", query).Int("articles", res.Articles).
		Int("clusters", res.Clusters).Int("chunks", res.Chunks).Msg("enriching clusters")

	results := conciter.Map(chunks, func(chunk *[]TrendCluster) EnrichmentResult {
		return f.enrichChunk(ctx, *chunk)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var enriched []EnrichedTrend
	for i, r := range results {
		if !r.OK() {
			res.FailedChunks++
			f.logger.Warn().Int("chunk", i).Err(r.Reason()).Msg("enrichment chunk failed")
			continue
		}
		enriched = append(enriched, r.Trends()...)
	}

	res.Trends = Rank(sanitize(enriched), f.stopWords, maxResults)
	if res.Trends == nil {
		res.Trends = RankedTrendList{}
	}
	res.Duration = f.now().Sub(start)

	f.logger.Info().Str("query", query).Int("trends", len(res.Trends)).
		Int("failed_chunks", res.FailedChunks).Msg("ranking complete")
	return res, nil
}

func (f *Finder) enrichChunk(ctx context.Context, chunk []TrendCluster) (result EnrichmentResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Errorf("enricher panicked: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}
	return f.enricher.Enrich(ctx, chunk)
}

// sanitize enforces the relevance range, known categories and the sources
// cap on enricher output.
func sanitize(trends []EnrichedTrend) []EnrichedTrend {
	for i := range trends {
		trends[i].Relevance = ClampRelevance(trends[i].Relevance)
		trends[i].Category = ParseCategory(string(trends[i].Category))
		if len(trends[i].Sources) > MaxSources {
			trends[i].Sources = trends[i].Sources[:MaxSources]
		}
	}
	return trends
}
