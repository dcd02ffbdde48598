package trends

import (
	"context"
	"errors"
)

// DefaultChunkSize is the number of clusters sent per enrichment call.
const DefaultChunkSize = 15

// Enricher turns a chunk of clusters into enriched trends. Implementations
// report failure through the result rather than an error return; a failed
// chunk contributes nothing to the ranking.
type Enricher interface {
	Enrich(ctx context.Context, chunk []TrendCluster) EnrichmentResult
}

// EnrichmentResult is either a success carrying zero or more trends or a
// failure carrying a reason.
type EnrichmentResult struct {
	trends []EnrichedTrend
	reason error
}

// Succeeded wraps the trends produced for a chunk.
func Succeeded(trends []EnrichedTrend) EnrichmentResult {
	return EnrichmentResult{trends: trends}
}

// Failed records why a chunk produced no trends.
func Failed(reason error) EnrichmentResult {
	if reason == nil {
		reason = errors.New("enrichment failed")
	}
	return EnrichmentResult{reason: reason}
}

// OK reports whether the chunk succeeded.
func (r EnrichmentResult) OK() bool { return r.reason == nil }

// Trends returns the trends of a successful result, nil otherwise.
func (r EnrichmentResult) Trends() []EnrichedTrend {
	if !r.OK() {
		return nil
	}
	return r.trends
}

// Reason returns the failure cause, nil for a success.
func (r EnrichmentResult) Reason() error { return r.reason }

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, chunk []TrendCluster) EnrichmentResult

// Enrich calls f.
func (f EnricherFunc) Enrich(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
	return f(ctx, chunk)
}
