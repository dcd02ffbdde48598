package trends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// perClusterEnricher names each trend after its cluster and scores it by
// member count.
func perClusterEnricher(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
	var out []EnrichedTrend
	for _, c := range chunk {
		var sources []SourceRef
		for _, m := range c.Members {
			sources = append(sources, SourceRefFor(m))
		}
		out = append(out, EnrichedTrend{
			Name:      c.RepresentativeTitle,
			Category:  "game result",
			Relevance: c.MemberCount(),
			Sources:   sources,
		})
	}
	return Succeeded(out)
}

func itemsFor(titles ...string) []RawItem {
	var items []RawItem
	for i, title := range titles {
		items = append(items, RawItem{Title: title, URL: fmt.Sprintf("https://news.example/%d", i)})
	}
	return items
}

func fixedClock() time.Time { return ingestNow }

func TestFindTrendsEndToEnd(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor(
		"Lakers beat Celtics in overtime",
		"Messi signs new contract",
		"Celtics lose to Lakers in overtime thriller",
		"Lakers Celtics overtime recap",
		"Lakers overtime win over Celtics",
		"Messi contract extension confirmed",
		"Weather delays cricket final",
	)}

	f := NewFinder([]SourceAdapter{adapter}, EnricherFunc(perClusterEnricher), WithClock(fixedClock))
	list, err := f.FindTrends(context.Background(), "sports", DefaultMaxResults)
	require.NoError(t, err)

	require.Equal(t, []string{
		"Lakers beat Celtics in overtime",
		"Messi signs new contract",
		"Weather delays cricket final",
	}, names(list))

	top := list[0]
	assert.Equal(t, 4, top.Relevance)
	assert.Equal(t, CategoryGameResult, top.Category)
	assert.Len(t, top.Sources, MaxSources)
	assert.Equal(t, "news.example", top.Sources[0].Source)
}

func TestFindRejectsNonPositiveMaxResults(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("x")}
	f := NewFinder([]SourceAdapter{adapter}, EnricherFunc(perClusterEnricher))

	for _, n := range []int{0, -1} {
		_, err := f.Find(context.Background(), "q", n)
		assert.ErrorIs(t, err, ErrInvalidMaxResults)
	}
	assert.Zero(t, adapter.calls, "no work before validation")
}

func TestFindNoArticles(t *testing.T) {
	var calls atomic.Int32
	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		calls.Add(1)
		return Succeeded(nil)
	})

	res, err := NewFinder(nil, enricher).Find(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.NotNil(t, res.Trends)
	assert.Empty(t, res.Trends)
	assert.Zero(t, calls.Load())
}

func TestFindChunkFailureIsIsolated(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("alpha", "beta", "gamma", "delta")}
	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		if chunk[0].RepresentativeTitle == "beta" {
			return Failed(errors.New("unparseable output"))
		}
		if chunk[0].RepresentativeTitle == "gamma" {
			panic("enricher bug")
		}
		return perClusterEnricher(ctx, chunk)
	})

	res, err := NewFinder([]SourceAdapter{adapter}, enricher, WithChunkSize(1)).Find(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Chunks)
	assert.Equal(t, 2, res.FailedChunks)
	assert.Equal(t, []string{"alpha", "delta"}, names(res.Trends))
}

func TestFindAllChunksFailing(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("alpha", "beta")}
	enricher := EnricherFunc(func(context.Context, []TrendCluster) EnrichmentResult {
		return Failed(errors.New("provider down"))
	})

	list, err := NewFinder([]SourceAdapter{adapter}, enricher).FindTrends(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestFindJoinsInSubmissionOrder(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("first", "second", "third", "fourth")}
	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		// earlier chunks finish last
		delay := map[string]time.Duration{"first": 40, "second": 30, "third": 20, "fourth": 10}
		time.Sleep(delay[chunk[0].RepresentativeTitle] * time.Millisecond)
		return Succeeded([]EnrichedTrend{{Name: chunk[0].RepresentativeTitle, Relevance: 3}})
	})

	list, err := NewFinder([]SourceAdapter{adapter}, enricher, WithChunkSize(1)).FindTrends(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, names(list))
}

func TestFindDedupUsesSubmissionOrder(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("alpha", "beta")}
	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		if chunk[0].RepresentativeTitle == "alpha" {
			time.Sleep(20 * time.Millisecond)
			return Succeeded([]EnrichedTrend{{Name: "Chiefs parade Kansas City", Relevance: 4}})
		}
		return Succeeded([]EnrichedTrend{{Name: "Kansas City Chiefs parade crowds", Relevance: 4}})
	})

	list, err := NewFinder([]SourceAdapter{adapter}, enricher, WithChunkSize(1)).FindTrends(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chiefs parade Kansas City"}, names(list))
}

func TestFindCancellationDiscardsResults(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("alpha", "beta")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		cancel()
		return perClusterEnricher(ctx, chunk)
	})

	res, err := NewFinder([]SourceAdapter{adapter}, enricher, WithChunkSize(1)).Find(ctx, "q", 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestFindSanitizesEnricherOutput(t *testing.T) {
	adapter := &fakeAdapter{name: "news", items: itemsFor("alpha")}
	enricher := EnricherFunc(func(ctx context.Context, chunk []TrendCluster) EnrichmentResult {
		return Succeeded([]EnrichedTrend{{
			Name:      "Alpha",
			Category:  "Weather",
			Relevance: 9,
			Sources:   make([]SourceRef, 5),
		}})
	})

	list, err := NewFinder([]SourceAdapter{adapter}, enricher).FindTrends(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, MaxRelevance, list[0].Relevance)
	assert.Equal(t, CategoryGeneral, list[0].Category)
	assert.Len(t, list[0].Sources, MaxSources)
}

func TestFindStatistics(t *testing.T) {
	var headlines []string
	for i := range 20 {
		headlines = append(headlines, fmt.Sprintf("headline%d %s", i, strings.Repeat("x", i+1)))
	}
	adapter := &fakeAdapter{name: "news", items: itemsFor(headlines...)}

	res, err := NewFinder([]SourceAdapter{adapter}, EnricherFunc(perClusterEnricher)).Find(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Articles)
	assert.Equal(t, 20, res.Clusters)
	assert.Equal(t, 2, res.Chunks)
	assert.Len(t, res.Trends, 5)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryGameResult, ParseCategory("game result"))
	assert.Equal(t, CategoryPlayerNews, ParseCategory("PLAYER_NEWS"))
	assert.Equal(t, CategoryHighlights, ParseCategory(" Highlights "))
	assert.Equal(t, CategoryGeneral, ParseCategory("Weather"))
	assert.Equal(t, CategoryGeneral, ParseCategory(""))
}

func TestClampRelevance(t *testing.T) {
	assert.Equal(t, 1, ClampRelevance(-3))
	assert.Equal(t, 3, ClampRelevance(3))
	assert.Equal(t, 5, ClampRelevance(42))
}
