package trends

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter yields a fixed item list and then, optionally, an error.
type fakeAdapter struct {
	name  string
	items []RawItem
	err   error
	calls int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, _ string) iter.Seq2[RawItem, error] {
	f.calls++
	return func(yield func(RawItem, error) bool) {
		for _, it := range f.items {
			if !yield(it, nil) {
				return
			}
		}
		if f.err != nil {
			yield(RawItem{}, f.err)
		}
	}
}

type panickingAdapter struct{}

func (panickingAdapter) Name() string { return "panics" }

func (panickingAdapter) Fetch(_ context.Context, _ string) iter.Seq2[RawItem, error] {
	return func(yield func(RawItem, error) bool) {
		if !yield(RawItem{Title: "Before panic", URL: "https://p.example/1"}, nil) {
			return
		}
		panic("boom")
	}
}

var ingestNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestIngestNormalizesItems(t *testing.T) {
	a := &fakeAdapter{name: "news", items: []RawItem{
		{Title: "Chiefs win", Snippet: "Recap", URL: "https://www.espn.com/nfl/1", Published: "2026-02-10T20:00:00Z"},
		{Title: "No date", URL: "https://espn.com/2"},
		{Title: "Bad date", URL: "https://espn.com/3", Published: "2009-15-12T22:15Z"},
		{Title: "Bad url", URL: "not a url"},
		{Title: "   ", URL: "https://espn.com/4"},
	}}

	articles := Ingest(context.Background(), "chiefs", []SourceAdapter{a}, ingestNow, zerolog.Nop())
	require.Len(t, articles, 3)

	assert.Equal(t, "Chiefs win", articles[0].Title)
	assert.Equal(t, "Recap", articles[0].Snippet)
	assert.Equal(t, "espn.com", articles[0].Source())
	assert.True(t, articles[0].PublishedAt.Equal(time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC)))

	assert.Equal(t, "", articles[1].Snippet)
	assert.True(t, articles[1].PublishedAt.Equal(ingestNow))
	assert.True(t, articles[2].PublishedAt.Equal(ingestNow))
}

func TestIngestOrdersBySourceThenIndex(t *testing.T) {
	first := &fakeAdapter{name: "first", items: []RawItem{
		{Title: "A1", URL: "https://a.example/1"},
		{Title: "A2", URL: "https://a.example/2"},
	}}
	second := &fakeAdapter{name: "second", items: []RawItem{
		{Title: "B1", URL: "https://b.example/1"},
	}}

	articles := Ingest(context.Background(), "q", []SourceAdapter{first, second}, ingestNow, zerolog.Nop())

	var got []string
	for _, a := range articles {
		got = append(got, a.Title)
	}
	assert.Equal(t, []string{"A1", "A2", "B1"}, got)
}

func TestIngestIsolatesAdapterFailures(t *testing.T) {
	broken := &fakeAdapter{name: "broken", err: errors.New("connection refused")}
	partial := &fakeAdapter{name: "partial", items: []RawItem{
		{Title: "Kept", URL: "https://p.example/1"},
	}, err: errors.New("rate limited")}
	healthy := &fakeAdapter{name: "healthy", items: []RawItem{
		{Title: "Healthy", URL: "https://h.example/1"},
	}}

	articles := Ingest(context.Background(), "q",
		[]SourceAdapter{broken, partial, panickingAdapter{}, healthy}, ingestNow, zerolog.Nop())

	var got []string
	for _, a := range articles {
		got = append(got, a.Title)
	}
	assert.Equal(t, []string{"Kept", "Before panic", "Healthy"}, got)
}

func TestIngestKeepsDuplicates(t *testing.T) {
	item := RawItem{Title: "Same", URL: "https://x.example/1"}
	a := &fakeAdapter{name: "a", items: []RawItem{item}}
	b := &fakeAdapter{name: "b", items: []RawItem{item}}

	articles := Ingest(context.Background(), "q", []SourceAdapter{a, b}, ingestNow, zerolog.Nop())
	assert.Len(t, articles, 2)
}
