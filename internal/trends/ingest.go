package trends

import (
	"context"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	conciter "github.com/sourcegraph/conc/iter"
)

// RawItem is the source-agnostic tuple an adapter yields.
type RawItem struct {
	Title     string
	Snippet   string
	URL       string
	Published string
}

// SourceAdapter retrieves raw items for a query. The returned sequence is
// lazy and can be ranged over once. A non-nil error ends the adapter's
// stream; items yielded before it are kept.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, query string) iter.Seq2[RawItem, error]
}

// Ingest drains every adapter concurrently and normalises the items into
// articles. Output is ordered by adapter, then by item position. Items with
// an empty title or an invalid URL are dropped; missing or unparseable dates
// become now.
func Ingest(ctx context.Context, query string, adapters []SourceAdapter, now time.Time, logger zerolog.Logger) []Article {
	perAdapter := conciter.Map(adapters, func(a *SourceAdapter) []Article {
		return drain(ctx, query, *a, now, logger)
	})

	var articles []Article
	for _, batch := range perAdapter {
		articles = append(articles, batch...)
	}
	return articles
}

func drain(ctx context.Context, query string, adapter SourceAdapter, now time.Time, logger zerolog.Logger) (articles []Article) {
	log := logger.With().Str("adapter", adapter.Name()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("adapter panicked")
		}
	}()

	index := 0
	for item, err := range adapter.Fetch(ctx, query) {
		if err != nil {
			log.Warn().Err(err).Int("kept", len(articles)).Msg("adapter failed")
			break
		}
		a, ok := normalize(item, now)
		if !ok {
			log.Warn().Int("index", index).Str("title", item.Title).Str("url", item.URL).
				Msg("dropping malformed item")
		} else {
			articles = append(articles, a)
		}
		index++
	}
	log.Debug().Int("articles", len(articles)).Msg("adapter drained")
	return articles
}

func normalize(item RawItem, now time.Time) (Article, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" || !validURL(item.URL) {
		return Article{}, false
	}
	return Article{
		Title:       title,
		Snippet:     strings.TrimSpace(item.Snippet),
		URL:         strings.TrimSpace(item.URL),
		PublishedAt: parseDate(item.Published, now),
	}, true
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func parseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return fallback
	}
	return t
}
