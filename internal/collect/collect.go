// Package collect provides the search adapters that feed trend ingestion.
package collect

import (
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/config"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

const userAgent = "trendfinder/1.0 (+https://github.com/TobiSchelling/trendfinder)"

// Adapters builds the configured adapters in a fixed order: NewsAPI, then
// feeds, then scraped pages. NewsAPI is skipped when its key is missing.
func Adapters(cfg *config.Config, logger zerolog.Logger) []trends.SourceAdapter {
	timeout := time.Duration(cfg.Sources.Timeout)
	client := &http.Client{Timeout: timeout}

	var adapters []trends.SourceAdapter

	if api := cfg.Sources.NewsAPI; api.Enabled {
		a := NewNewsAPIAdapter(api.APIKeyEnv, api.DaysBack, api.PageSize, client)
		if a.IsConfigured() {
			adapters = append(adapters, a)
		} else {
			logger.Warn().Str("env", api.APIKeyEnv).Msg("NewsAPI key not set, skipping")
		}
	}

	for _, f := range cfg.Sources.Feeds {
		adapters = append(adapters, NewFeedAdapter(f.URL, f.Name, timeout))
	}

	for _, p := range cfg.Sources.Scrape {
		adapters = append(adapters, NewScrapeAdapter(p.Name, p.URL, p.Selector, timeout))
	}

	logger.Debug().Int("adapters", len(adapters)).Msg("search adapters configured")
	return adapters
}

// queryFilter keeps texts that share at least one token with the query. An
// empty or stop-word-only query keeps everything.
type queryFilter []string

func newQueryFilter(query string) queryFilter {
	return queryFilter(trends.Tokenize(query, trends.DefaultStopWords))
}

func (q queryFilter) matches(texts ...string) bool {
	if len(q) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(q))
	for _, t := range q {
		want[t] = struct{}{}
	}
	for _, text := range texts {
		for _, tok := range trends.Tokenize(text, trends.DefaultStopWords) {
			if _, ok := want[tok]; ok {
				return true
			}
		}
	}
	return false
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
