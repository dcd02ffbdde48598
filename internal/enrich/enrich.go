// Package enrich implements trend enrichment with an LLM provider.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/llm"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

const enrichPrompt = `You are a sports news editor identifying trending topics.

Below are numbered clusters of related articles found for the search "%s". For each cluster that describes a real, current trend, produce one trend entry. Skip clusters that are noise, adverts or duplicates of another cluster.

For each trend give:
- "cluster": the number of the cluster it came from
- "trend": a short canonical name for the trend (max 8 words)
- "description": one or two sentences explaining what is happening
- "category": one of GameResult, PlayerNews, TeamUpdate, LeagueNews, Highlights, General
- "relevance": 1-5 where 5 = major, recent and widely covered, 1 = minor or stale

Clusters:
%s

Respond with ONLY a JSON array, for example:
[{"cluster": 1, "trend": "...", "description": "...", "category": "GameResult", "relevance": 4}]
Respond with [] if no cluster is a trend.`

const (
	maxSnippetChars  = 300
	defaultMaxTokens = 2048
)

// ErrNoProvider is reported when no LLM provider is available.
var ErrNoProvider = errors.New("no LLM provider available")

// LLMEnricher turns clusters into enriched trends with one prompt per chunk.
type LLMEnricher struct {
	provider  llm.Provider
	query     string
	maxTokens int
	stopWords trends.StopWords
	logger    zerolog.Logger
}

var _ trends.Enricher = (*LLMEnricher)(nil)

// NewLLMEnricher creates an enricher. provider may be nil, in which case every
// chunk fails with ErrNoProvider.
func NewLLMEnricher(provider llm.Provider, maxTokens int, logger zerolog.Logger) *LLMEnricher {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &LLMEnricher{
		provider:  provider,
		maxTokens: maxTokens,
		stopWords: trends.DefaultStopWords,
		logger:    logger,
	}
}

// ForQuery returns a copy of e that mentions query in its prompts.
func (e *LLMEnricher) ForQuery(query string) *LLMEnricher {
	c := *e
	c.query = query
	return &c
}

// Enrich sends the chunk to the provider and maps the response back onto the
// clusters. Provider errors and unparseable output fail the chunk; an empty
// array succeeds with no trends.
func (e *LLMEnricher) Enrich(ctx context.Context, chunk []trends.TrendCluster) trends.EnrichmentResult {
	if e.provider == nil {
		return trends.Failed(ErrNoProvider)
	}
	if len(chunk) == 0 {
		return trends.Succeeded(nil)
	}

	prompt := BuildPrompt(e.query, chunk)
	responseText, err := e.provider.Generate(ctx, prompt, e.maxTokens)
	if err != nil {
		return trends.Failed(fmt.Errorf("generating: %w", err))
	}

	items, ok := llm.ParseJSONArray(responseText)
	if !ok {
		return trends.Failed(fmt.Errorf("unparseable response (%d chars)", len(responseText)))
	}

	out := e.mapTrends(items, chunk)
	e.logger.Debug().Int("clusters", len(chunk)).Int("trends", len(out)).Msg("chunk enriched")
	return trends.Succeeded(out)
}

// BuildPrompt renders the fixed instruction template for a chunk.
func BuildPrompt(query string, chunk []trends.TrendCluster) string {
	return fmt.Sprintf(enrichPrompt, query, SerializeClusters(chunk))
}

// SerializeClusters lists each cluster with its members' title, snippet, URL
// and date.
func SerializeClusters(chunk []trends.TrendCluster) string {
	var sb strings.Builder
	for i, c := range chunk {
		fmt.Fprintf(&sb, "Cluster %d (%d articles)\n", i+1, c.MemberCount())
		for _, m := range c.Members {
			snippet := m.Snippet
			if r := []rune(snippet); len(r) > maxSnippetChars {
				snippet = string(r[:maxSnippetChars]) + "..."
			}
			fmt.Fprintf(&sb, "- Title: %s\n  Snippet: %s\n  URL: %s\n  Date: %s\n",
				m.Title, snippet, m.URL, m.PublishedAt.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (e *LLMEnricher) mapTrends(items []map[string]any, chunk []trends.TrendCluster) []trends.EnrichedTrend {
	var out []trends.EnrichedTrend
	for pos, item := range items {
		name := strings.TrimSpace(getString(item, "trend", getString(item, "name", "")))
		if name == "" {
			continue
		}

		t := trends.EnrichedTrend{
			Name:        name,
			Description: strings.TrimSpace(getString(item, "description", "")),
			Category:    trends.ParseCategory(getString(item, "category", "")),
			Relevance:   trends.ClampRelevance(getInt(item, "relevance", trends.MinRelevance)),
		}
		if c := e.clusterFor(item, name, pos, chunk); c != nil {
			t.Sources = sourcesOf(*c)
		}
		out = append(out, t)
	}
	return out
}

// clusterFor finds the cluster a trend came from: by explicit 1-based index,
// then by name similarity to a representative title, then by position.
func (e *LLMEnricher) clusterFor(item map[string]any, name string, pos int, chunk []trends.TrendCluster) *trends.TrendCluster {
	if idx := getInt(item, "cluster", 0); idx >= 1 && idx <= len(chunk) {
		return &chunk[idx-1]
	}
	for i := range chunk {
		if trends.AreTitlesSimilar(name, chunk[i].RepresentativeTitle, e.stopWords) {
			return &chunk[i]
		}
	}
	if pos < len(chunk) {
		return &chunk[pos]
	}
	return nil
}

func sourcesOf(c trends.TrendCluster) []trends.SourceRef {
	n := min(len(c.Members), trends.MaxSources)
	refs := make([]trends.SourceRef, 0, n)
	for _, m := range c.Members[:n] {
		refs = append(refs, trends.SourceRefFor(m))
	}
	return refs
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func getInt(m map[string]any, key string, fallback int) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		}
	}
	return fallback
}
