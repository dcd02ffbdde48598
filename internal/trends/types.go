// Package trends turns raw search results into a deduplicated, ranked list of
// trend topics: ingestion, title-overlap grouping, chunked enrichment and
// ranking.
package trends

import (
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Article is one piece of retrieved content.
type Article struct {
	Title       string
	Snippet     string
	URL         string
	PublishedAt time.Time
}

// Source returns the hostname of the article URL without a leading "www.".
func (a Article) Source() string {
	return hostname(a.URL)
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// TrendCluster is a group of articles believed to describe the same trend.
// RepresentativeTitle is the title of the first member and anchors all
// similarity comparisons.
type TrendCluster struct {
	RepresentativeTitle string
	Members             []Article
}

// MemberCount reports the number of articles in the cluster.
func (c TrendCluster) MemberCount() int {
	return len(c.Members)
}

// Category classifies an enriched trend.
type Category string

const (
	CategoryGameResult Category = "GameResult"
	CategoryPlayerNews Category = "PlayerNews"
	CategoryTeamUpdate Category = "TeamUpdate"
	CategoryLeagueNews Category = "LeagueNews"
	CategoryHighlights Category = "Highlights"
	CategoryGeneral    Category = "General"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryGameResult,
	CategoryPlayerNews,
	CategoryTeamUpdate,
	CategoryLeagueNews,
	CategoryHighlights,
	CategoryGeneral,
}

// ParseCategory maps free text such as "game result" or "PLAYER_NEWS" onto a
// known category. Anything unrecognised becomes CategoryGeneral.
func ParseCategory(s string) Category {
	key := normalizeCategory(s)
	for _, c := range Categories {
		if normalizeCategory(string(c)) == key {
			return c
		}
	}
	return CategoryGeneral
}

func normalizeCategory(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// SourceRef points at an article backing an enriched trend.
type SourceRef struct {
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Source string    `json:"source"`
	Date   time.Time `json:"date"`
}

// SourceRefFor builds a SourceRef from an article.
func SourceRefFor(a Article) SourceRef {
	return SourceRef{Title: a.Title, URL: a.URL, Source: a.Source(), Date: a.PublishedAt}
}

const (
	MinRelevance = 1
	MaxRelevance = 5

	// MaxSources caps the sources kept per enriched trend.
	MaxSources = 3
)

// EnrichedTrend is the enrichment output for one cluster.
type EnrichedTrend struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    Category    `json:"category"`
	Relevance   int         `json:"relevance"`
	Sources     []SourceRef `json:"sources"`
}

// ClampRelevance forces a relevance score into [MinRelevance, MaxRelevance].
func ClampRelevance(r int) int {
	return min(max(r, MinRelevance), MaxRelevance)
}

// RankedTrendList is the final output, ordered by descending relevance.
type RankedTrendList []EnrichedTrend
