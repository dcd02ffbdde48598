package database

import "github.com/TobiSchelling/trendfinder/internal/trends"

// Run is one stored invocation of the trend finder.
type Run struct {
	ID           string
	Query        string
	MaxResults   int
	ArticleCount int
	ClusterCount int
	ChunkCount   int
	FailedChunks int
	DurationMS   int64
	CreatedAt    string
	NotifiedAt   *string
	Trends       []trends.EnrichedTrend
	// TrendCount is filled by ListRuns, which does not load Trends.
	TrendCount int
}

// RunFilter narrows ListRuns. Zero values mean no restriction.
type RunFilter struct {
	Query string // case-insensitive substring
	Since string // RFC 3339, inclusive
	Limit int
}

// Stats summarises the stored history.
type Stats struct {
	Runs        int
	Trends      int
	LastRunAt   string
	TopCategory string
}
