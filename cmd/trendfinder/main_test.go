package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/trendfinder/internal/config"
	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/pipeline"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

func testEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRENDFINDER")
	v.AutomaticEnv()
	return v
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRENDFINDER_QUERY", "premier league")
	t.Setenv("TRENDFINDER_MAX_RESULTS", "7")
	t.Setenv("TRENDFINDER_PROVIDER", "gemini")

	cfg := config.Default()
	require.NoError(t, applyEnv(cfg, testEnv()))
	assert.Equal(t, "premier league", cfg.Trends.Query)
	assert.Equal(t, 7, cfg.Trends.MaxResults)
	assert.Equal(t, "gemini", cfg.Enrichment.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyEnvRejectsBadMaxResults(t *testing.T) {
	t.Setenv("TRENDFINDER_MAX_RESULTS", "0")
	err := applyEnv(config.Default(), testEnv())
	assert.ErrorContains(t, err, "TRENDFINDER_MAX_RESULTS")
}

func TestPrintTrends(t *testing.T) {
	var buf bytes.Buffer
	printTrends(&buf, trends.RankedTrendList{
		{
			Name:        "Chiefs comeback",
			Description: "Kansas City rallied late.",
			Category:    trends.CategoryGameResult,
			Relevance:   4,
			Sources:     []trends.SourceRef{{Source: "espn.com", URL: "https://espn.com/1"}},
		},
	})
	assert.Equal(t, " 1. ★★★★☆ Chiefs comeback [GameResult]\n    Kansas City rallied late.\n    - espn.com: https://espn.com/1\n", buf.String())

	buf.Reset()
	printTrends(&buf, nil)
	assert.Equal(t, "No trends found.\n", buf.String())
}

func TestPrintSteps(t *testing.T) {
	var buf bytes.Buffer
	printSteps(&buf, []pipeline.StepResult{
		{Name: "Find", Summary: "Found 3 trends"},
		{Name: "Notify", Err: errors.New("telegram down")},
	})
	assert.Equal(t, "Step 1/2: Find\n  Found 3 trends\nStep 2/2: Notify\n  Error: telegram down\n", buf.String())
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, []database.Run{{ID: "abc", Query: "nfl", TrendCount: 12, ArticleCount: 1500, CreatedAt: "not a time"}})
	out := buf.String()
	assert.Contains(t, out, "abc  nfl")
	assert.Contains(t, out, " 12 trends")
	assert.Contains(t, out, "1,500 articles")
	assert.Contains(t, out, "not a time")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestResolveMaxResults(t *testing.T) {
	n, err := resolveMaxResults(25, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = resolveMaxResults(25, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = resolveMaxResults(25, 0, true)
	assert.ErrorIs(t, err, trends.ErrInvalidMaxResults)

	_, err = resolveMaxResults(25, -3, true)
	assert.ErrorIs(t, err, trends.ErrInvalidMaxResults)
}
