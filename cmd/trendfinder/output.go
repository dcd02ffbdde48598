package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/trendfinder/internal/config"
	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/digest"
	"github.com/TobiSchelling/trendfinder/internal/pipeline"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

func printSteps(w io.Writer, steps []pipeline.StepResult) {
	for i, step := range steps {
		fmt.Fprintf(w, "Step %d/%d: %s\n", i+1, len(steps), step.Name)
		if step.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", step.Err)
		} else {
			fmt.Fprintf(w, "  %s\n", step.Summary)
		}
	}
}

func printTrends(w io.Writer, list trends.RankedTrendList) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No trends found.")
		return
	}
	for i, t := range list {
		fmt.Fprintf(w, "%2d. %s %s [%s]\n", i+1, digest.Stars(t.Relevance), t.Name, t.Category)
		if t.Description != "" {
			fmt.Fprintf(w, "    %s\n", t.Description)
		}
		for _, s := range t.Sources {
			fmt.Fprintf(w, "    - %s: %s\n", s.Source, s.URL)
		}
	}
}

func printRuns(w io.Writer, runs []database.Run) {
	for _, r := range runs {
		when := r.CreatedAt
		if t, err := database.ParseTime(r.CreatedAt); err == nil {
			when = humanize.Time(t)
		}
		fmt.Fprintf(w, "%s  %-30s %3d trends  %s articles  %s\n",
			r.ID, truncate(r.Query, 30), r.TrendCount, humanize.Comma(int64(r.ArticleCount)), when)
	}
}

func printStatus(w io.Writer, cfg *config.Config, dbPath string, stats *database.Stats) {
	fmt.Fprintf(w, "Database: %s", dbPath)
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Fprintf(w, " (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "\nHistory:")
	fmt.Fprintf(w, "  Runs: %s\n", humanize.Comma(int64(stats.Runs)))
	fmt.Fprintf(w, "  Trends: %s\n", humanize.Comma(int64(stats.Trends)))
	if stats.LastRunAt != "" {
		if t, err := database.ParseTime(stats.LastRunAt); err == nil {
			fmt.Fprintf(w, "  Last run: %s\n", humanize.Time(t))
		}
	}
	if stats.TopCategory != "" {
		fmt.Fprintf(w, "  Top category: %s\n", stats.TopCategory)
	}

	fmt.Fprintln(w, "\nConfiguration:")
	fmt.Fprintf(w, "  Default query: %s (max %d)\n", cfg.Trends.Query, cfg.Trends.MaxResults)
	fmt.Fprintf(w, "  Sources: %d feeds, %d scraped pages, NewsAPI %s\n",
		len(cfg.Sources.Feeds), len(cfg.Sources.Scrape), onOff(cfg.Sources.NewsAPI.Enabled))
	fmt.Fprintf(w, "  Enrichment: %s, chunks of %d\n", cfg.Enrichment.Provider, cfg.Enrichment.ChunkSize)
	fmt.Fprintf(w, "  Telegram: %s\n", onOff(cfg.Notify.Telegram.Enabled))
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
