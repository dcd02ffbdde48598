// Package digest renders a ranked trend list as Markdown.
package digest

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

// glanceCount is the number of trends summarised at the top of a digest.
const glanceCount = 3

// Markdown renders trends as a Markdown digest for query: a short
// at-a-glance list followed by one numbered section per trend.
func Markdown(query string, list trends.RankedTrendList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trends: %s\n\n", heading(query))

	if len(list) == 0 {
		b.WriteString("No trends found.\n")
		return b.String()
	}

	b.WriteString(glance(list))
	b.WriteString("\n\n")

	sections := make([]string, 0, len(list))
	for i, t := range list {
		sections = append(sections, section(i+1, t))
	}
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

func heading(query string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	return "all topics"
}

func glance(list trends.RankedTrendList) string {
	var bullets []string
	for _, t := range list[:min(glanceCount, len(list))] {
		bullets = append(bullets, "- **"+t.Name+"**")
	}
	return "**At a glance:**\n" + strings.Join(bullets, "\n")
}

func section(n int, t trends.EnrichedTrend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %d. %s\n\n", n, t.Name)
	fmt.Fprintf(&b, "*%s* | relevance %s", t.Category, Stars(t.Relevance))
	if t.Description != "" {
		b.WriteString("\n\n" + t.Description)
	}
	if len(t.Sources) > 0 {
		var refs []string
		for _, s := range t.Sources {
			line := fmt.Sprintf("- [%s](%s)", escapeLinkText(s.Title), s.URL)
			var meta []string
			if s.Source != "" {
				meta = append(meta, s.Source)
			}
			if !s.Date.IsZero() {
				meta = append(meta, s.Date.Format("2006-01-02"))
			}
			if len(meta) > 0 {
				line += " (" + strings.Join(meta, ", ") + ")"
			}
			refs = append(refs, line)
		}
		b.WriteString("\n\n**Sources:**\n" + strings.Join(refs, "\n"))
	}
	return b.String()
}

// Stars renders a relevance score as filled and empty stars.
func Stars(relevance int) string {
	r := trends.ClampRelevance(relevance)
	return strings.Repeat("★", r) + strings.Repeat("☆", trends.MaxRelevance-r)
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
