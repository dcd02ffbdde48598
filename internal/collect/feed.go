package collect

import (
	"context"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

const maxPerFeed = 20

// FeedAdapter reads one RSS or Atom feed and keeps the items matching the
// query.
type FeedAdapter struct {
	url     string
	name    string
	timeout time.Duration
}

var _ trends.SourceAdapter = (*FeedAdapter)(nil)

// NewFeedAdapter creates an adapter for feedURL. An empty name is derived
// from the feed's host.
func NewFeedAdapter(feedURL, name string, timeout time.Duration) *FeedAdapter {
	if name == "" {
		name = extractSourceName(feedURL)
	}
	return &FeedAdapter{url: feedURL, name: name, timeout: timeout}
}

func (f *FeedAdapter) Name() string { return "feed:" + f.name }

// Fetch parses the feed and yields up to maxPerFeed matching items.
func (f *FeedAdapter) Fetch(ctx context.Context, query string) iter.Seq2[trends.RawItem, error] {
	return func(yield func(trends.RawItem, error) bool) {
		if f.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}

		parser := gofeed.NewParser()
		parser.UserAgent = userAgent
		feed, err := parser.ParseURLWithContext(f.url, ctx)
		if err != nil {
			yield(trends.RawItem{}, err)
			return
		}

		filter := newQueryFilter(query)
		n := 0
		for _, item := range feed.Items {
			if n >= maxPerFeed {
				return
			}
			raw, ok := parseItem(item)
			if !ok || !filter.matches(raw.Title, raw.Snippet) {
				continue
			}
			n++
			if !yield(raw, nil) {
				return
			}
		}
	}
}

func parseItem(item *gofeed.Item) (trends.RawItem, bool) {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return trends.RawItem{}, false
	}

	var published string
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.Format(time.RFC3339)
	} else {
		published = item.Published
	}

	snippet := item.Description
	if snippet == "" {
		snippet = item.Content
	}

	return trends.RawItem{
		Title:     stripHTML(item.Title),
		Snippet:   stripHTML(snippet),
		URL:       itemURL,
		Published: published,
	}, true
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	name := host
	if parts := strings.Split(host, "."); len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return u.Hostname()
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
