package collect

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

const maxPerPage = 30

// ScrapeAdapter collects headline links from a web page. Every element
// matching the selector is read as a link: its href becomes the item URL and
// its text the title.
type ScrapeAdapter struct {
	name     string
	url      string
	selector string
	timeout  time.Duration
}

var _ trends.SourceAdapter = (*ScrapeAdapter)(nil)

// NewScrapeAdapter creates an adapter for one headline page.
func NewScrapeAdapter(name, pageURL, selector string, timeout time.Duration) *ScrapeAdapter {
	if name == "" {
		name = extractSourceName(pageURL)
	}
	return &ScrapeAdapter{name: name, url: pageURL, selector: selector, timeout: timeout}
}

func (s *ScrapeAdapter) Name() string { return "scrape:" + s.name }

// Fetch visits the page and yields matching headlines in document order.
func (s *ScrapeAdapter) Fetch(ctx context.Context, query string) iter.Seq2[trends.RawItem, error] {
	return func(yield func(trends.RawItem, error) bool) {
		items, err := s.scrape(ctx, query)
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
		if err != nil {
			yield(trends.RawItem{}, err)
		}
	}
}

func (s *ScrapeAdapter) scrape(ctx context.Context, query string) ([]trends.RawItem, error) {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}

	filter := newQueryFilter(query)
	seen := make(map[string]struct{})
	var items []trends.RawItem

	c.OnHTML(s.selector, func(e *colly.HTMLElement) {
		if len(items) >= maxPerPage {
			return
		}
		href := e.Attr("href")
		if href == "" {
			href = e.ChildAttr("a", "href")
		}
		link := e.Request.AbsoluteURL(href)
		title := strings.Join(strings.Fields(e.Text), " ")
		if link == "" || title == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		if !filter.matches(title) {
			return
		}
		seen[link] = struct{}{}
		items = append(items, trends.RawItem{
			Title:   title,
			Snippet: strings.TrimSpace(e.Attr("title")),
			URL:     link,
		})
	})

	var visitErr error
	c.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	if err := c.Visit(s.url); err != nil {
		return items, err
	}
	c.Wait()
	return items, visitErr
}
