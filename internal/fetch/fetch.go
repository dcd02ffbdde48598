// Package fetch downloads article pages to fill in missing snippets.
package fetch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

// ExcerptChars caps the length of an extracted snippet.
const ExcerptChars = 300

const minTextChars = 100

// ContentFetcher fetches article text via HTTP + readability extraction.
// Hosts that answer with an HTTP error are skipped for the fetcher's
// lifetime.
type ContentFetcher struct {
	client *http.Client
	logger zerolog.Logger

	mu          sync.Mutex
	failedHosts map[string]struct{}
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration, logger zerolog.Logger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger:      logger,
		failedHosts: make(map[string]struct{}),
	}
}

// Excerpt returns the first ExcerptChars characters of the readable text of
// the page at articleURL. It returns "" with a nil error when the page has no
// extractable text.
func (f *ContentFetcher) Excerpt(ctx context.Context, articleURL string) (string, error) {
	u, err := url.Parse(articleURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Host)
	if f.hostFailed(host) {
		return "", fmt.Errorf("skipping %s after earlier HTTP error", host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "trendfinder/1.0 (trend aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.markFailed(host)
		return "", &httpError{code: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 5<<20), u)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < minTextChars {
		return "", nil
	}
	return truncate(text, ExcerptChars), nil
}

func (f *ContentFetcher) hostFailed(host string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, failed := f.failedHosts[host]
	return failed
}

func (f *ContentFetcher) markFailed(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedHosts[host] = struct{}{}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}

// Excerpter extracts a text snippet for a URL.
type Excerpter interface {
	Excerpt(ctx context.Context, articleURL string) (string, error)
}

// WithSnippets wraps an adapter so items without a snippet get one from the
// article page. Fetch failures leave the snippet empty.
func WithSnippets(adapter trends.SourceAdapter, ex Excerpter, logger zerolog.Logger) trends.SourceAdapter {
	return &snippetAdapter{inner: adapter, ex: ex, logger: logger}
}

type snippetAdapter struct {
	inner  trends.SourceAdapter
	ex     Excerpter
	logger zerolog.Logger
}

func (s *snippetAdapter) Name() string { return s.inner.Name() }

func (s *snippetAdapter) Fetch(ctx context.Context, query string) iter.Seq2[trends.RawItem, error] {
	return func(yield func(trends.RawItem, error) bool) {
		for item, err := range s.inner.Fetch(ctx, query) {
			if err == nil && strings.TrimSpace(item.Snippet) == "" && item.URL != "" {
				text, exErr := s.ex.Excerpt(ctx, item.URL)
				if exErr != nil {
					s.logger.Debug().Err(exErr).Str("url", item.URL).Msg("snippet fetch failed")
				}
				item.Snippet = text
			}
			if !yield(item, err) {
				return
			}
		}
	}
}
