package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/trendfinder/internal/trends"
)

var newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIAdapter searches NewsAPI's everything endpoint.
type NewsAPIAdapter struct {
	apiKey   string
	daysBack int
	pageSize int
	client   *http.Client
	now      func() time.Time
}

var _ trends.SourceAdapter = (*NewsAPIAdapter)(nil)

// NewNewsAPIAdapter creates an adapter reading its key from apiKeyEnv.
func NewNewsAPIAdapter(apiKeyEnv string, daysBack, pageSize int, client *http.Client) *NewsAPIAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &NewsAPIAdapter{
		apiKey:   os.Getenv(apiKeyEnv),
		daysBack: daysBack,
		pageSize: min(max(pageSize, 1), 100),
		client:   client,
		now:      time.Now,
	}
}

func (c *NewsAPIAdapter) Name() string { return "newsapi" }

// IsConfigured returns whether the API key is available.
func (c *NewsAPIAdapter) IsConfigured() bool {
	return c.apiKey != ""
}

// Fetch yields the articles NewsAPI returns for query, most relevant first.
// The request is only sent once the sequence is ranged over.
func (c *NewsAPIAdapter) Fetch(ctx context.Context, query string) iter.Seq2[trends.RawItem, error] {
	return func(yield func(trends.RawItem, error) bool) {
		items, err := c.search(ctx, query)
		if err != nil {
			yield(trends.RawItem{}, err)
			return
		}
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func (c *NewsAPIAdapter) search(ctx context.Context, query string) ([]trends.RawItem, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("NewsAPI not configured")
	}

	params := url.Values{
		"q":        {query},
		"language": {"en"},
		"pageSize": {strconv.Itoa(c.pageSize)},
		"sortBy":   {"relevancy"},
	}
	if c.daysBack > 0 {
		params.Set("from", c.now().AddDate(0, 0, -c.daysBack).Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, newsAPIBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("NewsAPI request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NewsAPI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NewsAPI HTTP error: %d", resp.StatusCode)
	}

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
			Content     string `json:"content"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("NewsAPI decode: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI status %q: %s", result.Status, result.Message)
	}

	var items []trends.RawItem
	for _, a := range result.Articles {
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		items = append(items, trends.RawItem{
			Title:     a.Title,
			Snippet:   strings.TrimSpace(snippet),
			URL:       a.URL,
			Published: a.PublishedAt,
		})
	}
	return items, nil
}
