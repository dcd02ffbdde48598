// Package notify delivers rendered digests to chat services.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/httputil"
)

// Notifier publishes a digest somewhere a person will read it.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// apiBase is overridden in tests.
var apiBase = "https://api.telegram.org"

// maxMessageChars is the Telegram limit for a single message text.
const maxMessageChars = 4096

// TelegramNotifier sends digests to a Telegram chat via the bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   zerolog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier registers bot token and chat identifier.
func NewTelegramNotifier(botToken, chatID string, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// PublishDigest posts digest as one or more plain-text messages. Digests
// longer than a single message are split on section boundaries.
func (n *TelegramNotifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	parts := splitMessage(digest, maxMessageChars)
	for i, part := range parts {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("message %d/%d: %w", i+1, len(parts), err)
		}
	}
	n.logger.Debug().Int("messages", len(parts)).Msg("digest published to telegram")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httputil.DoWithRetry(ctx, n.client, req, httputil.DefaultMaxRetries, n.logger)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// splitMessage breaks text into pieces of at most limit runes, preferring
// to cut at blank lines.
func splitMessage(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if i := strings.LastIndex(text[:cut], "\n\n"); i > 0 {
			cut = i
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}
