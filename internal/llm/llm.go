package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/trendfinder/internal/httputil"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Options holds the settings shared by all providers.
type Options struct {
	MaxRetries int
	Timeout    time.Duration
	Logger     zerolog.Logger
}

func (o Options) client() *http.Client {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends body as JSON through the retrying client and decodes a 200
// response into out.
func postJSON(ctx context.Context, client *http.Client, opts Options, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, opts.MaxRetries, opts.Logger)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	opts    Options
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, opts Options) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		client:  opts.client(),
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	o.opts.Logger.Warn().Str("model", o.Model).Msg("ollama model not found")
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"num_predict": maxTokens,
			"temperature": 0.3,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.opts, o.BaseURL+"/api/chat", nil, body, &result); err != nil {
		return "", fmt.Errorf("ollama API: %w", err)
	}
	return result.Message.Content, nil
}

// DefaultOpenAIURL is the OpenAI chat completions endpoint.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider is an OpenAI-compatible chat completions provider.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	opts    Options
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider reading its key from apiKeyEnv.
func NewOpenAIProvider(model, apiKeyEnv string, opts Options) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: DefaultOpenAIURL,
		opts:    opts,
		client:  opts.client(),
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.3,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}
	if err := postJSON(ctx, o.client, o.opts, o.BaseURL, headers, body, &result); err != nil {
		return "", fmt.Errorf("OpenAI API: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}

// DefaultGeminiURL is the Generative Language API base.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	opts    Options
	client  *http.Client
}

// NewGeminiProvider creates a Gemini provider reading its key from apiKeyEnv.
func NewGeminiProvider(model, apiKeyEnv string, opts Options) *GeminiProvider {
	return &GeminiProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: DefaultGeminiURL,
		opts:    opts,
		client:  opts.client(),
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

// Generate sends a prompt to Gemini and returns the first candidate's text.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("Gemini API key not configured")
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens":  maxTokens,
			"temperature":      0.3,
			"responseMimeType": "application/json",
		},
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	headers := map[string]string{"x-goog-api-key": g.APIKey}
	if err := postJSON(ctx, g.client, g.opts, url, headers, body, &result); err != nil {
		return "", fmt.Errorf("Gemini API: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response")
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// Config selects and configures a provider.
type Config struct {
	Provider     string
	OllamaModel  string
	OllamaURL    string
	OpenAIModel  string
	OpenAIKeyEnv string
	GeminiModel  string
	GeminiKeyEnv string
}

// CreateProvider returns the configured provider, falling back through
// Ollama, Gemini and OpenAI in that order when the preferred one is not
// usable. It returns nil when nothing is available.
func CreateProvider(cfg Config, opts Options) Provider {
	log := opts.Logger
	candidates := map[string]func() Provider{
		"ollama": func() Provider { return NewOllamaProvider(cfg.OllamaModel, cfg.OllamaURL, opts) },
		"gemini": func() Provider { return NewGeminiProvider(cfg.GeminiModel, cfg.GeminiKeyEnv, opts) },
		"openai": func() Provider { return NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIKeyEnv, opts) },
	}

	order := []string{strings.ToLower(cfg.Provider)}
	for _, name := range []string{"ollama", "gemini", "openai"} {
		if name != order[0] {
			order = append(order, name)
		}
	}

	for i, name := range order {
		build, ok := candidates[name]
		if !ok {
			log.Warn().Str("provider", name).Msg("unknown LLM provider")
			continue
		}
		p := build()
		if p.IsConfigured() {
			log.Info().Str("provider", p.Name()).Msg("using LLM provider")
			return p
		}
		if i == 0 {
			log.Warn().Str("provider", name).Msg("preferred LLM provider not available, trying fallbacks")
		}
	}

	log.Error().Msg("no LLM provider available; start Ollama or set an API key")
	return nil
}
