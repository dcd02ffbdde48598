package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Enrichment Enrichment `yaml:"enrichment"`
	Trends     Trends     `yaml:"trends"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Notify     Notify     `yaml:"notify"`
}

type Sources struct {
	NewsAPI      NewsAPIConfig `yaml:"newsapi"`
	Feeds        []Feed        `yaml:"feeds"`
	Scrape       []ScrapePage  `yaml:"scrape"`
	FillSnippets bool          `yaml:"fill_snippets"`
	Timeout      Duration      `yaml:"timeout"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	DaysBack  int    `yaml:"days_back"`
	PageSize  int    `yaml:"page_size"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// ScrapePage is a headline page whose anchors matching Selector become items.
type ScrapePage struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Selector string `yaml:"selector"`
}

type Enrichment struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	OllamaURL    string   `yaml:"ollama_url"`
	OpenAIModel  string   `yaml:"openai_model"`
	OpenAIKeyEnv string   `yaml:"openai_api_key_env"`
	GeminiModel  string   `yaml:"gemini_model"`
	GeminiKeyEnv string   `yaml:"gemini_api_key_env"`
	MaxTokens    int      `yaml:"max_tokens"`
	ChunkSize    int      `yaml:"chunk_size"`
	MaxRetries   int      `yaml:"max_retries"`
	Timeout      Duration `yaml:"timeout"`
}

type Trends struct {
	Query      string `yaml:"query"`
	MaxResults int    `yaml:"max_results"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Notify struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BotTokenEnv string `yaml:"bot_token_env"`
	ChatID      string `yaml:"chat_id"`
}

// Duration is a time.Duration written as "30s" or "2m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ConfigDir returns the XDG config directory for trendfinder.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "trendfinder")
}

// DataDir returns the XDG data directory for trendfinder.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "trendfinder")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/trendfinder/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'trendfinder init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			NewsAPI: NewsAPIConfig{
				Enabled:   true,
				APIKeyEnv: "NEWSAPI_KEY",
				DaysBack:  3,
				PageSize:  50,
			},
			Timeout: Duration(30 * time.Second),
		},
		Enrichment: Enrichment{
			Provider:     "ollama",
			Model:        "qwen2.5:7b",
			OllamaURL:    "http://localhost:11434",
			OpenAIModel:  "gpt-4o-mini",
			OpenAIKeyEnv: "OPENAI_API_KEY",
			GeminiModel:  "gemini-2.0-flash",
			GeminiKeyEnv: "GEMINI_API_KEY",
			MaxTokens:    2048,
			ChunkSize:    15,
			MaxRetries:   3,
			Timeout:      Duration(120 * time.Second),
		},
		Trends:  Trends{Query: "sports", MaxResults: 25},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
		Notify: Notify{
			Telegram: TelegramConfig{BotTokenEnv: "TELEGRAM_BOT_TOKEN"},
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Trends.MaxResults <= 0 {
		return fmt.Errorf("trends.max_results must be positive, got %d", c.Trends.MaxResults)
	}
	if c.Enrichment.ChunkSize <= 0 {
		return fmt.Errorf("enrichment.chunk_size must be positive, got %d", c.Enrichment.ChunkSize)
	}
	for i, p := range c.Sources.Scrape {
		if p.URL == "" || p.Selector == "" {
			return fmt.Errorf("sources.scrape[%d]: url and selector are required", i)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
