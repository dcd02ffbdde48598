package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if len(cfg.Sources.Scrape) == 0 || cfg.Sources.Scrape[0].Selector == "" {
		t.Error("expected a scrape page with a selector")
	}

	if cfg.Enrichment.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Enrichment.Provider)
	}
	if cfg.Enrichment.ChunkSize != 15 {
		t.Errorf("expected chunk size 15, got %d", cfg.Enrichment.ChunkSize)
	}
	if cfg.Trends.MaxResults != 25 {
		t.Errorf("expected max results 25, got %d", cfg.Trends.MaxResults)
	}
	if time.Duration(cfg.Enrichment.Timeout) != 120*time.Second {
		t.Errorf("expected 120s timeout, got %v", time.Duration(cfg.Enrichment.Timeout))
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
enrichment:
  provider: gemini
trends:
  max_results: 10
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Enrichment.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.Enrichment.Provider)
	}
	if cfg.Trends.MaxResults != 10 {
		t.Errorf("expected max results 10, got %d", cfg.Trends.MaxResults)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Enrichment.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Enrichment.OllamaURL)
	}
	if cfg.Enrichment.ChunkSize != 15 {
		t.Errorf("expected default chunk size, got %d", cfg.Enrichment.ChunkSize)
	}
	if cfg.Trends.Query != "sports" {
		t.Errorf("expected default query, got %q", cfg.Trends.Query)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"max results": "trends:\n  max_results: 0\n",
		"chunk size":  "enrichment:\n  chunk_size: -1\n",
		"scrape":      "sources:\n  scrape:\n    - name: x\n      url: https://x.example\n",
		"duration":    "sources:\n  timeout: soon\n",
	}
	for name, data := range cases {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}

	path := filepath.Join(t.TempDir(), "c.yaml")
	os.WriteFile(path, []byte("{}"), 0o644)
	got, err := ResolveConfigPath(path)
	if err != nil || got != path {
		t.Errorf("expected %q, got %q (%v)", path, got, err)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
