package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load(writeConfig(t, "app:\n  debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "https://itunes.apple.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 3, cfg.Catalog.MaxKeywords)
	assert.Equal(t, 10, cfg.Catalog.TopN)
	assert.Equal(t, 3, cfg.Pipeline.TopN)
	assert.Equal(t, 200*time.Millisecond, Duration(cfg.Catalog.Delay, 0))
	assert.Equal(t, 500*time.Millisecond, Duration(cfg.Pipeline.LLMDelay, 0))
	assert.Equal(t, "none", cfg.Enrichment.Mode)
}

func TestLoad_FileOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := writeConfig(t, `
catalog:
  country: " GB "
  delay: 1s
pipeline:
  top_n: 5
enrichment:
  mode: remote
  base_url: http://enrichment.local
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gb", cfg.Catalog.Country)
	assert.Equal(t, time.Second, Duration(cfg.Catalog.Delay, 0))
	assert.Equal(t, 5, cfg.Pipeline.TopN)
	assert.Equal(t, "http://enrichment.local", cfg.Enrichment.BaseURL)
	assert.Equal(t, path, cfg.App.ConfigFile)
}

func TestLoad_EnvironmentAPIKey(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestLoad_InvalidDuration(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, err := Load(writeConfig(t, "catalog:\n  delay: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.delay")
}

func TestLoad_ValidationErrors(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, err := Load(writeConfig(t, "llm:\n  provider: mystery\nenrichment:\n  mode: remote\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown LLM provider: mystery")
	assert.Contains(t, err.Error(), "Remote enrichment requires a base URL")
}

func TestAPIKey_Placeholder(t *testing.T) {
	cfg := &Config{LLM: LLM{Provider: "gemini", Gemini: GeminiConfig{APIKey: "YOUR_API_KEY"}}}
	_, err := cfg.APIKey()
	assert.Error(t, err)
}

func TestDuration_Fallback(t *testing.T) {
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("garbage", time.Minute))
}
