package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	LLM        LLM        `mapstructure:"llm"`
	Catalog    Catalog    `mapstructure:"catalog"`
	Enrichment Enrichment `mapstructure:"enrichment"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Store      Store      `mapstructure:"store"`
	Server     Server     `mapstructure:"server"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// LLM holds language model provider configuration
type LLM struct {
	Provider  string          `mapstructure:"provider"` // anthropic or gemini
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
}

// AnthropicConfig holds Messages API configuration
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Version   string `mapstructure:"version"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   string `mapstructure:"timeout"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// BreakerConfig controls the circuit breaker around the LLM provider
type BreakerConfig struct {
	Failures    uint32 `mapstructure:"failures"` // consecutive failures before opening; 0 disables
	OpenTimeout string `mapstructure:"open_timeout"`
}

// Catalog holds app catalog search configuration
type Catalog struct {
	BaseURL           string `mapstructure:"base_url"`
	Country           string `mapstructure:"country"`
	ResultsPerKeyword int    `mapstructure:"results_per_keyword"`
	MaxKeywords       int    `mapstructure:"max_keywords"`
	TopN              int    `mapstructure:"top_n"`
	Delay             string `mapstructure:"delay"`
	Timeout           string `mapstructure:"timeout"`
	CacheSize         int    `mapstructure:"cache_size"`
}

// Enrichment holds configuration for the enrichment collaborator
type Enrichment struct {
	Mode      string `mapstructure:"mode"` // none, remote or builtin
	BaseURL   string `mapstructure:"base_url"`
	ForumURL  string `mapstructure:"forum_url"`
	Timeout   string `mapstructure:"timeout"`
	UserAgent string `mapstructure:"user_agent"`
}

// Pipeline holds batch pipeline configuration
type Pipeline struct {
	TopN     int    `mapstructure:"top_n"`
	LLMDelay string `mapstructure:"llm_delay"`
}

// Store holds session persistence configuration
type Store struct {
	DataDir string `mapstructure:"data_dir"`
}

// Server holds HTTP API configuration
type Server struct {
	Host         string     `mapstructure:"host"`
	Port         int        `mapstructure:"port"`
	ReadTimeout  string     `mapstructure:"read_timeout"`
	WriteTimeout string     `mapstructure:"write_timeout"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS settings for the HTTP API
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".appscout")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)

	// LLM defaults
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")
	viper.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	viper.SetDefault("llm.anthropic.version", "2023-06-01")
	viper.SetDefault("llm.anthropic.max_tokens", 4096)
	viper.SetDefault("llm.anthropic.timeout", "120s")
	viper.SetDefault("llm.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("llm.gemini.max_tokens", 4096)
	viper.SetDefault("llm.breaker.failures", 5)
	viper.SetDefault("llm.breaker.open_timeout", "30s")

	// Catalog defaults
	viper.SetDefault("catalog.base_url", "https://itunes.apple.com")
	viper.SetDefault("catalog.country", "us")
	viper.SetDefault("catalog.results_per_keyword", 10)
	viper.SetDefault("catalog.max_keywords", 3)
	viper.SetDefault("catalog.top_n", 10)
	viper.SetDefault("catalog.delay", "200ms")
	viper.SetDefault("catalog.timeout", "15s")
	viper.SetDefault("catalog.cache_size", 256)

	// Enrichment defaults
	viper.SetDefault("enrichment.mode", "none")
	viper.SetDefault("enrichment.forum_url", "https://www.reddit.com")
	viper.SetDefault("enrichment.timeout", "20s")
	viper.SetDefault("enrichment.user_agent", "appscout/1.0")

	// Pipeline defaults
	viper.SetDefault("pipeline.top_n", 3)
	viper.SetDefault("pipeline.llm_delay", "500ms")

	// Store defaults
	viper.SetDefault("store.data_dir", ".appscout")

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "10m")
	viper.SetDefault("server.cors.enabled", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("llm.anthropic.api_key", []string{
		"ANTHROPIC_API_KEY",
		"CLAUDE_API_KEY",
	})

	bindEnvKeys("llm.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("llm.provider", []string{
		"LLM_PROVIDER",
	})

	bindEnvKeys("enrichment.base_url", []string{
		"ENRICHMENT_URL",
		"ENRICHMENT_BASE_URL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"APPSCOUT_DEBUG",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Store.DataDir != "" {
		config.Store.DataDir = expandPath(config.Store.DataDir)
	}
	config.Catalog.Country = strings.ToLower(strings.TrimSpace(config.Catalog.Country))
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"llm.anthropic.timeout":    config.LLM.Anthropic.Timeout,
		"llm.breaker.open_timeout": config.LLM.Breaker.OpenTimeout,
		"catalog.delay":            config.Catalog.Delay,
		"catalog.timeout":          config.Catalog.Timeout,
		"enrichment.timeout":       config.Enrichment.Timeout,
		"pipeline.llm_delay":       config.Pipeline.LLMDelay,
		"server.read_timeout":      config.Server.ReadTimeout,
		"server.write_timeout":     config.Server.WriteTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is internally consistent.
// API keys are checked lazily by the commands that need an LLM.
func validateConfig(config *Config) error {
	var errors []string

	switch config.LLM.Provider {
	case "anthropic", "gemini":
	default:
		errors = append(errors, fmt.Sprintf("Unknown LLM provider: %s. Supported: anthropic, gemini", config.LLM.Provider))
	}

	switch config.Enrichment.Mode {
	case "none", "builtin":
	case "remote":
		if config.Enrichment.BaseURL == "" {
			errors = append(errors, "Remote enrichment requires a base URL. Set ENRICHMENT_URL or enrichment.base_url")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown enrichment mode: %s. Supported: none, remote, builtin", config.Enrichment.Mode))
	}

	if config.Catalog.MaxKeywords <= 0 {
		errors = append(errors, "catalog.max_keywords must be positive")
	}
	if config.Catalog.TopN <= 0 {
		errors = append(errors, "catalog.top_n must be positive")
	}
	if config.Pipeline.TopN <= 0 {
		errors = append(errors, "pipeline.top_n must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// APIKey returns the key for the configured LLM provider, or an error naming the variable to set.
func (c *Config) APIKey() (string, error) {
	switch c.LLM.Provider {
	case "gemini":
		if !isValidAPIKey(c.LLM.Gemini.APIKey) {
			return "", fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or llm.gemini.api_key")
		}
		return c.LLM.Gemini.APIKey, nil
	default:
		if !isValidAPIKey(c.LLM.Anthropic.APIKey) {
			return "", fmt.Errorf("anthropic API key is required. Set ANTHROPIC_API_KEY or llm.anthropic.api_key")
		}
		return c.LLM.Anthropic.APIKey, nil
	}
}

// Duration parses a validated duration string, returning fallback when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-anthropic-key", "your-gemini-key",
		"YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
