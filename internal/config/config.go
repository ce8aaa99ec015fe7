// Package config provides configuration management for braindump.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort                = 5001
	DefaultDBMaxConns          = 10
	DefaultEmbeddingBaseURL    = "https://api.openai.com/v1"
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultEmbeddingDimensions = 384
	DefaultEmbeddingBatchSize  = 256
	DefaultEmbeddingCacheTTL   = 7 * 24 * time.Hour
	DefaultLLMBaseURL          = "https://api.openai.com/v1"
	DefaultLLMModel            = "gpt-4o-mini"
	DefaultLLMTokenBudget      = 2000
	DefaultProviderTimeout     = 30 * time.Second
	DefaultClusterMinSize      = 2
	DefaultClusterMinSamples   = 1
	DefaultMatchCount          = 5
	DefaultMatchThreshold      = 0.3
	DefaultLogLevel            = "info"
)

// DefaultCORSOrigins allows any origin, as the mobile client is served from many hosts.
var DefaultCORSOrigins = []string{"*"}

// Config holds braindump configuration.
type Config struct {
	DatabaseURL         string        `yaml:"BRAINDUMP_DATABASE_URL"`
	RedisURL            string        `yaml:"BRAINDUMP_REDIS_URL"`
	EmbeddingBaseURL    string        `yaml:"BRAINDUMP_EMBEDDING_URL"`
	EmbeddingModel      string        `yaml:"BRAINDUMP_EMBEDDING_MODEL"`
	EmbeddingAPIKey     string        `yaml:"BRAINDUMP_EMBEDDING_API_KEY"`
	LLMBaseURL          string        `yaml:"BRAINDUMP_LLM_URL"`
	LLMModel            string        `yaml:"BRAINDUMP_LLM_MODEL"`
	LLMAPIKey           string        `yaml:"BRAINDUMP_LLM_API_KEY"`
	LogLevel            string        `yaml:"BRAINDUMP_LOG_LEVEL"`
	CORSOrigins         []string      `yaml:"-"`
	EmbeddingCacheTTL   time.Duration `yaml:"-"`
	ProviderTimeout     time.Duration `yaml:"-"`
	MatchThreshold      float64       `yaml:"BRAINDUMP_MATCH_THRESHOLD"`
	Port                int           `yaml:"BRAINDUMP_PORT"`
	DBMaxConns          int           `yaml:"BRAINDUMP_DB_MAX_CONNS"`
	EmbeddingDimensions int           `yaml:"BRAINDUMP_EMBEDDING_DIMENSIONS"`
	EmbeddingBatchSize  int           `yaml:"BRAINDUMP_EMBEDDING_BATCH_SIZE"`
	LLMTokenBudget      int           `yaml:"BRAINDUMP_LLM_TOKEN_BUDGET"`
	ClusterMinSize      int           `yaml:"BRAINDUMP_CLUSTER_MIN_SIZE"`
	ClusterMinSamples   int           `yaml:"BRAINDUMP_CLUSTER_MIN_SAMPLES"`
	MatchCount          int           `yaml:"BRAINDUMP_MATCH_COUNT"`

	// EmbeddingOmitDimensions stops sending the dimensions field to the embedding server.
	EmbeddingOmitDimensions bool `yaml:"BRAINDUMP_EMBEDDING_OMIT_DIMENSIONS"`
}

// fileSettings holds the keys whose wire form differs from Config.
type fileSettings struct {
	CORSOrigins       string `yaml:"BRAINDUMP_CORS_ORIGINS"`
	EmbeddingCacheTTL int    `yaml:"BRAINDUMP_EMBEDDING_CACHE_TTL_SECONDS"`
	ProviderTimeout   int    `yaml:"BRAINDUMP_PROVIDER_TIMEOUT_SECONDS"`
}

// DataDir returns the data directory path.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".braindump")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:                DefaultPort,
		DBMaxConns:          DefaultDBMaxConns,
		EmbeddingBaseURL:    DefaultEmbeddingBaseURL,
		EmbeddingModel:      DefaultEmbeddingModel,
		EmbeddingDimensions: DefaultEmbeddingDimensions,
		EmbeddingBatchSize:  DefaultEmbeddingBatchSize,
		EmbeddingCacheTTL:   DefaultEmbeddingCacheTTL,
		LLMBaseURL:          DefaultLLMBaseURL,
		LLMModel:            DefaultLLMModel,
		LLMTokenBudget:      DefaultLLMTokenBudget,
		ProviderTimeout:     DefaultProviderTimeout,
		ClusterMinSize:      DefaultClusterMinSize,
		ClusterMinSamples:   DefaultClusterMinSamples,
		MatchCount:          DefaultMatchCount,
		MatchThreshold:      DefaultMatchThreshold,
		CORSOrigins:         append([]string(nil), DefaultCORSOrigins...),
		LogLevel:            DefaultLogLevel,
	}
}

// Load reads the settings file and applies environment overrides.
// An unreadable or invalid settings file is ignored and defaults are used.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		if err := cfg.apply(data); err != nil {
			cfg = Default()
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// apply overlays settings file content. JSON is accepted too, as a subset of YAML.
func (c *Config) apply(data []byte) error {
	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return err
	}
	var extra fileSettings
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return err
	}
	if extra.CORSOrigins != "" {
		next.CORSOrigins = splitTrim(extra.CORSOrigins)
	}
	if extra.EmbeddingCacheTTL > 0 {
		next.EmbeddingCacheTTL = time.Duration(extra.EmbeddingCacheTTL) * time.Second
	}
	if extra.ProviderTimeout > 0 {
		next.ProviderTimeout = time.Duration(extra.ProviderTimeout) * time.Second
	}
	*c = next
	return nil
}

// applyEnv applies BRAINDUMP_* variables, then the conventional fallbacks.
func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil && v > 0 {
			*dst = v
		}
	}
	seconds := func(key string, dst *time.Duration) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil && v > 0 {
			*dst = time.Duration(v) * time.Second
		}
	}

	if getenv("BRAINDUMP_DATABASE_URL") == "" {
		str("DATABASE_URL", &c.DatabaseURL)
	}
	if getenv("BRAINDUMP_PORT") == "" {
		num("PORT", &c.Port)
	}
	if c.EmbeddingAPIKey == "" && getenv("BRAINDUMP_EMBEDDING_API_KEY") == "" {
		str("OPENAI_API_KEY", &c.EmbeddingAPIKey)
	}
	if c.LLMAPIKey == "" && getenv("BRAINDUMP_LLM_API_KEY") == "" {
		str("OPENAI_API_KEY", &c.LLMAPIKey)
	}

	str("BRAINDUMP_DATABASE_URL", &c.DatabaseURL)
	str("BRAINDUMP_REDIS_URL", &c.RedisURL)
	str("BRAINDUMP_EMBEDDING_URL", &c.EmbeddingBaseURL)
	str("BRAINDUMP_EMBEDDING_MODEL", &c.EmbeddingModel)
	str("BRAINDUMP_EMBEDDING_API_KEY", &c.EmbeddingAPIKey)
	str("BRAINDUMP_LLM_URL", &c.LLMBaseURL)
	str("BRAINDUMP_LLM_MODEL", &c.LLMModel)
	str("BRAINDUMP_LLM_API_KEY", &c.LLMAPIKey)
	str("BRAINDUMP_LOG_LEVEL", &c.LogLevel)
	num("BRAINDUMP_PORT", &c.Port)
	num("BRAINDUMP_DB_MAX_CONNS", &c.DBMaxConns)
	num("BRAINDUMP_EMBEDDING_DIMENSIONS", &c.EmbeddingDimensions)
	num("BRAINDUMP_EMBEDDING_BATCH_SIZE", &c.EmbeddingBatchSize)
	num("BRAINDUMP_LLM_TOKEN_BUDGET", &c.LLMTokenBudget)
	num("BRAINDUMP_CLUSTER_MIN_SIZE", &c.ClusterMinSize)
	num("BRAINDUMP_CLUSTER_MIN_SAMPLES", &c.ClusterMinSamples)
	num("BRAINDUMP_MATCH_COUNT", &c.MatchCount)
	seconds("BRAINDUMP_EMBEDDING_CACHE_TTL_SECONDS", &c.EmbeddingCacheTTL)
	seconds("BRAINDUMP_PROVIDER_TIMEOUT_SECONDS", &c.ProviderTimeout)

	if v, err := strconv.ParseBool(strings.TrimSpace(getenv("BRAINDUMP_EMBEDDING_OMIT_DIMENSIONS"))); err == nil {
		c.EmbeddingOmitDimensions = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(getenv("BRAINDUMP_MATCH_THRESHOLD")), 64); err == nil {
		c.MatchThreshold = v
	}
	if v := getenv("BRAINDUMP_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitTrim(v)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database url is required (BRAINDUMP_DATABASE_URL or DATABASE_URL)"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.EmbeddingDimensions != DefaultEmbeddingDimensions {
		errs = append(errs, fmt.Errorf("embedding dimensions must be %d, got %d", DefaultEmbeddingDimensions, c.EmbeddingDimensions))
	}
	if c.ClusterMinSize < 2 {
		errs = append(errs, fmt.Errorf("cluster min size must be at least 2, got %d", c.ClusterMinSize))
	}
	if c.ClusterMinSamples < 1 {
		errs = append(errs, fmt.Errorf("cluster min samples must be at least 1, got %d", c.ClusterMinSamples))
	}
	if c.MatchThreshold < -1 || c.MatchThreshold >= 1 {
		errs = append(errs, fmt.Errorf("match threshold must be in [-1, 1), got %v", c.MatchThreshold))
	}
	if c.MatchCount <= 0 {
		errs = append(errs, fmt.Errorf("match count must be positive, got %d", c.MatchCount))
	}
	return errors.Join(errs...)
}

// EmbeddingEnabled reports whether an embedding provider is configured.
// A non-default URL is enough, since local servers need no key.
func (c *Config) EmbeddingEnabled() bool {
	return c.EmbeddingAPIKey != "" || (c.EmbeddingBaseURL != "" && c.EmbeddingBaseURL != DefaultEmbeddingBaseURL)
}

// LLMEnabled reports whether a language model is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != "" || (c.LLMBaseURL != "" && c.LLMBaseURL != DefaultLLMBaseURL)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]interface{}{
		"BRAINDUMP_PORT":                DefaultPort,
		"BRAINDUMP_EMBEDDING_URL":       DefaultEmbeddingBaseURL,
		"BRAINDUMP_EMBEDDING_MODEL":     DefaultEmbeddingModel,
		"BRAINDUMP_LLM_URL":             DefaultLLMBaseURL,
		"BRAINDUMP_LLM_MODEL":           DefaultLLMModel,
		"BRAINDUMP_CLUSTER_MIN_SIZE":    DefaultClusterMinSize,
		"BRAINDUMP_CLUSTER_MIN_SAMPLES": DefaultClusterMinSamples,
		"BRAINDUMP_MATCH_COUNT":         DefaultMatchCount,
		"BRAINDUMP_MATCH_THRESHOLD":     DefaultMatchThreshold,
		"BRAINDUMP_LOG_LEVEL":           DefaultLogLevel,
	}
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and default settings.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// splitTrim splits a comma-separated list and drops empty entries.
func splitTrim(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
