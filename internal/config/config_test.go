package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) writeSettings(content string) {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.tempDir, ".braindump"), 0750))
	s.Require().NoError(os.WriteFile(filepath.Join(s.tempDir, ".braindump", "settings.yaml"), []byte(content), 0600))
}

func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultPort, cfg.Port)
	s.Equal(384, cfg.EmbeddingDimensions)
	s.Equal(2, cfg.ClusterMinSize)
	s.Equal(1, cfg.ClusterMinSamples)
	s.Equal(5, cfg.MatchCount)
	s.InDelta(0.3, cfg.MatchThreshold, 1e-9)
	s.Equal([]string{"*"}, cfg.CORSOrigins)
	s.False(cfg.EmbeddingEnabled())
	s.False(cfg.LLMEnabled())
}

func (s *ConfigSuite) TestPaths() {
	s.Contains(DataDir(), ".braindump")
	s.Contains(SettingsPath(), "settings.yaml")
}

func (s *ConfigSuite) TestEnsureAll() {
	s.Require().NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.Require().NoError(err)
	s.True(info.IsDir())

	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// Existing settings are left alone.
	s.NoError(EnsureSettings())

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultPort, cfg.Port)
}

func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settings      string
		expectedPort  int
		expectedModel string
		expectedCount int
	}{
		{
			name:          "no settings file",
			expectedPort:  DefaultPort,
			expectedModel: DefaultLLMModel,
			expectedCount: DefaultMatchCount,
		},
		{
			name:          "yaml settings",
			settings:      "BRAINDUMP_PORT: 8080\nBRAINDUMP_LLM_MODEL: llama3\n",
			expectedPort:  8080,
			expectedModel: "llama3",
			expectedCount: DefaultMatchCount,
		},
		{
			name:          "json settings",
			settings:      `{"BRAINDUMP_MATCH_COUNT": 8, "BRAINDUMP_PORT": 9000}`,
			expectedPort:  9000,
			expectedModel: DefaultLLMModel,
			expectedCount: 8,
		},
		{
			name:          "invalid settings returns defaults",
			settings:      "BRAINDUMP_PORT: [unclosed",
			expectedPort:  DefaultPort,
			expectedModel: DefaultLLMModel,
			expectedCount: DefaultMatchCount,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.tempDir = s.T().TempDir()
			os.Setenv("HOME", s.tempDir)
			if tt.settings != "" {
				s.writeSettings(tt.settings)
			}

			cfg, err := Load()
			s.NoError(err)
			s.Equal(tt.expectedPort, cfg.Port)
			s.Equal(tt.expectedModel, cfg.LLMModel)
			s.Equal(tt.expectedCount, cfg.MatchCount)
		})
	}
}

func (s *ConfigSuite) TestLoad_WireOnlyKeys() {
	s.writeSettings("BRAINDUMP_CORS_ORIGINS: \"https://a.example, https://b.example\"\n" +
		"BRAINDUMP_PROVIDER_TIMEOUT_SECONDS: 5\n" +
		"BRAINDUMP_EMBEDDING_CACHE_TTL_SECONDS: 60\n")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	s.Equal(5*time.Second, cfg.ProviderTimeout)
	s.Equal(time.Minute, cfg.EmbeddingCacheTTL)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":              "postgres://fallback",
		"PORT":                      "7000",
		"OPENAI_API_KEY":            "sk-shared",
		"BRAINDUMP_LLM_API_KEY":     "sk-llm",
		"BRAINDUMP_MATCH_THRESHOLD": "0.5",
		"BRAINDUMP_CORS_ORIGINS":    "http://localhost:8081,,",
		"BRAINDUMP_DB_MAX_CONNS":    "not-a-number",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "postgres://fallback", cfg.DatabaseURL)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "sk-shared", cfg.EmbeddingAPIKey)
	assert.Equal(t, "sk-llm", cfg.LLMAPIKey)
	assert.InDelta(t, 0.5, cfg.MatchThreshold, 1e-9)
	assert.Equal(t, []string{"http://localhost:8081"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultDBMaxConns, cfg.DBMaxConns)
	assert.True(t, cfg.EmbeddingEnabled())
	assert.True(t, cfg.LLMEnabled())
}

func TestApplyEnv_OmitDimensionsAndZeroThreshold(t *testing.T) {
	env := map[string]string{
		"BRAINDUMP_EMBEDDING_OMIT_DIMENSIONS": "true",
		"BRAINDUMP_MATCH_THRESHOLD":           "0",
	}
	cfg := Default()
	assert.False(t, cfg.EmbeddingOmitDimensions)
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.True(t, cfg.EmbeddingOmitDimensions)
	assert.Zero(t, cfg.MatchThreshold)
}

func TestApplyEnv_PrefixedWinsOverFallback(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":           "postgres://fallback",
		"BRAINDUMP_DATABASE_URL": "postgres://primary",
		"PORT":                   "7000",
		"BRAINDUMP_PORT":         "7100",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "postgres://primary", cfg.DatabaseURL)
	assert.Equal(t, 7100, cfg.Port)
}

func TestEnabled_LocalServerWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.EmbeddingBaseURL = "http://localhost:11434/v1"
	assert.True(t, cfg.EmbeddingEnabled())
	assert.False(t, cfg.LLMEnabled())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate(), "database url is required")

	cfg.DatabaseURL = "postgres://x"
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.MatchThreshold = 1
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.ClusterMinSize = 1
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.EmbeddingDimensions = 768
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Port = 70000
	assert.Error(t, bad.Validate())
}

func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: []string{}},
		{name: "single value", input: "a", expected: []string{"a"}},
		{name: "values with spaces", input: " a , b ", expected: []string{"a", "b"}},
		{name: "empty values filtered", input: "a,,b,,", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitTrim(tt.input))
		})
	}
}
