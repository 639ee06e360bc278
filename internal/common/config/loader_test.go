package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
llm:
  provider: genai
  base_url: http://genai.local
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 200, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.Equal(t, 50, cfg.Ingestion.MaxFileSizeMB)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "tfidf", cfg.Embedding.Provider)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Embedding.Model)
	assert.Equal(t, "memory", cfg.Retrieval.Backend)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, []string{"Tesla", "Barry Callebaut", "Prysmian", "Carlsberg"}, cfg.Ingestion.KnownCustomers)
	assert.False(t, cfg.Pipeline.CustomerFilter)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("TOP_K_RESULTS", "3")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 100, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestLoadFromFile_GroqKeySelectsProvider(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: contract-qa\n"))
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
}

func TestLoadFromFile_InvalidEnvType(t *testing.T) {
	t.Setenv("TOP_K_RESULTS", "twelve")

	_, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_K_RESULTS must be an integer")
}

func TestValidateConfig_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "overlap not smaller than chunk size",
			mutate:  func(c *Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize },
			wantErr: "ingestion.chunk_overlap",
		},
		{
			name:    "top k too large",
			mutate:  func(c *Config) { c.Retrieval.TopK = 1000 },
			wantErr: "retrieval.top_k",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.LLM.Temperature = 3 },
			wantErr: "llm.temperature",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "bard" },
			wantErr: "llm.provider",
		},
		{
			name:    "elasticsearch backend without addresses",
			mutate:  func(c *Config) { c.Retrieval.Backend = "elasticsearch" },
			wantErr: "database.elasticsearch.addresses",
		},
		{
			name:    "redis sessions without address",
			mutate:  func(c *Config) { c.Sessions.Backend = "redis" },
			wantErr: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LLM: LLMConfig{Provider: "genai", BaseURL: "http://genai.local"}}
			applyDefaults(cfg)
			require.NoError(t, validateConfig(cfg))

			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_ReportsAllProblems(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "genai", BaseURL: "http://genai.local"}}
	applyDefaults(cfg)
	cfg.Retrieval.TopK = -1
	cfg.LLM.MaxTokens = -5

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.top_k")
	assert.Contains(t, err.Error(), "llm.max_tokens")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, "1.5s", GetDuration(1500).String())
}

func TestWorker_DefaultsFromCamunda(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
workers:
  contract-qa-summarize:
    enabled: false
  contract-qa-turn:
    enabled: true
    max_jobs_active: 2
`))
	require.NoError(t, err)

	route := cfg.Worker("contract-qa-route")
	assert.True(t, route.Enabled)
	assert.Equal(t, 5, route.MaxJobsActive)
	assert.Equal(t, 120000, route.Timeout)

	assert.False(t, cfg.Worker("contract-qa-summarize").Enabled)

	turn := cfg.Worker("contract-qa-turn")
	assert.Equal(t, 2, turn.MaxJobsActive)
	assert.Equal(t, 120000, turn.Timeout)
}
