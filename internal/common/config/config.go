package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Camunda       CamundaConfig       `mapstructure:"camunda"`
	Database      DatabaseConfig      `mapstructure:"database"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Ingestion     IngestionConfig     `mapstructure:"ingestion"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Sessions      SessionConfig       `mapstructure:"sessions"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LLMConfig selects the text-generation backend. Provider "genai" talks to
// the internal gateway (/api/ai/generate); "openai" and "groq" use the
// OpenAI-compatible chat completions API.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
}

// EmbeddingConfig selects the embedder. "tfidf" runs in-process and needs no
// service.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type IngestionConfig struct {
	DocumentsDir     string            `mapstructure:"documents_dir"`
	ChunkSize        int               `mapstructure:"chunk_size"`
	ChunkOverlap     int               `mapstructure:"chunk_overlap"`
	MaxFileSizeMB    int               `mapstructure:"max_file_size_mb"`
	KnownCustomers   []string          `mapstructure:"known_customers"`
	CustomerOverride map[string]string `mapstructure:"customer_override"`
	PDFServiceURL    string            `mapstructure:"pdf_service_url"`
	Watch            bool              `mapstructure:"watch"`
	WatchDebounce    int               `mapstructure:"watch_debounce"` // milliseconds
}

// RetrievalConfig controls the passage store backend and search.
type RetrievalConfig struct {
	Backend       string `mapstructure:"backend"` // memory | elasticsearch
	TopK          int    `mapstructure:"top_k"`
	PersistDir    string `mapstructure:"persist_dir"`
	SearchTimeout int    `mapstructure:"search_timeout"` // milliseconds
}

type PipelineConfig struct {
	CustomerFilter   bool   `mapstructure:"customer_filter"`
	MaxContextTokens int    `mapstructure:"max_context_tokens"`
	TokenEncoding    string `mapstructure:"token_encoding"`
	PromptsFile      string `mapstructure:"prompts_file"`
	SummaryWordLimit int    `mapstructure:"summary_word_limit"`
}

type SessionConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
	TTL     int    `mapstructure:"ttl"`     // milliseconds
	Archive bool   `mapstructure:"archive"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

func (c RetrievalConfig) SearchTimeoutDuration() time.Duration {
	return GetDuration(c.SearchTimeout)
}

func (c LLMConfig) TimeoutDuration() time.Duration {
	return GetDuration(c.Timeout)
}

func (c IngestionConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Worker returns the settings for a job type. Job types without an entry
// run with the camunda defaults.
func (c *Config) Worker(taskType string) WorkerConfig {
	w, ok := c.Workers[taskType]
	if !ok {
		return WorkerConfig{Enabled: true, MaxJobsActive: c.Camunda.MaxJobsActive, Timeout: c.Camunda.Timeout}
	}
	if w.MaxJobsActive == 0 {
		w.MaxJobsActive = c.Camunda.MaxJobsActive
	}
	if w.Timeout == 0 {
		w.Timeout = c.Camunda.Timeout
	}
	return w
}
