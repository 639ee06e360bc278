package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	knownLLMProviders       = map[string]bool{"genai": true, "openai": true, "groq": true}
	knownEmbeddingProviders = map[string]bool{"tfidf": true, "genai": true, "openai": true}
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// on top, then applies .env and process environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads a single explicit config file.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyEnvOverrides honours the flat variable names operators already use
// for this service (GROQ_*, CHUNK_SIZE, TOP_K_RESULTS, ...).
func applyEnvOverrides(cfg *Config) error {
	var result *multierror.Error

	setString := func(name string, dst *string) {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
	setInt := func(name string, dst *int) {
		if val := os.Getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s must be an integer, got %q", name, val))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst *float64) {
		if val := os.Getenv(name); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s must be a number, got %q", name, val))
				return
			}
			*dst = f
		}
	}

	if val := os.Getenv("GROQ_API_KEY"); val != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = val
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = "groq"
		}
	}
	if cfg.LLM.APIKey == "" {
		setString("GENAI_API_KEY", &cfg.LLM.APIKey)
	}
	if cfg.LLM.APIKey == "" {
		setString("OPENAI_API_KEY", &cfg.LLM.APIKey)
	}
	if cfg.Embedding.APIKey == "" {
		setString("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	}
	setString("GROQ_MODEL", &cfg.LLM.Model)
	setFloat("GROQ_TEMPERATURE", &cfg.LLM.Temperature)
	setInt("GROQ_MAX_TOKENS", &cfg.LLM.MaxTokens)
	setString("EMBEDDING_MODEL", &cfg.Embedding.Model)
	setInt("CHUNK_SIZE", &cfg.Ingestion.ChunkSize)
	setInt("CHUNK_OVERLAP", &cfg.Ingestion.ChunkOverlap)
	setInt("MAX_FILE_SIZE_MB", &cfg.Ingestion.MaxFileSizeMB)
	setInt("TOP_K_RESULTS", &cfg.Retrieval.TopK)
	setString("PERSIST_DIR", &cfg.Retrieval.PersistDir)

	if cfg.Database.Redis.Address == "" {
		setString("REDIS_ADDRESS", &cfg.Database.Redis.Address)
	}
	if cfg.Database.Postgres.User == "" {
		setString("DB_USER", &cfg.Database.Postgres.User)
	}
	if cfg.Database.Postgres.Password == "" {
		setString("DB_PASSWORD", &cfg.Database.Postgres.Password)
	}

	return result.ErrorOrNil()
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "contract-qa"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 5
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 120000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "contract-passages"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "genai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "openai/gpt-oss-120b"
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "groq" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30000
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "tfidf"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10000
	}

	if cfg.Ingestion.DocumentsDir == "" {
		cfg.Ingestion.DocumentsDir = "./contracts"
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 1000
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 200
	}
	if cfg.Ingestion.MaxFileSizeMB == 0 {
		cfg.Ingestion.MaxFileSizeMB = 50
	}
	if len(cfg.Ingestion.KnownCustomers) == 0 {
		cfg.Ingestion.KnownCustomers = []string{"Tesla", "Barry Callebaut", "Prysmian", "Carlsberg"}
	}
	if cfg.Ingestion.PDFServiceURL == "" {
		cfg.Ingestion.PDFServiceURL = "http://localhost:8081"
	}
	if cfg.Ingestion.WatchDebounce == 0 {
		cfg.Ingestion.WatchDebounce = 2000
	}

	if cfg.Retrieval.Backend == "" {
		cfg.Retrieval.Backend = "memory"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 12
	}
	if cfg.Retrieval.PersistDir == "" {
		cfg.Retrieval.PersistDir = "./data"
	}
	if cfg.Retrieval.SearchTimeout == 0 {
		cfg.Retrieval.SearchTimeout = 5000
	}

	if cfg.Pipeline.TokenEncoding == "" {
		cfg.Pipeline.TokenEncoding = "cl100k_base"
	}
	if cfg.Pipeline.SummaryWordLimit == 0 {
		cfg.Pipeline.SummaryWordLimit = 500
	}

	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = "memory"
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = int((24 * time.Hour).Milliseconds())
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig checks types and ranges only; it reports every problem at
// once.
func validateConfig(cfg *Config) error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if cfg.Ingestion.ChunkSize <= 0 {
		fail("ingestion.chunk_size must be positive, got %d", cfg.Ingestion.ChunkSize)
	}
	if cfg.Ingestion.ChunkOverlap < 0 || cfg.Ingestion.ChunkOverlap >= cfg.Ingestion.ChunkSize {
		fail("ingestion.chunk_overlap must be in [0, chunk_size), got %d", cfg.Ingestion.ChunkOverlap)
	}
	if cfg.Ingestion.MaxFileSizeMB <= 0 {
		fail("ingestion.max_file_size_mb must be positive, got %d", cfg.Ingestion.MaxFileSizeMB)
	}
	if cfg.Retrieval.TopK < 1 || cfg.Retrieval.TopK > 100 {
		fail("retrieval.top_k must be in [1, 100], got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.Backend != "memory" && cfg.Retrieval.Backend != "elasticsearch" {
		fail("retrieval.backend must be memory or elasticsearch, got %q", cfg.Retrieval.Backend)
	}
	if cfg.Retrieval.Backend == "elasticsearch" && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		fail("database.elasticsearch.addresses is required for the elasticsearch backend")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		fail("llm.temperature must be in [0, 2], got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens <= 0 {
		fail("llm.max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.MaxRetries < 0 {
		fail("llm.max_retries must not be negative, got %d", cfg.LLM.MaxRetries)
	}
	if !knownLLMProviders[cfg.LLM.Provider] {
		fail("llm.provider %q is not supported", cfg.LLM.Provider)
	}
	if cfg.LLM.Provider == "genai" && cfg.LLM.BaseURL == "" {
		fail("llm.base_url is required for the genai provider")
	}
	if (cfg.LLM.Provider == "openai" || cfg.LLM.Provider == "groq") && cfg.LLM.APIKey == "" {
		fail("llm.api_key (or GROQ_API_KEY / OPENAI_API_KEY) is required for provider %s", cfg.LLM.Provider)
	}
	if !knownEmbeddingProviders[cfg.Embedding.Provider] {
		fail("embedding.provider %q is not supported", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Provider == "genai" && cfg.Embedding.BaseURL == "" {
		fail("embedding.base_url is required for the genai provider")
	}
	if cfg.Sessions.Backend != "memory" && cfg.Sessions.Backend != "redis" {
		fail("sessions.backend must be memory or redis, got %q", cfg.Sessions.Backend)
	}
	if cfg.Sessions.Backend == "redis" && cfg.Database.Redis.Address == "" {
		fail("database.redis.address is required for the redis session backend")
	}
	if cfg.Sessions.Archive && (cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "") {
		fail("database.postgres.host and database are required when sessions.archive is set")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		fail("camunda.broker_address is required when camunda.enabled is set")
	}
	if cfg.Pipeline.MaxContextTokens < 0 {
		fail("pipeline.max_context_tokens must not be negative, got %d", cfg.Pipeline.MaxContextTokens)
	}

	return result.ErrorOrNil()
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
