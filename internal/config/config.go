package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the errmatch configuration.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	Database       DatabaseConfig       `yaml:"database"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embedding_cache"`
	Classification ClassificationConfig `yaml:"classification"`
	Matching       MatchingConfig       `yaml:"matching"`
	Triage         TriageConfig         `yaml:"triage"`
	Ingestion      IngestionConfig      `yaml:"ingestion"`
	Auth           AuthConfig           `yaml:"auth"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig holds knowledge base store settings.
type DatabaseConfig struct {
	Driver           string      `yaml:"driver"` // postgres, redis, sqlite, memory (default: postgres)
	URL              string      `yaml:"url"`    // postgres connection string, usually ${DATABASE_URL}
	MaxConns         int32       `yaml:"max_conns"`
	Addrs            []string    `yaml:"addrs"` // redis
	Password         string      `yaml:"password"`
	KeyPrefix        string      `yaml:"key_prefix"`
	Path             string      `yaml:"path"` // sqlite file, ":memory:" allowed
	ReadinessTimeout int         `yaml:"readiness_timeout_sec"`
	Index            IndexConfig `yaml:"index"`
}

// IndexConfig holds vector index settings shared by postgres and redis.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw, flat
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
)

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, onnx
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	ModelPath           string `yaml:"model_path"` // onnx model file
	VocabPath           string `yaml:"vocab_path"` // WordPiece vocab.txt
	SharedLibraryPath   string `yaml:"shared_library_path"`
	Pooling             string `yaml:"pooling"` // cls, mean
	MaxSeqLen           int    `yaml:"max_seq_len"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// EmbeddingCacheConfig holds the redis-backed embedding cache settings.
// The cache is disabled when Addrs is empty.
type EmbeddingCacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// Classifier providers.
const (
	ClassifierZeroShot  = "zeroshot"
	ClassifierOpenAI    = "openai"
	ClassifierAnthropic = "anthropic"
)

// ClassificationConfig holds zero-shot classifier settings.
type ClassificationConfig struct {
	Provider           string  `yaml:"provider"` // zeroshot, openai, anthropic
	Model              string  `yaml:"model"`
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	MaxTokens          int     `yaml:"max_tokens"`
	WindowChars        int     `yaml:"window_chars"`
	HypothesisTemplate string  `yaml:"hypothesis_template"`
	Temperature        float64 `yaml:"temperature"`
	TimeoutSec         int     `yaml:"timeout_sec"`
}

// Timeout returns the classifier deadline. Zero means none.
func (c ClassificationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// MatchingConfig holds similarity path settings.
type MatchingConfig struct {
	ClipNegative bool `yaml:"clip_negative"`
	TimeoutSec   int  `yaml:"timeout_sec"`
	Candidates   int  `yaml:"candidates"`
	// WindowChars bounds the query text embedded, keeping its tail.
	WindowChars int `yaml:"window_chars"`
}

// Timeout returns the matching deadline. Zero means none.
func (c MatchingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TriageConfig holds the combined policy settings.
type TriageConfig struct {
	MinSimilarity float64  `yaml:"min_similarity"`
	DefaultLabels []string `yaml:"default_labels"`
}

// IngestionConfig holds reseed settings.
type IngestionConfig struct {
	CatalogPath string `yaml:"catalog_path"` // empty: built-in catalog
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded into the process environment first.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	LoadDotEnv()

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads .env without overriding variables already set. A missing file is not an error.
func LoadDotEnv() {
	if fileExists(".env") {
		_ = godotenv.Load(".env")
	}
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	// Unset ${VAR} list items expand to empty strings.
	c.Database.Addrs = compact(c.Database.Addrs)
	c.EmbeddingCache.Addrs = compact(c.EmbeddingCache.Addrs)
	c.Auth.APIKeys = compact(c.Auth.APIKeys)

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "errmatch:"
	}
	if c.Database.Path == "" {
		c.Database.Path = "errmatch.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Index.Algorithm == "" {
		c.Database.Index.Algorithm = "hnsw"
	}
	if c.Database.Index.HNSWM <= 0 {
		c.Database.Index.HNSWM = 16
	}
	if c.Database.Index.HNSWEFConstruct <= 0 {
		c.Database.Index.HNSWEFConstruct = 64
	}
	c.applyEmbeddingDefaults()
	if c.EmbeddingCache.TTLSec <= 0 {
		c.EmbeddingCache.TTLSec = 7 * 24 * 3600
	}
	if c.Classification.Provider == "" {
		c.Classification.Provider = ClassifierZeroShot
	}
	if c.Classification.Model == "" {
		switch c.Classification.Provider {
		case ClassifierOpenAI:
			c.Classification.Model = "gpt-4o-mini"
		case ClassifierAnthropic:
			c.Classification.Model = "claude-3-5-haiku-latest"
		}
	}
	if c.Classification.WindowChars <= 0 {
		c.Classification.WindowChars = 2048
	}
	if c.Classification.HypothesisTemplate == "" {
		c.Classification.HypothesisTemplate = "This error is a {label}."
	}
	if c.Classification.Temperature <= 0 {
		c.Classification.Temperature = 0.05
	}
	if c.Classification.MaxTokens <= 0 {
		c.Classification.MaxTokens = 512
	}
	if c.Matching.Candidates <= 0 {
		c.Matching.Candidates = 5
	}
	if c.Matching.WindowChars <= 0 {
		c.Matching.WindowChars = 2048
	}
	if c.Triage.MinSimilarity == 0 {
		c.Triage.MinSimilarity = 0.75
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = ProviderONNX
	}
	if e.Model == "" {
		switch e.Provider {
		case ProviderOpenAI:
			e.Model = "text-embedding-3-small"
		default:
			e.Model = "all-MiniLM-L6-v2"
		}
	}
	if e.Dimensions <= 0 {
		switch e.Provider {
		case ProviderOpenAI:
			e.Dimensions = 1536
		default:
			e.Dimensions = 384
		}
	}
	if e.Pooling == "" {
		e.Pooling = "cls"
	}
	if e.MaxSeqLen <= 0 {
		e.MaxSeqLen = 128
	}
}

// Validate checks the configuration for correctness.
// A missing database.url is not rejected here: commands that need the store
// report it with their own error envelope.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	default:
		return fmt.Errorf("database.driver must be one of postgres, redis, sqlite, memory, got %q", c.Database.Driver)
	}
	switch c.Database.Index.Algorithm {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("database.index.algorithm must be \"hnsw\" or \"flat\", got %q", c.Database.Index.Algorithm)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI:
	case ProviderONNX:
		if c.Embedding.Pooling != "cls" && c.Embedding.Pooling != "mean" {
			return fmt.Errorf("embedding.pooling must be \"cls\" or \"mean\", got %q", c.Embedding.Pooling)
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"onnx\", got %q", c.Embedding.Provider)
	}
	switch c.Classification.Provider {
	case ClassifierZeroShot, ClassifierOpenAI, ClassifierAnthropic:
	default:
		return fmt.Errorf(
			"classification.provider must be one of zeroshot, openai, anthropic, got %q",
			c.Classification.Provider,
		)
	}
	if !strings.Contains(c.Classification.HypothesisTemplate, "{label}") {
		return fmt.Errorf("classification.hypothesis_template must contain {label}")
	}
	if c.Triage.MinSimilarity < -1 || c.Triage.MinSimilarity > 1 {
		return fmt.Errorf("triage.min_similarity must be in [-1, 1], got %v", c.Triage.MinSimilarity)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
