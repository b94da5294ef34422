package errmatch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/errmatch/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	database config.DatabaseConfig

	// embedder and embedding are mutually exclusive; the last option wins.
	embedder      Embedder
	embedderModel string
	embedding     *config.EmbeddingConfig
	dims          int

	classifier     Classifier
	classification config.ClassificationConfig

	minSimilarity float64
	defaultLabels []string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres stores the knowledge base in Postgres with pgvector.
// An empty url leaves the client without a database, as when DATABASE_URL is unset.
func WithPostgres(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database.Driver = config.DriverPostgres
		c.database.URL = url
	})
}

// WithRedis stores the knowledge base in Redis with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database.Driver = config.DriverRedis
		c.database.Addrs = []string{addr}
		c.database.Password = password
	})
}

// WithSQLite stores the knowledge base in a SQLite file with sqlite-vec.
// ":memory:" keeps it in process.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database.Driver = config.DriverSQLite
		c.database.Path = path
	})
}

// WithMemory keeps the knowledge base in process memory.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.database.Driver = config.DriverMemory
	})
}

// WithKeyPrefix namespaces Redis keys. Default: "errmatch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database.KeyPrefix = prefix
	})
}

// WithEmbedder sets a caller-provided embedding model. model and dimensions
// identify its vector space: a catalog seeded under one identity is not
// queried under another.
func WithEmbedder(e Embedder, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.embedderModel = model
		c.embedding = nil
		c.setDimensions(dimensions)
	})
}

// WithONNX embeds locally with a sentence-transformer exported to ONNX.
// libPath may be empty to use the onnxruntime library on the default search path.
func WithONNX(modelPath, vocabPath, libPath string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = nil
		c.embedding = &config.EmbeddingConfig{
			Provider:          config.ProviderONNX,
			ModelPath:         modelPath,
			VocabPath:         vocabPath,
			SharedLibraryPath: libPath,
			Dimensions:        c.dimensions(),
		}
	})
}

// WithOpenAI embeds through an OpenAI-compatible embeddings API.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = nil
		c.embedding = &config.EmbeddingConfig{
			Provider:   config.ProviderOpenAI,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: c.dimensions(),
		}
	})
}

// WithVectorDimensions overrides the embedding dimension for WithONNX and WithOpenAI.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.setDimensions(dim)
	})
}

// WithClassifier sets a caller-provided zero-shot classifier.
// By default the client scores labels with its own embedder.
func WithClassifier(cl Classifier) Option {
	return optionFunc(func(c *clientConfig) {
		c.classifier = cl
	})
}

// WithOpenAIClassifier classifies with an OpenAI chat model.
func WithOpenAIClassifier(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.classifier = nil
		c.classification.Provider = config.ClassifierOpenAI
		c.classification.APIKey = apiKey
		c.classification.Model = model
	})
}

// WithAnthropicClassifier classifies with an Anthropic model.
func WithAnthropicClassifier(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.classifier = nil
		c.classification.Provider = config.ClassifierAnthropic
		c.classification.APIKey = apiKey
		c.classification.Model = model
	})
}

// WithTriagePolicy sets the similarity a catalogued match needs to win a
// triage, and the labels used when a caller passes none.
// Defaults: 0.75 and no labels.
func WithTriagePolicy(minSimilarity float64, defaultLabels ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.minSimilarity = minSimilarity
		c.defaultLabels = defaultLabels
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

func (c *clientConfig) dimensions() int {
	if c.embedding != nil && c.embedding.Dimensions > 0 {
		return c.embedding.Dimensions
	}
	return c.dims
}

func (c *clientConfig) setDimensions(dim int) {
	c.dims = dim
	if c.embedding != nil {
		c.embedding.Dimensions = dim
	}
}
