package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/config"
	dbredis "github.com/kailas-cloud/errmatch/internal/db/redis"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/metrics"
	"github.com/kailas-cloud/errmatch/internal/repository/embcache"
	"github.com/kailas-cloud/errmatch/internal/transport/anthropic"
	"github.com/kailas-cloud/errmatch/internal/transport/onnx"
	"github.com/kailas-cloud/errmatch/internal/transport/openai"
	"github.com/kailas-cloud/errmatch/internal/usecase/embedding"
	"github.com/kailas-cloud/errmatch/internal/zeroshot"
)

// Embedders are the query and document chains over one base provider.
type Embedders struct {
	Query    domain.Embedder
	Document domain.Embedder
	Version  string
	closers  []func() error
}

// Close releases the provider and the cache connection.
func (e *Embedders) Close() error {
	return closeAll(e.closers, zap.NewNop())
}

// NewEmbedders builds provider -> cache -> instrumented -> instruction chains.
// The instruction wrapper is outermost so cache keys include the prefix.
func NewEmbedders(cfg config.Config, logger *zap.Logger) (*Embedders, error) {
	ec := cfg.Embedding
	version := domain.EmbedderVersion(ec.Provider, ec.Model, ec.Dimensions)
	out := &Embedders{Version: version}

	var base domain.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		base = openai.NewEmbedder(&openai.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	case config.ProviderONNX:
		e, err := onnx.NewEmbedder(onnx.Config{
			ModelPath:         ec.ModelPath,
			VocabPath:         ec.VocabPath,
			SharedLibraryPath: ec.SharedLibraryPath,
			Pooling:           ec.Pooling,
			MaxSeqLen:         ec.MaxSeqLen,
			Model:             ec.Model,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		if e.Dimensions() != ec.Dimensions {
			_ = e.Close()
			return nil, fmt.Errorf("embedding.dimensions is %d but model %s produces %d",
				ec.Dimensions, ec.Model, e.Dimensions())
		}
		base = e
		out.closers = append(out.closers, e.Close)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	chain := base
	if cc := cfg.EmbeddingCache; len(cc.Addrs) > 0 {
		cache, err := dbredis.NewStore(dbredis.Config{
			Addrs: cc.Addrs, Password: cc.Password, ClientName: "errmatch-embcache",
		})
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		out.closers = append(out.closers, closeFn(cache.Close))
		chain = embcache.New(chain, cache, embcache.Options{
			KeyPrefix: cfg.Database.KeyPrefix,
			Version:   version,
			TTL:       time.Duration(cc.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	chain = embedding.NewInstrumentedEmbedder(chain, ec.Provider, ec.Model, 0, logger)

	out.Query = withInstruction(chain, ec.QueryInstruction)
	out.Document = withInstruction(chain, ec.DocumentInstruction)
	return out, nil
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// NewClassifier builds the configured zero-shot classifier. The local
// provider reuses embed, so it scores in the catalog's vector space.
func NewClassifier(cfg config.ClassificationConfig, embed domain.Embedder, logger *zap.Logger) (domain.Classifier, error) {
	switch cfg.Provider {
	case config.ClassifierZeroShot:
		return zeroshot.New(embed, zeroshot.Options{
			Template:    cfg.HypothesisTemplate,
			Temperature: cfg.Temperature,
		}, logger), nil
	case config.ClassifierOpenAI:
		return openai.NewClassifier(&openai.ClassifierConfig{
			Config: openai.Config{
				APIKey:   cfg.APIKey,
				BaseURL:  cfg.BaseURL,
				Model:    cfg.Model,
				Provider: cfg.Provider,
				Logger:   logger,
			},
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case config.ClassifierAnthropic:
		c, err := anthropic.NewClassifier(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classification provider %q", cfg.Provider)
	}
}
