// Package onnx runs a local sentence-transformer encoder through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/metrics"
)

const provider = "onnx"

// Config describes a local model export.
type Config struct {
	ModelPath         string
	VocabPath         string
	SharedLibraryPath string
	Pooling           string
	MaxSeqLen         int
	Model             string
	Logger            *zap.Logger
}

// Embedder implements domain.Embedder and domain.BatchEmbedder on a local model.
type Embedder struct {
	mu      sync.RWMutex
	sess    *session
	tok     *tokenizer
	dim     int
	pooling string
	model   string
	logger  *zap.Logger
}

// NewEmbedder loads the vocabulary and the model.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return nil, errors.New("onnx: model_path and vocab_path are required")
	}
	switch cfg.Pooling {
	case "":
		cfg.Pooling = PoolCLS
	case PoolCLS, PoolMean:
	default:
		return nil, fmt.Errorf("onnx: unknown pooling %q", cfg.Pooling)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	v, err := loadVocabFile(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}

	sess, err := newSession(cfg.ModelPath, cfg.SharedLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}

	cfg.Logger.Info("onnx model loaded",
		zap.String("model", cfg.Model),
		zap.Int64("hidden_dim", sess.hiddenDim),
		zap.String("pooling", cfg.Pooling),
		zap.Bool("token_type_ids", sess.withTypes),
	)

	return &Embedder{
		sess:    sess,
		tok:     newTokenizer(v, cfg.MaxSeqLen),
		dim:     int(sess.hiddenDim),
		pooling: cfg.Pooling,
		model:   cfg.Model,
		logger:  cfg.Logger,
	}, nil
}

// Dimensions returns the encoder's hidden size.
func (e *Embedder) Dimensions() int {
	return e.dim
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed runs one padded inference over texts. Token counts include [CLS] and [SEP].
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.BatchEmbeddingResult{}, domain.TimeoutError(ctx, err)
	}

	b := e.tok.encodeBatch(texts)
	start := time.Now()

	e.mu.RLock()
	if e.sess == nil {
		e.mu.RUnlock()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("onnx: embedder closed: %w", domain.ErrEmbeddingProviderError)
	}
	hidden, err := e.sess.run(b)
	dim := e.sess.hiddenDim
	e.mu.RUnlock()

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "inference").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("onnx: %w: %w", domain.ErrEmbeddingProviderError, err)
	}

	vecs, err := pool(e.pooling, hidden, b.attentionMask, b.size, b.seqLen, dim)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("onnx: %w: %w", domain.ErrEmbeddingProviderError, err)
	}

	tokens := 0
	for _, m := range b.attentionMask {
		tokens += int(m)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.model).Observe(time.Since(start).Seconds())
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.model, "total").Add(float64(tokens))

	return domain.BatchEmbeddingResult{Embeddings: vecs, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// HealthCheck embeds a probe string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("onnx health: %w", err)
	}
	return nil
}

// Close releases the session. Later calls fail with ErrEmbeddingProviderError.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return nil
	}
	err := e.sess.close()
	e.sess = nil
	return err
}
