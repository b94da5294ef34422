// Package zeroshot classifies text against free-form labels by comparing its
// embedding with the embeddings of one hypothesis sentence per label.
package zeroshot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

const (
	// LabelPlaceholder is replaced by the label in the hypothesis template.
	LabelPlaceholder = "{label}"
	// DefaultTemplate turns a label into an entailment-style hypothesis.
	DefaultTemplate = "This error is a {label}."
	// DefaultTemperature sharpens cosine similarities (which sit in a narrow band) before softmax.
	DefaultTemperature = 0.05

	maxCachedLabels = 4096
)

// Options configures hypothesis construction and score calibration.
type Options struct {
	Template    string
	Temperature float64
}

// Classifier scores labels by softmax over text/hypothesis cosine similarity.
// Hypothesis embeddings are cached per hypothesis text.
type Classifier struct {
	embed       domain.Embedder
	template    string
	temperature float64
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// New creates a zero-shot classifier on top of an embedder.
func New(embed domain.Embedder, opts Options, logger *zap.Logger) *Classifier {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	return &Classifier{
		embed:       embed,
		template:    opts.Template,
		temperature: opts.Temperature,
		logger:      logger,
		cache:       make(map[string][]float32),
	}
}

// Classify returns one score per label, in label order. Scores sum to 1.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error) {
	if len(labels) == 0 {
		return nil, domain.ErrNoLabels
	}

	res, err := c.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	hyps, err := c.hypothesisVectors(ctx, labels)
	if err != nil {
		return nil, err
	}

	logits := make([]float64, len(labels))
	for i, hv := range hyps {
		if len(hv) != len(res.Embedding) {
			return nil, fmt.Errorf("label %q: %d dims vs text %d: %w",
				labels[i], len(hv), len(res.Embedding), domain.ErrVectorDimMismatch)
		}
		logits[i] = domain.Similarity(domain.CosineDistance(res.Embedding, hv)) / c.temperature
	}

	probs := softmax(logits)
	out := make([]domain.LabelScore, len(labels))
	for i, l := range labels {
		out[i] = domain.LabelScore{Label: l, Score: probs[i]}
	}
	return out, nil
}

// HealthCheck forwards to the embedder when it supports health checks.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if hc, ok := c.embed.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Hypothesis renders the template for one label.
func (c *Classifier) Hypothesis(label string) string {
	return strings.ReplaceAll(c.template, LabelPlaceholder, label)
}

func (c *Classifier) hypothesisVectors(ctx context.Context, labels []string) ([][]float32, error) {
	out := make([][]float32, len(labels))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, l := range labels {
		h := c.Hypothesis(l)
		if v, ok := c.cache[h]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, h)
		missingIdx = append(missingIdx, i)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	res, err := domain.EmbedAll(ctx, c.embed, missing)
	if err != nil {
		return nil, fmt.Errorf("embed %d hypotheses: %w", len(missing), err)
	}

	c.mu.Lock()
	if len(c.cache)+len(missing) > maxCachedLabels {
		c.logger.Debug("Hypothesis cache reset", zap.Int("size", len(c.cache)))
		c.cache = make(map[string][]float32, len(missing))
	}
	for j, i := range missingIdx {
		out[i] = res.Embeddings[j]
		c.cache[missing[j]] = res.Embeddings[j]
	}
	c.mu.Unlock()

	return out, nil
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
