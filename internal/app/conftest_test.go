package app

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/errmatch/internal/config"
	"github.com/kailas-cloud/errmatch/internal/domain"
)

const testDims = 64

// bagEmbedder hashes lowercase words into a fixed number of buckets, so texts
// sharing words land close together.
type bagEmbedder struct{}

func (bagEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, testDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDims]++
	}
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: len(words), TotalTokens: len(words)}, nil
}

// fixedClassifier always prefers label.
type fixedClassifier struct {
	label string
}

func (c fixedClassifier) Classify(_ context.Context, _ string, labels []string) ([]domain.LabelScore, error) {
	out := make([]domain.LabelScore, len(labels))
	for i, l := range labels {
		out[i] = domain.LabelScore{Label: l, Score: 0}
		if l == c.label {
			out[i].Score = 1
		}
	}
	return out, nil
}

func testConfig() config.Config {
	cfg := config.Config{
		Database:       config.DatabaseConfig{Driver: config.DriverMemory},
		Classification: config.ClassificationConfig{Provider: config.ClassifierZeroShot},
	}
	cfg.ApplyDefaults()
	cfg.Embedding.Dimensions = testDims
	return cfg
}
