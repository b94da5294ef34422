package errmatch

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const testDims = 64

// bagEmbedder hashes lowercase words into buckets so texts sharing words land close together.
type bagEmbedder struct {
	calls int
}

func (b *bagEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	b.calls++
	vec := make([]float32, testDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%testDims]++
	}
	return EmbeddingResult{Embedding: vec, TotalTokens: len(words)}, nil
}

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockClassifier struct {
	fn func(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error) {
	return m.fn(ctx, text, labels)
}

// prefer returns a classifier that puts label first with confidence 0.8.
func prefer(label string) *mockClassifier {
	return &mockClassifier{fn: func(_ context.Context, _ string, labels []string) ([]LabelScore, error) {
		out := make([]LabelScore, len(labels))
		rest := 0.2 / float64(len(labels))
		for i, l := range labels {
			out[i] = LabelScore{Label: l, Score: rest}
			if l == label {
				out[i].Score = 0.8
			}
		}
		return out, nil
	}}
}
