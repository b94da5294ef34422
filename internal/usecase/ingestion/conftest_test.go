package ingestion

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

type mockStore struct {
	replaceFn func(ctx context.Context, version string, records []knownerror.Record) (int, error)
	calls     int
	version   string
	records   []knownerror.Record
}

func (m *mockStore) Replace(ctx context.Context, version string, records []knownerror.Record) (int, error) {
	m.calls++
	if m.replaceFn != nil {
		return m.replaceFn(ctx, version, records)
	}
	m.version = version
	m.records = records
	return len(records), nil
}

// mockEmbedder returns a vector derived from the text length; no batch support.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1, 0}, TotalTokens: 1}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	return domain.BatchFallback(ctx, &m.mockEmbedder, texts)
}

const testVersion = "stub/test/3"

func newTestService(t *testing.T, embed domain.Embedder) (*Service, *mockStore) {
	t.Helper()
	st := &mockStore{}
	return New(st, embed, Options{Version: testVersion, Dimensions: 3}, zap.NewNop()), st
}

func entries() []knownerror.Entry {
	return []knownerror.Entry{
		{ErrorText: "npm ERR! code ERESOLVE", Solution: "npm install --legacy-peer-deps", Category: "Dependency Error"},
		{ErrorText: "SyntaxError: Unexpected token", Solution: "", Category: "Syntax Error"},
	}
}
