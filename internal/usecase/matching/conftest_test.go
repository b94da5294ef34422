package matching

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

type mockStore struct {
	nearestFn func(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error)
	versionFn func(ctx context.Context) (string, bool, error)
	lastK     int
}

func (m *mockStore) Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	m.lastK = k
	if m.nearestFn != nil {
		return m.nearestFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockStore) Version(ctx context.Context) (string, bool, error) {
	if m.versionFn != nil {
		return m.versionFn(ctx)
	}
	return testVersion, true, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
	last    string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.last = text
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

const testVersion = "stub/test/3"

func newTestService(t *testing.T, opts Options) (*Service, *mockStore, *mockEmbedder) {
	t.Helper()
	if opts.Version == "" {
		opts.Version = testVersion
	}
	if opts.Dimensions == 0 {
		opts.Dimensions = 3
	}
	st := &mockStore{}
	emb := &mockEmbedder{}
	return New(st, emb, opts, zap.NewNop()), st, emb
}

func cand(id int64, text, category string, distance float64) knownerror.Candidate {
	return knownerror.Candidate{
		Record:   knownerror.Reconstruct(id, text, "fix "+text, category, nil),
		Distance: distance,
	}
}
