package triage

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

type mockMatcher struct {
	findFn func(ctx context.Context, errorText string) (knownerror.Match, bool, error)
}

func (m *mockMatcher) FindBestMatch(ctx context.Context, errorText string) (knownerror.Match, bool, error) {
	if m.findFn != nil {
		return m.findFn(ctx, errorText)
	}
	return knownerror.Match{}, false, nil
}

type mockClassifier struct {
	classifyFn func(ctx context.Context, text string, labels []string) (domain.Classification, error)
	calls      int
	lastLabels []string
}

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) (domain.Classification, error) {
	m.calls++
	m.lastLabels = labels
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text, labels)
	}
	return domain.Classification{Ranked: []domain.LabelScore{{Label: labels[0], Score: 0.8}}}, nil
}

func newTestService(t *testing.T, opts Options) (*Service, *mockMatcher, *mockClassifier) {
	t.Helper()
	mm := &mockMatcher{}
	mc := &mockClassifier{}
	return New(mm, mc, opts, zap.NewNop()), mm, mc
}

func matchWith(similarity float64) func(context.Context, string) (knownerror.Match, bool, error) {
	return func(context.Context, string) (knownerror.Match, bool, error) {
		rec := knownerror.Reconstruct(1, "npm ERR! code ERESOLVE", "npm install --legacy-peer-deps", "Dependency Error", nil)
		return knownerror.Match{Record: rec, Distance: 1 - similarity, Similarity: similarity}, true, nil
	}
}
