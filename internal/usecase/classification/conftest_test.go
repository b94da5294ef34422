package classification

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

type mockClassifier struct {
	classifyFn func(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error)
	calls      int
	lastText   string
	lastLabels []string
}

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error) {
	m.calls++
	m.lastText = text
	m.lastLabels = labels
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text, labels)
	}
	// uniform ranking in candidate order
	out := make([]domain.LabelScore, len(labels))
	for i, l := range labels {
		out[i] = domain.LabelScore{Label: l, Score: 1 / float64(len(labels))}
	}
	return out, nil
}

func newTestService(t *testing.T, opts Options) (*Service, *mockClassifier) {
	t.Helper()
	if opts.Provider == "" {
		opts.Provider = "stub"
	}
	cl := &mockClassifier{}
	return New(cl, opts, zap.NewNop()), cl
}
