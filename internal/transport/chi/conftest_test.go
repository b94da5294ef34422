package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	healthuc "github.com/kailas-cloud/errmatch/internal/usecase/health"
)

type mockMatcher struct {
	fn func(ctx context.Context, text string) (knownerror.Match, bool, error)
}

func (m *mockMatcher) FindBestMatch(ctx context.Context, text string) (knownerror.Match, bool, error) {
	if m.fn == nil {
		return knownerror.Match{}, false, nil
	}
	return m.fn(ctx, text)
}

type mockClassifier struct {
	fn func(ctx context.Context, text string, labels []string) (domain.Classification, error)
}

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) (domain.Classification, error) {
	return m.fn(ctx, text, labels)
}

type mockTriager struct {
	fn func(ctx context.Context, text string, labels []string) (domain.Verdict, error)
}

func (m *mockTriager) Triage(ctx context.Context, text string, labels []string) (domain.Verdict, error) {
	return m.fn(ctx, text, labels)
}

type mockReseeder struct {
	got []knownerror.Entry
	err error
}

func (m *mockReseeder) Reseed(_ context.Context, entries []knownerror.Entry) (int, error) {
	m.got = entries
	if m.err != nil {
		return 0, m.err
	}
	return len(entries), nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func npmMatch() knownerror.Match {
	rec := knownerror.Reconstruct(1,
		"npm ERR! ERESOLVE unable to resolve dependency tree",
		"Check package.json for conflicting dependencies.",
		"Dependency Error", nil)
	return knownerror.Match{Record: rec, Distance: 0.03, Similarity: 0.97}
}

// newTestRouter fills unset dependencies with benign mocks.
func newTestRouter(t *testing.T, deps Deps, apiKeys ...string) http.Handler {
	t.Helper()
	if deps.Matcher == nil {
		deps.Matcher = &mockMatcher{}
	}
	if deps.Reseeder == nil {
		deps.Reseeder = &mockReseeder{}
	}
	if deps.Health == nil {
		deps.Health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewRouter(NewServer(deps, zap.NewNop()), apiKeys, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}
