package errmatch

import (
	"context"
	"errors"
	"testing"
)

const npmText = "npm ERR! ERESOLVE unable to resolve dependency tree"

func newMemoryClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithMemory(), WithEmbedder(&bagEmbedder{}, "bag", testDims)}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithMemory())
	if err == nil {
		t.Fatal("expected error when no embedder configured")
	}
}

func TestNew_EmbedderWithoutDimensions(t *testing.T) {
	_, err := New(context.Background(), WithMemory(), WithEmbedder(&bagEmbedder{}, "bag", 0))
	if err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestNew_ONNXRequiresModel(t *testing.T) {
	_, err := New(context.Background(), WithMemory(), WithONNX("", "", ""))
	if err == nil {
		t.Fatal("expected error for missing model path")
	}
}

func TestClient_ReseedAndMatch(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t)

	n, err := c.Reseed(ctx, nil)
	if err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	if want := len(DefaultCatalog()); n != want {
		t.Errorf("seeded %d, want %d", n, want)
	}

	m, found, err := c.FindBestMatch(ctx, npmText)
	if err != nil {
		t.Fatalf("FindBestMatch: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if m.ID != 1 || m.Category != "Dependency Error" || m.ErrorText != npmText {
		t.Errorf("match = %+v", m)
	}
	if m.Similarity < 0.999 {
		t.Errorf("similarity = %v, want ~1", m.Similarity)
	}
	if c.EmbedderVersion() != "custom/bag/64" {
		t.Errorf("version = %q", c.EmbedderVersion())
	}
}

func TestClient_FindBestMatch_EmptyCatalog(t *testing.T) {
	c := newMemoryClient(t)
	_, found, err := c.FindBestMatch(context.Background(), "boom")
	if err != nil {
		t.Fatalf("FindBestMatch: %v", err)
	}
	if found {
		t.Error("expected no match on an empty catalog")
	}
}

func TestClient_FindBestMatch_EmptyInput(t *testing.T) {
	c := newMemoryClient(t)
	_, _, err := c.FindBestMatch(context.Background(), " \r\n ")
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestClient_ReseedInvalidKeepsCatalog(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t)
	if _, err := c.Reseed(ctx, nil); err != nil {
		t.Fatalf("Reseed: %v", err)
	}

	_, err := c.Reseed(ctx, []KnownError{{ErrorText: "x", Category: ""}})
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}
	if _, found, _ := c.FindBestMatch(ctx, npmText); !found {
		t.Error("previous catalog lost after a rejected reseed")
	}
}

func TestClient_NoDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithEmbedder(&bagEmbedder{}, "bag", testDims))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, _, err := c.FindBestMatch(ctx, npmText); !errors.Is(err, ErrDatabaseNotConfigured) {
		t.Errorf("FindBestMatch err = %v, want ErrDatabaseNotConfigured", err)
	}
	if _, err := c.Reseed(ctx, nil); !errors.Is(err, ErrDatabaseNotConfigured) {
		t.Errorf("Reseed err = %v, want ErrDatabaseNotConfigured", err)
	}
	if err := c.Migrate(ctx); !errors.Is(err, ErrDatabaseNotConfigured) {
		t.Errorf("Migrate err = %v, want ErrDatabaseNotConfigured", err)
	}

	labels := []string{"Dependency Error", "Runtime Error"}
	res, err := c.Classify(ctx, "TypeError: Cannot read property 'x' of undefined", labels)
	if err != nil {
		t.Fatalf("Classify without database: %v", err)
	}
	if res.Category != labels[0] && res.Category != labels[1] {
		t.Errorf("category %q not among labels", res.Category)
	}
	if len(res.Ranked) != len(labels) {
		t.Errorf("ranked = %v", res.Ranked)
	}

	h := c.Health(ctx)
	if h.Checks["store"] != "not_configured" {
		t.Errorf("health checks = %v", h.Checks)
	}
}

func TestClient_Classify_CustomClassifier(t *testing.T) {
	c := newMemoryClient(t, WithClassifier(prefer("Runtime Error")))

	res, err := c.Classify(context.Background(), "panic: nil map", []string{"Syntax Error", "Runtime Error"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != "Runtime Error" || res.Confidence != 0.8 {
		t.Errorf("classification = %+v", res)
	}
}

func TestClient_Classify_Errors(t *testing.T) {
	c := newMemoryClient(t, WithClassifier(prefer("a")))
	ctx := context.Background()

	tests := []struct {
		name   string
		text   string
		labels []string
		want   error
	}{
		{"empty text", "  ", []string{"a"}, ErrEmptyInput},
		{"no labels", "boom", nil, ErrNoLabels},
		{"duplicate labels", "boom", []string{"a", "a"}, ErrInvalidLabels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Classify(ctx, tt.text, tt.labels); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_Classify_ProviderError(t *testing.T) {
	failing := &mockClassifier{fn: func(context.Context, string, []string) ([]LabelScore, error) {
		return nil, errors.New("upstream down")
	}}
	c := newMemoryClient(t, WithClassifier(failing))

	_, err := c.Classify(context.Background(), "boom", []string{"a"})
	if !errors.Is(err, ErrClassifierProviderError) {
		t.Errorf("err = %v, want ErrClassifierProviderError", err)
	}
}

func TestClient_Triage(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t,
		WithClassifier(prefer("Runtime Error")),
		WithTriagePolicy(0.9, "Runtime Error", "Test Failure"),
	)
	if _, err := c.Reseed(ctx, nil); err != nil {
		t.Fatalf("Reseed: %v", err)
	}

	v, err := c.Triage(ctx, npmText)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if v.Source != SourceMatch || v.Category != "Dependency Error" || v.Solution == "" {
		t.Errorf("verdict = %+v", v)
	}
	if v.Match == nil || v.Match.ID != 1 {
		t.Errorf("match = %+v", v.Match)
	}

	v, err = c.Triage(ctx, "segfault while reticulating splines")
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if v.Source != SourceClassification || v.Category != "Runtime Error" || v.Confidence != 0.8 {
		t.Errorf("verdict = %+v", v)
	}
	if v.Solution != "" {
		t.Errorf("classification verdict carries solution %q", v.Solution)
	}
}

func TestClient_ReseedUsesBatchEmbedder(t *testing.T) {
	bag := &bagEmbedder{}
	batched := 0
	emb := &mockBatchEmbedder{
		mockEmbedder: mockEmbedder{fn: bag.Embed},
		batchFn: func(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
			batched++
			out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
			for i, text := range texts {
				r, _ := bag.Embed(ctx, text)
				out.Embeddings[i] = r.Embedding
			}
			return out, nil
		},
	}

	c, err := New(context.Background(), WithMemory(), WithEmbedder(emb, "bag", testDims))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Reseed(context.Background(), nil); err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	if batched != 1 {
		t.Errorf("BatchEmbed calls = %d, want 1", batched)
	}
}

func TestClient_SQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithSQLite(":memory:"), WithEmbedder(&bagEmbedder{}, "bag", testDims))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := c.Reseed(ctx, nil); err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	m, found, err := c.FindBestMatch(ctx, "Module not found: Can't resolve 'react'")
	if err != nil || !found {
		t.Fatalf("FindBestMatch: found=%v err=%v", found, err)
	}
	if m.ID != 2 {
		t.Errorf("id = %d, want 2", m.ID)
	}
}

func TestClient_Close_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
