package main

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/app"
	"github.com/kailas-cloud/errmatch/internal/config"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/repository/knownerror/memory"
)

const testDims = 64

// bagEmbedder hashes lowercase words into buckets so texts sharing words land close together.
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
	return domain.EmbeddingResult{Embedding: vec}, nil
}

type fixedClassifier struct {
	label string
}

func (c fixedClassifier) Classify(_ context.Context, _ string, labels []string) ([]domain.LabelScore, error) {
	out := make([]domain.LabelScore, len(labels))
	for i, l := range labels {
		out[i] = domain.LabelScore{Label: l, Score: 0.1}
		if l == c.label {
			out[i].Score = 0.9
		}
	}
	return out, nil
}

// harness runs the CLI against an in-memory knowledge base shared across commands.
type harness struct {
	t       *testing.T
	store   *memory.Repo // nil simulates a missing DATABASE_URL
	cfgPath string
	builds  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := "database:\n  driver: memory\nembedding:\n  provider: openai\n  dimensions: 64\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{t: t, store: memory.New(), cfgPath: path}
}

func (h *harness) build(_ context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	h.builds++
	var store app.KnowledgeBase
	if h.store != nil {
		store = h.store
	}
	return app.Assemble(app.Parts{
		Store:              store,
		QueryEmbedder:      bagEmbedder{},
		DocumentEmbedder:   bagEmbedder{},
		Classifier:         fixedClassifier{label: "Runtime Error"},
		ClassifierProvider: "test",
		Version:            domain.EmbedderVersion("test", "bag", testDims),
		Dimensions:         testDims,
	}, cfg, logger), nil
}

// run executes the root command with stdin and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd(h.build)
	out := new(bytes.Buffer)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(append([]string{"--env", "test", "--config", h.cfgPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}
