package embcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/domain"
)

// lengthEmbedder embeds a text as [len, first byte, 1] and records every call.
type lengthEmbedder struct {
	err        error
	embedCalls []string
	batchCalls [][]string
}

func vectorOf(text string) []float32 {
	var first float32
	if text != "" {
		first = float32(text[0])
	}
	return []float32{float32(len(text)), first, 1}
}

func (e *lengthEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.embedCalls = append(e.embedCalls, text)
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: vectorOf(text), PromptTokens: 2, TotalTokens: 2}, nil
}

type batchingEmbedder struct {
	lengthEmbedder
}

func (e *batchingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.batchCalls = append(e.batchCalls, append([]string(nil), texts...))
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		out.Embeddings[i] = vectorOf(t)
	}
	out.PromptTokens = 2 * len(texts)
	out.TotalTokens = 2 * len(texts)
	return out, nil
}

type healthyEmbedder struct {
	lengthEmbedder
	healthErr error
}

func (e *healthyEmbedder) HealthCheck(context.Context) error { return e.healthErr }

// memKV is an in-memory stand-in for the Redis key-value store.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

var errBackend = errors.New("backend down")

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func newCache(t *testing.T, inner domain.Embedder, kv *memKV, version string) (*CachedEmbedder, *prometheus.CounterVec) {
	t.Helper()
	counter := newCounter()
	c := New(inner, kv, Options{KeyPrefix: "errmatch:", Version: version, TTL: 24 * time.Hour}, counter, zap.NewNop())
	return c, counter
}
