package embcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &lengthEmbedder{}
	kv := newMemKV()
	c, counter := newCache(t, inner, kv, "onnx/minilm/3")
	ctx := context.Background()

	first, err := c.Embed(ctx, "ENOENT: no such file")
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	if first.TotalTokens != 2 {
		t.Errorf("miss tokens = %d, want 2", first.TotalTokens)
	}

	second, err := c.Embed(ctx, "ENOENT: no such file")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if !reflect.DeepEqual(second.Embedding, first.Embedding) {
		t.Errorf("cached vector = %v, want %v", second.Embedding, first.Embedding)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit tokens = %d, want 0", second.TotalTokens)
	}
	if len(inner.embedCalls) != 1 {
		t.Errorf("inner called %d times, want 1", len(inner.embedCalls))
	}

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v", got)
	}
	for key, ttl := range kv.ttls {
		if !strings.HasPrefix(key, "errmatch:emb_cache:onnx/minilm/3:") {
			t.Errorf("key = %q", key)
		}
		if ttl != 24*time.Hour {
			t.Errorf("ttl = %v", ttl)
		}
	}
}

func TestEmbed_InnerErrorNotCached(t *testing.T) {
	inner := &lengthEmbedder{err: domain.ErrEmbeddingProviderError}
	kv := newMemKV()
	c, _ := newCache(t, inner, kv, "v")

	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
	if len(kv.data) != 0 {
		t.Errorf("cached %d entries after failure", len(kv.data))
	}
}

func TestEmbed_StoreFailuresDegradeToInner(t *testing.T) {
	inner := &lengthEmbedder{}
	kv := newMemKV()
	kv.getErr, kv.setErr = errBackend, errBackend
	c, _ := newCache(t, inner, kv, "v")

	for range 2 {
		res, err := c.Embed(context.Background(), "abc")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if !reflect.DeepEqual(res.Embedding, vectorOf("abc")) {
			t.Errorf("vector = %v", res.Embedding)
		}
	}
	if len(inner.embedCalls) != 2 {
		t.Errorf("inner calls = %d, want 2", len(inner.embedCalls))
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &lengthEmbedder{}
	kv := newMemKV()
	c, _ := newCache(t, inner, kv, "v")
	kv.data[c.cacheKey("abc")] = []byte{1, 2, 3}

	res, err := c.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(inner.embedCalls) != 1 || len(res.Embedding) != 3 {
		t.Errorf("expected inner call for corrupt entry, got %d calls", len(inner.embedCalls))
	}
	if len(kv.data[c.cacheKey("abc")]) != 12 {
		t.Error("corrupt entry should be overwritten")
	}
}

func TestBatchEmbed_SendsOnlyMissesInOneBatch(t *testing.T) {
	inner := &batchingEmbedder{}
	kv := newMemKV()
	c, counter := newCache(t, inner, kv, "v")
	ctx := context.Background()

	if _, err := c.Embed(ctx, "b-cached"); err != nil {
		t.Fatal(err)
	}

	texts := []string{"a-new", "b-cached", "c-new"}
	res, err := c.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}

	if len(inner.batchCalls) != 1 || !reflect.DeepEqual(inner.batchCalls[0], []string{"a-new", "c-new"}) {
		t.Errorf("batch calls = %v", inner.batchCalls)
	}
	for i, text := range texts {
		if !reflect.DeepEqual(res.Embeddings[i], vectorOf(text)) {
			t.Errorf("embeddings[%d] = %v, want %v", i, res.Embeddings[i], vectorOf(text))
		}
	}
	if res.TotalTokens != 4 {
		t.Errorf("tokens = %d, want 4 (misses only)", res.TotalTokens)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v", got)
	}

	again, err := c.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.batchCalls) != 1 || again.TotalTokens != 0 {
		t.Errorf("fully cached batch reached inner: calls=%d tokens=%d", len(inner.batchCalls), again.TotalTokens)
	}
}

func TestBatchEmbed_NonBatchingInnerFallsBack(t *testing.T) {
	inner := &lengthEmbedder{}
	c, _ := newCache(t, inner, newMemKV(), "v")

	res, err := c.BatchEmbed(context.Background(), []string{"x", "yy"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(inner.embedCalls) != 2 || len(res.Embeddings) != 2 {
		t.Errorf("embed calls = %v", inner.embedCalls)
	}
}

func TestBatchEmbed_Errors(t *testing.T) {
	inner := &batchingEmbedder{}
	inner.err = domain.ErrEmbeddingProviderError
	kv := newMemKV()
	c, _ := newCache(t, inner, kv, "v")

	if _, err := c.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
	if len(kv.data) != 0 {
		t.Error("nothing should be cached after a failed batch")
	}

	res, err := c.BatchEmbed(context.Background(), nil)
	if err != nil || len(res.Embeddings) != 0 || len(inner.batchCalls) != 1 {
		t.Errorf("empty batch: res=%v err=%v calls=%d", res, err, len(inner.batchCalls))
	}
}

func TestCacheKey_SeparatesVersions(t *testing.T) {
	a, _ := newCache(t, &lengthEmbedder{}, newMemKV(), "onnx/minilm/384")
	b, _ := newCache(t, &lengthEmbedder{}, newMemKV(), "openai/text-embedding-3-small/384")
	if a.cacheKey("same") == b.cacheKey("same") {
		t.Error("keys must differ across embedder versions")
	}
	if a.cacheKey("one") == a.cacheKey("two") {
		t.Error("keys must differ across texts")
	}
}

func TestHealthCheck_Delegates(t *testing.T) {
	plain, _ := newCache(t, &lengthEmbedder{}, newMemKV(), "v")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("embedder without health check: %v", err)
	}

	sick, _ := newCache(t, &healthyEmbedder{healthErr: errBackend}, newMemKV(), "v")
	if err := sick.HealthCheck(context.Background()); !errors.Is(err, errBackend) {
		t.Errorf("err = %v, want backend error", err)
	}
}

func TestCacheBytesRoundTripRejectsRaggedInput(t *testing.T) {
	if _, err := bytesToVector(make([]byte, 7)); err == nil {
		t.Error("expected error for 7-byte payload")
	}
	v, err := bytesToVector(vectorToCacheBytes([]float32{-1.5, 0, 3.25}))
	if err != nil || !reflect.DeepEqual(v, []float32{-1.5, 0, 3.25}) {
		t.Errorf("decode = %v, %v", v, err)
	}
}
