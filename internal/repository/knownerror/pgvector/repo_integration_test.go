package pgvector

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db/postgres"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// newIntegrationRepo connects to TEST_DATABASE_URL (a pgvector-enabled Postgres) or skips.
func newIntegrationRepo(t *testing.T) *Repo {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	client, err := postgres.NewClient(ctx, postgres.Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	if err := client.WaitForReady(ctx, 10*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	pool := client.Pool()
	for _, stmt := range []string{`DROP TABLE IF EXISTS "KnownError"`, `DROP TABLE IF EXISTS "KnownErrorCatalog"`} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}

	repo := New(pool, Options{Dimensions: 3, Algorithm: "hnsw", HNSWM: 16, HNSWEFConstruct: 64}, zap.NewNop())
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func entry(text, category string, vec ...float32) knownerror.Record {
	return knownerror.New(knownerror.Entry{ErrorText: text, Category: category}, vec)
}

func TestIntegration_ReseedAndMatch(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	if _, ok, _ := repo.Version(ctx); ok {
		t.Fatal("fresh schema must have no version")
	}
	if cands, err := repo.Nearest(ctx, []float32{1, 0, 0}, 1); err != nil || len(cands) != 0 {
		t.Fatalf("empty store: %v %v", cands, err)
	}

	records := []knownerror.Record{
		entry("npm ERR! code ERESOLVE", "Dependency Error", 1, 0, 0),
		entry("SyntaxError: Unexpected token", "Syntax Error", 0, 1, 0),
		entry("TypeError: Cannot read property 'x' of undefined", "Runtime Error", 0, 0, 1),
	}
	for range 2 {
		n, err := repo.Replace(ctx, "stub/m/3", records)
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		if n != 3 {
			t.Errorf("seeded %d", n)
		}
	}

	cands, err := repo.Nearest(ctx, []float32{0.9, 0.1, 0}, 3)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if cands[0].Record.ID() != 1 || cands[0].Record.Category() != "Dependency Error" {
		t.Errorf("best = %+v", cands[0])
	}
	if cands[0].Distance > cands[1].Distance {
		t.Error("candidates must be ordered by distance")
	}

	if v, ok, _ := repo.Version(ctx); !ok || v != "stub/m/3" {
		t.Errorf("version = %q %v", v, ok)
	}
	if n, _ := repo.Count(ctx); n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestIntegration_FailedReseedKeepsCatalog(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	if _, err := repo.Replace(ctx, "v1", []knownerror.Record{entry("a", "A", 1, 0, 0)}); err != nil {
		t.Fatal(err)
	}
	_, err := repo.Replace(ctx, "v2", []knownerror.Record{entry("b", "B", 1, 0)})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if v, _, _ := repo.Version(ctx); v != "v1" {
		t.Errorf("version = %q", v)
	}
}
