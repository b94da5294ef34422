package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

func rec(text, category string, vec ...float32) knownerror.Record {
	return knownerror.New(knownerror.Entry{ErrorText: text, Category: category}, vec)
}

func TestRepo_EmptyStore(t *testing.T) {
	r := New()
	cands, err := r.Nearest(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %d", len(cands))
	}
	if _, ok, _ := r.Version(context.Background()); ok {
		t.Error("never-seeded store must have no version")
	}
}

func TestRepo_ReplaceAndNearest(t *testing.T) {
	r := New()
	ctx := context.Background()

	n, err := r.Replace(ctx, "stub/m/2", []knownerror.Record{
		rec("far", "A", 0, 1),
		rec("near", "B", 1, 0.1),
		rec("opposite", "C", -1, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 stored, got %d", n)
	}

	cands, err := r.Nearest(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cands[0].Record.ErrorText() != "near" || cands[0].Record.ID() != 2 {
		t.Errorf("first = %q id %d", cands[0].Record.ErrorText(), cands[0].Record.ID())
	}
	if cands[2].Record.ErrorText() != "opposite" || cands[2].Distance < 1.99 {
		t.Errorf("last = %q distance %v", cands[2].Record.ErrorText(), cands[2].Distance)
	}

	v, ok, err := r.Version(ctx)
	if err != nil || !ok || v != "stub/m/2" {
		t.Errorf("Version = %q %v %v", v, ok, err)
	}
}

func TestRepo_TieBreakLowestID(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, _ = r.Replace(ctx, "v", []knownerror.Record{
		rec("dup-a", "A", 2, 2),
		rec("dup-b", "A", 1, 1),
	})

	cands, _ := r.Nearest(ctx, []float32{3, 3}, 1)
	if len(cands) != 1 || cands[0].Record.ID() != 1 {
		t.Errorf("expected id 1, got %+v", cands)
	}
}

func TestRepo_ReplaceIsIdempotent(t *testing.T) {
	r := New()
	ctx := context.Background()
	records := []knownerror.Record{rec("a", "A", 1, 0), rec("b", "B", 0, 1)}

	_, _ = r.Replace(ctx, "v", records)
	first, _ := r.Nearest(ctx, []float32{1, 0}, 2)
	_, _ = r.Replace(ctx, "v", records)
	second, _ := r.Nearest(ctx, []float32{1, 0}, 2)

	if first[0].Record.ID() != second[0].Record.ID() || first[1].Record.ID() != second[1].Record.ID() {
		t.Error("reseed with the same catalog must yield the same ids")
	}
	if c, _ := r.Count(ctx); c != 2 {
		t.Errorf("expected 2 records, got %d", c)
	}
}

func TestRepo_ReplaceRejectsMixedDims(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, _ = r.Replace(ctx, "old", []knownerror.Record{rec("keep", "A", 1, 0)})

	_, err := r.Replace(ctx, "new", []knownerror.Record{rec("a", "A", 1, 0), rec("b", "B", 1, 0, 0)})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if v, _, _ := r.Version(ctx); v != "old" {
		t.Errorf("failed reseed must keep the previous catalog, version = %q", v)
	}
}

func TestRepo_ConcurrentReadsDuringReseed(t *testing.T) {
	r := New()
	ctx := context.Background()
	oldCat := []knownerror.Record{rec("old-1", "Old", 1, 0), rec("old-2", "Old", 0, 1)}
	newCat := []knownerror.Record{rec("new-1", "New", 1, 0), rec("new-2", "New", 0, 1), rec("new-3", "New", 1, 1)}
	_, _ = r.Replace(ctx, "v", oldCat)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cands, err := r.Nearest(ctx, []float32{1, 0}, 3)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				cat := cands[0].Record.Category()
				for _, c := range cands {
					if c.Record.Category() != cat {
						t.Errorf("observed a mixed catalog")
						return
					}
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			_, _ = r.Replace(ctx, "v", newCat)
		} else {
			_, _ = r.Replace(ctx, "v", oldCat)
		}
	}
	wg.Wait()
}

func TestRepo_QueryDimMismatch(t *testing.T) {
	r := New()
	_, _ = r.Replace(context.Background(), "v", []knownerror.Record{rec("a", "A", 1, 0)})
	_, err := r.Nearest(context.Background(), []float32{1, 0, 0}, 1)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}
