package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

type snapshot struct {
	version string
	records []knownerror.Record
}

// Repo is an in-process knowledge base. Reseed swaps an immutable snapshot,
// queries are brute-force cosine distance over it.
type Repo struct {
	current atomic.Pointer[snapshot]
}

// New creates an empty in-memory repository.
func New() *Repo {
	return &Repo{}
}

// Replace swaps the catalog. Ids are assigned 1..N in input order.
func (r *Repo) Replace(_ context.Context, version string, records []knownerror.Record) (int, error) {
	dims := 0
	stored := make([]knownerror.Record, len(records))
	for i, rec := range records {
		if i == 0 {
			dims = len(rec.Embedding())
		}
		if err := domain.CheckDimensions(rec.Embedding(), dims); err != nil {
			return 0, fmt.Errorf("record [%d]: %w", i, err)
		}
		emb := make([]float32, len(rec.Embedding()))
		copy(emb, rec.Embedding())
		stored[i] = knownerror.Reconstruct(int64(i+1), rec.ErrorText(), rec.Solution(), rec.Category(), emb)
	}

	r.current.Store(&snapshot{version: version, records: stored})
	return len(stored), nil
}

// Nearest returns up to k candidates ordered by (distance ASC, id ASC).
func (r *Repo) Nearest(_ context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	snap := r.current.Load()
	if snap == nil || len(snap.records) == 0 || k <= 0 {
		return nil, nil
	}

	cands := make([]knownerror.Candidate, 0, len(snap.records))
	for _, rec := range snap.records {
		if len(rec.Embedding()) != len(vector) {
			return nil, fmt.Errorf("query has %d dims, catalog %d: %w",
				len(vector), len(rec.Embedding()), domain.ErrVectorDimMismatch)
		}
		cands = append(cands, knownerror.Candidate{
			Record:   rec,
			Distance: domain.CosineDistance(vector, rec.Embedding()),
		})
	}

	knownerror.SortCandidates(cands)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}

// Version returns the embedder version of the current catalog.
func (r *Repo) Version(_ context.Context) (string, bool, error) {
	snap := r.current.Load()
	if snap == nil {
		return "", false, nil
	}
	return snap.version, true, nil
}

// Count returns the number of stored records.
func (r *Repo) Count(_ context.Context) (int, error) {
	snap := r.current.Load()
	if snap == nil {
		return 0, nil
	}
	return len(snap.records), nil
}

// Ping always succeeds.
func (r *Repo) Ping(_ context.Context) error { return nil }
