package redisft

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

const (
	fieldID        = "id"
	fieldErrorText = "errorText"
	fieldSolution  = "solution"
	fieldCategory  = "category"
	fieldVector    = "vector"

	writeBatchSize = 500
)

// store is the consumer interface for the RediSearch knowledge base (ISP).
type store interface {
	db.Pinger
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	AliasUpdate(ctx context.Context, alias, index string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Options configures index layout.
type Options struct {
	KeyPrefix       string // default "errmatch:"
	Dimensions      int    // used when a reseed carries no records
	Algorithm       db.VectorAlgorithm
	HNSWM           int
	HNSWEFConstruct int
}

// Repo stores known errors as hashes under a generation prefix and serves
// queries through an FT alias. A reseed builds a new generation next to the
// live one and repoints the alias, so readers never see a partial catalog.
//
// The catalog hash at a fixed key names the live generation and its embedder
// version. It is written in one HSET after the alias swap and never deleted,
// so a single HGETALL always returns a consistent pair.
type Repo struct {
	store  store
	opts   Options
	logger *zap.Logger
	newGen func() string
}

// New creates a RediSearch knowledge base repository.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "errmatch:"
	}
	if opts.Algorithm == "" {
		opts.Algorithm = db.VectorHNSW
	}
	return &Repo{
		store:  s,
		opts:   opts,
		logger: logger,
		newGen: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (r *Repo) alias() string      { return r.opts.KeyPrefix + "kb" }
func (r *Repo) catalogKey() string { return r.opts.KeyPrefix + "kb:catalog" }

func (r *Repo) indexName(gen string) string    { return r.opts.KeyPrefix + "kb:" + gen }
func (r *Repo) recordPrefix(gen string) string { return r.indexName(gen) + ":rec:" }

// Replace builds a new generation and swaps the alias to it. Any failure
// leaves the alias and the catalog hash on the previous generation.
func (r *Repo) Replace(ctx context.Context, version string, records []knownerror.Record) (int, error) {
	dims := r.opts.Dimensions
	if len(records) > 0 {
		dims = len(records[0].Embedding())
	}
	for i, rec := range records {
		if err := domain.CheckDimensions(rec.Embedding(), dims); err != nil {
			return 0, fmt.Errorf("record [%d]: %w", i, err)
		}
	}

	gen := r.newGen()
	index := r.indexName(gen)

	if err := r.store.CreateIndex(ctx, r.indexDefinition(gen, dims)); err != nil {
		return 0, fmt.Errorf("create index %s: %w", index, err)
	}

	if err := r.writeRecords(ctx, gen, records); err != nil {
		r.discard(ctx, gen)
		return 0, err
	}

	prev, err := r.liveGeneration(ctx)
	if err != nil {
		r.discard(ctx, gen)
		return 0, err
	}

	if err := r.store.AliasUpdate(ctx, r.alias(), index); err != nil {
		r.discard(ctx, gen)
		return 0, fmt.Errorf("swap alias to %s: %w", index, err)
	}

	catalog := map[string]string{
		"generation": gen,
		"version":    version,
		"dimensions": strconv.Itoa(dims),
		"count":      strconv.Itoa(len(records)),
		"seeded_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.store.HSet(ctx, r.catalogKey(), catalog); err != nil {
		r.rollback(ctx, prev, gen)
		return 0, fmt.Errorf("write catalog metadata: %w", err)
	}

	if prev != "" && prev != gen {
		r.discard(ctx, prev)
	}

	r.logger.Info("Knowledge base generation swapped",
		zap.String("generation", gen),
		zap.String("previous", prev),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

func (r *Repo) indexDefinition(gen string, dims int) *db.IndexDefinition {
	b := db.NewIndex(r.indexName(gen)).
		Prefix(r.recordPrefix(gen)).
		SortableNumeric(fieldID).
		Tag(fieldCategory)
	if r.opts.Algorithm == db.VectorFlat {
		b = b.VectorFlat(fieldVector, dims, db.DistanceCosine, 0)
	} else {
		b = b.VectorHNSW(fieldVector, dims, db.DistanceCosine, r.opts.HNSWM, r.opts.HNSWEFConstruct)
	}
	return b.MustBuild()
}

func (r *Repo) writeRecords(ctx context.Context, gen string, records []knownerror.Record) error {
	prefix := r.recordPrefix(gen)
	for start := 0; start < len(records); start += writeBatchSize {
		end := min(start+writeBatchSize, len(records))
		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			id := int64(i + 1)
			rec := records[i]
			items = append(items, db.HashSetItem{
				Key: prefix + strconv.FormatInt(id, 10),
				Fields: map[string]string{
					fieldID:        strconv.FormatInt(id, 10),
					fieldErrorText: rec.ErrorText(),
					fieldSolution:  rec.Solution(),
					fieldCategory:  rec.Category(),
					fieldVector:    vectorToBytes(rec.Embedding()),
				},
			})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write records %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// rollback points the alias back at prev and drops gen. Without a previous
// generation, dropping gen also removes the alias.
func (r *Repo) rollback(ctx context.Context, prev, gen string) {
	if prev != "" {
		if err := r.store.AliasUpdate(ctx, r.alias(), r.indexName(prev)); err != nil {
			r.logger.Error("Failed to restore alias", zap.String("generation", prev), zap.Error(err))
			return
		}
	}
	r.discard(ctx, gen)
}

// discard drops a generation's index together with its records. Failures are logged.
func (r *Repo) discard(ctx context.Context, gen string) {
	if err := r.store.DropIndex(ctx, r.indexName(gen), true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		r.logger.Warn("Failed to drop generation index", zap.String("generation", gen), zap.Error(err))
	}
}

func (r *Repo) catalog(ctx context.Context) (map[string]string, error) {
	meta, err := r.store.HGetAll(ctx, r.catalogKey())
	if err != nil {
		return nil, fmt.Errorf("read catalog metadata: %w", err)
	}
	return meta, nil
}

func (r *Repo) liveGeneration(ctx context.Context) (string, error) {
	meta, err := r.catalog(ctx)
	if err != nil {
		return "", err
	}
	return meta["generation"], nil
}

// Nearest queries the alias. A never-seeded knowledge base yields no candidates.
func (r *Repo) Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	return knownerror.FetchNearest(ctx, k, func(ctx context.Context, n int) ([]knownerror.Candidate, error) {
		return r.nearest(ctx, vector, n)
	})
}

func (r *Repo) nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.alias(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldID, fieldErrorText, fieldSolution, fieldCategory},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}

	cands := make([]knownerror.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id, err := strconv.ParseInt(e.Fields[fieldID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %s: parse id: %w", e.Key, err)
		}
		cands = append(cands, knownerror.Candidate{
			Record: knownerror.Reconstruct(
				id, e.Fields[fieldErrorText], e.Fields[fieldSolution], e.Fields[fieldCategory], nil,
			),
			Distance: e.Score,
		})
	}
	return cands, nil
}

// Version reads the embedder version recorded with the live generation.
func (r *Repo) Version(ctx context.Context) (string, bool, error) {
	meta, err := r.catalog(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := meta["version"]
	return v, ok, nil
}

// Count returns the number of records behind the alias.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.alias(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx) //nolint:wrapcheck // health probe passes driver error through
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
