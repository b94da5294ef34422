package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/db/postgres"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// pool is the consumer interface for the pgx connection pool (ISP).
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Options configures the schema.
type Options struct {
	Dimensions      int
	Algorithm       string // hnsw, flat (no ANN index)
	HNSWM           int
	HNSWEFConstruct int
}

// Repo stores known errors in the "KnownError" table with a pgvector column.
type Repo struct {
	pool   pool
	opts   Options
	logger *zap.Logger
}

// New creates a pgvector knowledge base repository.
func New(p pool, opts Options, logger *zap.Logger) *Repo {
	return &Repo{pool: p, opts: opts, logger: logger}
}

// Migrate creates the extension, tables and vector index when missing.
func (r *Repo) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements(r.opts) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: fmt.Errorf("%s: %w", firstLine(stmt), err)}
		}
	}
	r.logger.Info("Knowledge base schema ready", zap.Int("dimensions", r.opts.Dimensions))
	return nil
}

// Replace truncates and repopulates the catalog in one transaction.
// Ids restart at 1 and follow input order.
func (r *Repo) Replace(ctx context.Context, version string, records []knownerror.Record) (int, error) {
	for i, rec := range records {
		if err := domain.CheckDimensions(rec.Embedding(), r.opts.Dimensions); err != nil {
			return 0, fmt.Errorf("record [%d]: %w", i, err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, &db.Error{Op: db.OpBegin, Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, truncateSQL); err != nil {
		if isUndefinedTable(err) {
			return 0, &db.Error{Op: db.OpTruncate, Err: schemaMissing(err)}
		}
		return 0, &db.Error{Op: db.OpTruncate, Err: err}
	}

	if len(records) > 0 {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(insertSQL,
				rec.ErrorText(), postgres.VectorLiteral(rec.Embedding()), rec.Solution(), rec.Category())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, &db.Error{Op: db.OpInsert, Err: err}
		}
	}

	if _, err := tx.Exec(ctx, upsertCatalogSQL, version, r.opts.Dimensions, len(records)); err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: fmt.Errorf("catalog metadata: %w", err)}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &db.Error{Op: db.OpCommit, Err: err}
	}
	return len(records), nil
}

// Nearest returns up to k candidates by cosine distance, ties broken by id.
func (r *Repo) Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := domain.CheckDimensions(vector, r.opts.Dimensions); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, nearestSQL, postgres.VectorLiteral(vector), k)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var cands []knownerror.Candidate
	for rows.Next() {
		var (
			id                           int64
			errorText, solution, category string
			distance                     float64
		)
		if err := rows.Scan(&id, &errorText, &solution, &category, &distance); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}
		cands = append(cands, knownerror.Candidate{
			Record:   knownerror.Reconstruct(id, errorText, solution, category, nil),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}

	knownerror.SortCandidates(cands)
	return cands, nil
}

// Version returns the embedder version recorded by the last reseed.
// An empty catalog table means never seeded; a missing one is a schema error.
func (r *Repo) Version(ctx context.Context) (string, bool, error) {
	var version string
	err := r.pool.QueryRow(ctx, versionSQL).Scan(&version)
	switch {
	case err == nil:
		return version, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", false, nil
	default:
		return "", false, queryError(err)
	}
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countSQL).Scan(&n); err != nil {
		return 0, queryError(err)
	}
	return n, nil
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return &db.Error{Op: "PING", Err: err}
	}
	return nil
}

// queryError tags a missing relation as ErrSchemaMissing so callers can tell
// an unmigrated database from an empty knowledge base.
func queryError(err error) error {
	if isUndefinedTable(err) {
		return &db.Error{Op: db.OpQuery, Err: schemaMissing(err)}
	}
	return &db.Error{Op: db.OpQuery, Err: err}
}

func schemaMissing(err error) error {
	return fmt.Errorf("%w (run errmatch migrate): %w", db.ErrSchemaMissing, err)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
