package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/db/sqlite"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

const (
	metaVersion    = "version"
	metaDimensions = "dimensions"
	metaSeededAt   = "seeded_at"
)

// Repo stores known errors in SQLite: a plain table for the record fields and a
// vec0 virtual table (cosine metric) for the embeddings, joined by id.
type Repo struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// New creates the schema if needed and returns a repository over conn.
func New(ctx context.Context, conn *sql.DB, dimensions int, logger *zap.Logger) (*Repo, error) {
	r := &Repo{db: conn, dimensions: dimensions, logger: logger}
	if err := r.Migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Migrate creates the tables. The vector table is sized from the stored
// catalog when one exists, otherwise from the configured dimensions.
func (r *Repo) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS known_error (
	id         INTEGER PRIMARY KEY,
	error_text TEXT NOT NULL,
	solution   TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS catalog_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}

	dims := r.dimensions
	if stored, ok, err := r.storedDimensions(ctx, r.db); err != nil {
		return err
	} else if ok {
		dims = stored
	}
	if _, err := r.db.ExecContext(ctx, vecTableDDL(dims)); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: fmt.Errorf("vec0 table: %w", err)}
	}
	return nil
}

func vecTableDDL(dims int) string {
	return fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS known_error_vec USING vec0(id INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dims,
	)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) storedDimensions(ctx context.Context, q queryer) (int, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, metaDimensions).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &db.Error{Op: db.OpQuery, Err: err}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("catalog dimensions %q: %w", v, err)
	}
	return n, true, nil
}

// Replace rewrites the catalog in one transaction. Ids are 1..N in input order.
// A catalog of a different dimension recreates the vector table inside the same transaction.
func (r *Repo) Replace(ctx context.Context, version string, records []knownerror.Record) (int, error) {
	dims := r.dimensions
	if len(records) > 0 {
		dims = len(records[0].Embedding())
	}
	for i, rec := range records {
		if err := domain.CheckDimensions(rec.Embedding(), dims); err != nil {
			return 0, fmt.Errorf("record [%d]: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &db.Error{Op: db.OpBegin, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stored, ok, err := r.storedDimensions(ctx, tx)
	if err != nil {
		return 0, err
	}
	if ok && stored != dims {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS known_error_vec`); err != nil {
			return 0, &db.Error{Op: db.OpMigrate, Err: err}
		}
		if _, err := tx.ExecContext(ctx, vecTableDDL(dims)); err != nil {
			return 0, &db.Error{Op: db.OpMigrate, Err: err}
		}
		r.logger.Info("Vector table resized", zap.Int("from", stored), zap.Int("to", dims))
	}

	for _, stmt := range []string{`DELETE FROM known_error_vec`, `DELETE FROM known_error`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, &db.Error{Op: db.OpTruncate, Err: err}
		}
	}

	if err := insertRecords(ctx, tx, records); err != nil {
		return 0, err
	}

	meta := map[string]string{
		metaVersion:    version,
		metaDimensions: strconv.Itoa(dims),
		metaSeededAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		const q = `INSERT INTO catalog_meta(key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, q, k, v); err != nil {
			return 0, &db.Error{Op: db.OpInsert, Err: fmt.Errorf("catalog %s: %w", k, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &db.Error{Op: db.OpCommit, Err: err}
	}
	return len(records), nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []knownerror.Record) error {
	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO known_error(id, error_text, solution, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	defer func() { _ = recStmt.Close() }()

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO known_error_vec(id, embedding) VALUES (?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	defer func() { _ = vecStmt.Close() }()

	for i, rec := range records {
		id := int64(i + 1)
		if _, err := recStmt.ExecContext(ctx, id, rec.ErrorText(), rec.Solution(), rec.Category()); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("record %d: %w", id, err)}
		}
		blob, err := sqlite.SerializeVector(rec.Embedding())
		if err != nil {
			return err
		}
		if _, err := vecStmt.ExecContext(ctx, id, blob); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("vector %d: %w", id, err)}
		}
	}
	return nil
}

// Nearest returns up to k candidates by cosine distance, ties broken by id.
// vec0 orders equidistant rows arbitrarily, so the query widens past k until
// the boundary tie is fully fetched.
func (r *Repo) Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	return knownerror.FetchNearest(ctx, k, func(ctx context.Context, n int) ([]knownerror.Candidate, error) {
		return r.nearest(ctx, vector, n)
	})
}

func (r *Repo) nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error) {
	blob, err := sqlite.SerializeVector(vector)
	if err != nil {
		return nil, err
	}

	const q = `SELECT v.id, v.distance, e.error_text, e.solution, e.category
FROM known_error_vec v
JOIN known_error e ON e.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := r.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		if isDimensionError(err) {
			return nil, fmt.Errorf("query vector has %d dims: %w", len(vector), domain.ErrVectorDimMismatch)
		}
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var cands []knownerror.Candidate
	for rows.Next() {
		var (
			id                            int64
			distance                      float64
			errorText, solution, category string
		)
		if err := rows.Scan(&id, &distance, &errorText, &solution, &category); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}
		cands = append(cands, knownerror.Candidate{
			Record:   knownerror.Reconstruct(id, errorText, solution, category, nil),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return cands, nil
}

// Version returns the embedder version recorded by the last reseed.
func (r *Repo) Version(ctx context.Context) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, metaVersion).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &db.Error{Op: db.OpQuery, Err: err}
	}
	return v, true, nil
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM known_error`).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpQuery, Err: err}
	}
	return n, nil
}

// Ping checks the database handle.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &db.Error{Op: "PING", Err: err}
	}
	return nil
}

func isDimensionError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "dimension")
}
