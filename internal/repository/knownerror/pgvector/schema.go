package pgvector

import (
	"fmt"
	"strings"
)

const (
	truncateSQL = `TRUNCATE TABLE "KnownError" RESTART IDENTITY`

	insertSQL = `INSERT INTO "KnownError" ("errorText", "errorEmbedding", solution, category)
VALUES ($1, $2::vector, $3, $4)`

	upsertCatalogSQL = `INSERT INTO "KnownErrorCatalog" (singleton, version, dimensions, record_count, seeded_at)
VALUES (TRUE, $1, $2, $3, now())
ON CONFLICT (singleton) DO UPDATE SET
	version = excluded.version,
	dimensions = excluded.dimensions,
	record_count = excluded.record_count,
	seeded_at = excluded.seeded_at`

	// The ANN index serves ORDER BY distance LIMIT k; equal distances are re-sorted by id in Go.
	nearestSQL = `SELECT id, "errorText", solution, category, "errorEmbedding" <=> $1::vector AS distance
FROM "KnownError"
ORDER BY "errorEmbedding" <=> $1::vector, id
LIMIT $2`

	versionSQL = `SELECT version FROM "KnownErrorCatalog" WHERE singleton`

	countSQL = `SELECT count(*) FROM "KnownError"`
)

func migrationStatements(opts Options) []string {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "KnownError" (
	id SERIAL PRIMARY KEY,
	"errorText" TEXT NOT NULL,
	"errorEmbedding" vector(%d) NOT NULL,
	solution TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL
)`, opts.Dimensions),
		`CREATE TABLE IF NOT EXISTS "KnownErrorCatalog" (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	version TEXT NOT NULL,
	dimensions INTEGER NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	seeded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	}

	if opts.Algorithm != "flat" {
		with := ""
		if opts.HNSWM > 0 && opts.HNSWEFConstruct > 0 {
			with = fmt.Sprintf(" WITH (m = %d, ef_construction = %d)", opts.HNSWM, opts.HNSWEFConstruct)
		}
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS "KnownError_errorEmbedding_idx" ON "KnownError" `+
				`USING hnsw ("errorEmbedding" vector_cosine_ops)%s`, with))
	}
	return stmts
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
