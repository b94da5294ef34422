package ingestion

import (
	"context"

	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// Store is the write side of the knowledge base. Replace swaps the whole
// catalog atomically; a failed call leaves the previous catalog in place.
type Store interface {
	Replace(ctx context.Context, version string, records []knownerror.Record) (int, error)
}
