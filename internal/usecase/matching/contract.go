package matching

import (
	"context"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// Store is the read side of the knowledge base.
type Store interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error)
	Version(ctx context.Context) (string, bool, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
