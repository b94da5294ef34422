package errmatch

import "github.com/kailas-cloud/errmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyInput              = domain.ErrEmptyInput
	ErrNoLabels                = domain.ErrNoLabels
	ErrInvalidLabels           = domain.ErrInvalidLabels
	ErrDatabaseNotConfigured   = domain.ErrDatabaseNotConfigured
	ErrVectorDimMismatch       = domain.ErrVectorDimMismatch
	ErrEmbedderVersionMismatch = domain.ErrEmbedderVersionMismatch
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrClassifierProviderError = domain.ErrClassifierProviderError
	ErrInvalidCatalog          = domain.ErrInvalidCatalog
	ErrTimeout                 = domain.ErrTimeout
	ErrStoreUnavailable        = domain.ErrStoreUnavailable
)
