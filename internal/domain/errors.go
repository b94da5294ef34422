package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals a missing or blank required text field.
	ErrEmptyInput = errors.New("empty input")
	// ErrNoLabels signals an empty candidate label set.
	ErrNoLabels = errors.New("no candidate labels")
	// ErrInvalidLabels signals blank or duplicate candidate labels.
	ErrInvalidLabels = errors.New("invalid candidate labels")
	// ErrDatabaseNotConfigured signals a missing database connection string.
	ErrDatabaseNotConfigured = errors.New("database not configured")
	// ErrVectorDimMismatch signals a vector of unexpected dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbedderVersionMismatch signals a catalog built by a different embedder.
	ErrEmbedderVersionMismatch = errors.New("embedder version mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrClassifierProviderError signals a classifier provider failure.
	ErrClassifierProviderError = errors.New("classifier provider error")
	// ErrInvalidCatalog signals a malformed curated entry.
	ErrInvalidCatalog = errors.New("invalid catalog entry")
	// ErrTimeout signals that a collaborator exceeded its deadline.
	ErrTimeout = errors.New("deadline exceeded")
	// ErrStoreUnavailable signals a knowledge base store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// WrapSentinel attaches sentinel to err unless err already carries it.
func WrapSentinel(msg string, sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, err)
}

// TimeoutError tags err with ErrTimeout when ctx's deadline fired.
func TimeoutError(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
