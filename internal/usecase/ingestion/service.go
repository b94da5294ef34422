package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	"github.com/kailas-cloud/errmatch/internal/metrics"
)

// Options identifies the vector space the catalog is built in.
type Options struct {
	Version    string
	Dimensions int
	// WindowChars must match the query-side window so a catalogued text
	// embeds identically when it comes back as a query.
	WindowChars int
}

// Service rebuilds the knowledge base from curated entries.
type Service struct {
	store  Store
	embed  domain.Embedder
	opts   Options
	logger *zap.Logger
}

// New creates an ingestion service. A nil store means no database is configured.
func New(store Store, embed domain.Embedder, opts Options, logger *zap.Logger) *Service {
	if opts.WindowChars <= 0 {
		opts.WindowChars = domain.DefaultWindowChars
	}
	return &Service{store: store, embed: embed, opts: opts, logger: logger}
}

// Reseed validates and embeds every entry, then replaces the catalog in one
// step. It returns the number of records stored.
func (s *Service) Reseed(ctx context.Context, entries []knownerror.Entry) (int, error) {
	n, err := s.reseed(ctx, entries)
	if err != nil {
		metrics.ReseedTotal.WithLabelValues("error").Inc()
		s.logger.Error("Reseed failed", zap.Int("entries", len(entries)), zap.Error(err))
		return 0, err
	}
	metrics.ReseedTotal.WithLabelValues("ok").Inc()
	metrics.ReseedRecords.Set(float64(n))
	return n, nil
}

func (s *Service) reseed(ctx context.Context, entries []knownerror.Entry) (int, error) {
	if s.store == nil {
		return 0, domain.ErrDatabaseNotConfigured
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("catalog is empty: %w", domain.ErrInvalidCatalog)
	}

	valid := make([]knownerror.Entry, len(entries))
	texts := make([]string, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("entry [%d]: %w", i, err)
		}
		valid[i] = e
		texts[i] = domain.TrailingWindow(e.ErrorText, s.opts.WindowChars)
	}

	start := time.Now()
	res, err := domain.EmbedAll(ctx, s.embed, texts)
	if err != nil {
		return 0, domain.TimeoutError(ctx, domain.WrapSentinel("embed catalog", domain.ErrEmbeddingProviderError, err))
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	dims := s.opts.Dimensions
	if dims <= 0 && len(res.Embeddings) > 0 {
		dims = len(res.Embeddings[0])
	}
	records := make([]knownerror.Record, len(valid))
	for i, e := range valid {
		if err := domain.CheckDimensions(res.Embeddings[i], dims); err != nil {
			return 0, fmt.Errorf("entry [%d] embedding: %w", i, err)
		}
		records[i] = knownerror.New(e, res.Embeddings[i])
	}

	s.logger.Info("Embedded catalog",
		zap.Int("entries", len(records)),
		zap.Int("dimensions", dims),
		zap.Duration("duration", time.Since(start)),
	)

	n, err := s.store.Replace(ctx, s.opts.Version, records)
	if err != nil {
		if !errors.Is(err, domain.ErrVectorDimMismatch) {
			err = domain.WrapSentinel("replace catalog", domain.ErrStoreUnavailable, err)
		}
		return 0, domain.TimeoutError(ctx, err)
	}

	s.logger.Info("Catalog replaced", zap.String("version", s.opts.Version), zap.Int("records", n))
	return n, nil
}
