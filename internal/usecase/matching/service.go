package matching

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

// DefaultCandidates is the number of neighbours fetched before the tie-break.
const DefaultCandidates = 5

// Options configures the similarity path.
type Options struct {
	// Version is the embedder version the catalog must have been built with.
	Version    string
	Dimensions int
	Candidates int
	// WindowChars is the trailing slice of the query, in runes, that gets embedded.
	WindowChars int
	// ClipNegative floors reported similarity at 0.
	ClipNegative bool
	Timeout      time.Duration
}

// Service finds the closest known error for a query.
type Service struct {
	store  Store
	embed  Embedder
	opts   Options
	logger *zap.Logger
}

// New creates a matching service. A nil store means no database is configured.
func New(store Store, embed Embedder, opts Options, logger *zap.Logger) *Service {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.WindowChars <= 0 {
		opts.WindowChars = domain.DefaultWindowChars
	}
	return &Service{store: store, embed: embed, opts: opts, logger: logger}
}

// FindBestMatch returns the nearest known error. found is false for an empty
// or never-seeded catalog; that is not an error. Only the trailing window of a
// long log is embedded, since the failing line sits at the end.
func (s *Service) FindBestMatch(ctx context.Context, errorText string) (knownerror.Match, bool, error) {
	text := domain.TrailingWindow(domain.NormalizeText(errorText), s.opts.WindowChars)
	if text == "" {
		return knownerror.Match{}, false, fmt.Errorf("error text: %w", domain.ErrEmptyInput)
	}
	if s.store == nil {
		return knownerror.Match{}, false, domain.ErrDatabaseNotConfigured
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	m, found, err := s.find(ctx, text)
	switch {
	case err != nil:
		metrics.MatchTotal.WithLabelValues("error").Inc()
		return knownerror.Match{}, false, domain.TimeoutError(ctx, err)
	case !found:
		metrics.MatchTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.MatchTotal.WithLabelValues("found").Inc()
		metrics.MatchSimilarity.Observe(m.Similarity)
	}
	return m, found, nil
}

func (s *Service) find(ctx context.Context, text string) (knownerror.Match, bool, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return knownerror.Match{}, false, domain.WrapSentinel("embed query", domain.ErrEmbeddingProviderError, err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	if err := domain.CheckDimensions(res.Embedding, s.opts.Dimensions); err != nil {
		return knownerror.Match{}, false, fmt.Errorf("query embedding: %w", err)
	}

	version, ok, err := s.store.Version(ctx)
	if err != nil {
		return knownerror.Match{}, false, storeError("catalog version", err)
	}
	if !ok {
		s.logger.Debug("Knowledge base is empty")
		return knownerror.Match{}, false, nil
	}
	if s.opts.Version != "" && version != s.opts.Version {
		return knownerror.Match{}, false, fmt.Errorf(
			"catalog built with %q, querying with %q: %w",
			version, s.opts.Version, domain.ErrEmbedderVersionMismatch,
		)
	}

	cands, err := s.store.Nearest(ctx, res.Embedding, s.opts.Candidates)
	if err != nil {
		return knownerror.Match{}, false, storeError("nearest", err)
	}
	best, ok := knownerror.Best(cands)
	if !ok {
		return knownerror.Match{}, false, nil
	}

	m := knownerror.NewMatch(best)
	if s.opts.ClipNegative && m.Similarity < 0 {
		m.Similarity = 0
	}

	s.logger.Debug("Best match",
		zap.Int64("id", m.Record.ID()),
		zap.String("category", m.Record.Category()),
		zap.Float64("similarity", m.Similarity),
	)
	return m, true, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrVectorDimMismatch) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.WrapSentinel(op, domain.ErrStoreUnavailable, err)
}
