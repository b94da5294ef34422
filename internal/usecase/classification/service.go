package classification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/metrics"
)

// Options configures the zero-shot path.
type Options struct {
	// Provider labels metrics and logs.
	Provider    string
	WindowChars int
	Timeout     time.Duration
}

// Service assigns one of the caller's labels to a log text. It never touches the knowledge base.
type Service struct {
	classifier Classifier
	opts       Options
	logger     *zap.Logger
}

// New creates a classification service.
func New(classifier Classifier, opts Options, logger *zap.Logger) *Service {
	if opts.WindowChars == 0 {
		opts.WindowChars = domain.DefaultWindowChars
	}
	return &Service{classifier: classifier, opts: opts, logger: logger}
}

// Classify validates input, keeps the trailing window of the text and returns
// the validated ranking. The top entry is the answer.
func (s *Service) Classify(ctx context.Context, text string, labels []string) (domain.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Classification{}, fmt.Errorf("log text: %w", domain.ErrEmptyInput)
	}
	candidates, err := domain.NormalizeLabels(labels)
	if err != nil {
		return domain.Classification{}, err
	}

	window := domain.TrailingWindow(text, s.opts.WindowChars)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.classifier.Classify(ctx, window, candidates)
	metrics.ClassificationDuration.WithLabelValues(s.opts.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassificationTotal.WithLabelValues(s.opts.Provider, "error").Inc()
		s.logger.Error("Classifier call failed",
			zap.String("provider", s.opts.Provider),
			zap.Int("labels", len(candidates)),
			zap.Error(err),
		)
		err = domain.WrapSentinel("classify", domain.ErrClassifierProviderError, err)
		return domain.Classification{}, domain.TimeoutError(ctx, err)
	}

	c, err := domain.NewClassification(raw, candidates)
	if err != nil {
		metrics.ClassificationTotal.WithLabelValues(s.opts.Provider, "invalid").Inc()
		return domain.Classification{}, fmt.Errorf("classifier output: %w", err)
	}

	metrics.ClassificationTotal.WithLabelValues(s.opts.Provider, "ok").Inc()
	s.logger.Debug("Classified",
		zap.String("category", c.Category()),
		zap.Float64("confidence", c.Confidence()),
		zap.Int("window_chars", len([]rune(window))),
	)
	return c, nil
}
