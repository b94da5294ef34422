package triage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	"github.com/kailas-cloud/errmatch/internal/metrics"
)

// DefaultMinSimilarity is the similarity at which a catalogued match wins over classification.
const DefaultMinSimilarity = 0.75

// Options configures the triage policy.
type Options struct {
	MinSimilarity float64
	// DefaultLabels are used when the caller supplies none.
	DefaultLabels []string
}

// Service combines the similarity and zero-shot paths into one verdict.
type Service struct {
	matcher    Matcher
	classifier Classifier
	opts       Options
	logger     *zap.Logger
}

// New creates a triage service. classifier may be nil; then sub-threshold
// matches yield a "none" verdict.
func New(matcher Matcher, classifier Classifier, opts Options, logger *zap.Logger) *Service {
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	return &Service{matcher: matcher, classifier: classifier, opts: opts, logger: logger}
}

// Triage returns a match verdict when the nearest known error is similar
// enough, otherwise a classification verdict over labels (or the configured
// defaults). The sub-threshold match, if any, is kept on the verdict as a hint.
func (s *Service) Triage(ctx context.Context, text string, labels []string) (domain.Verdict, error) {
	if domain.NormalizeText(text) == "" {
		return domain.Verdict{}, fmt.Errorf("log text: %w", domain.ErrEmptyInput)
	}

	m, found, err := s.matcher.FindBestMatch(ctx, text)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("similarity path: %w", err)
	}

	v := domain.Verdict{Source: domain.SourceNone}
	if found {
		v = withMatch(v, m)
		if m.Similarity >= s.opts.MinSimilarity {
			v.Source = domain.SourceMatch
			v.Category = m.Record.Category()
			v.Solution = m.Record.Solution()
			return s.done(v), nil
		}
	}

	if len(labels) == 0 {
		labels = s.opts.DefaultLabels
	}
	if len(labels) == 0 || s.classifier == nil {
		return s.done(v), nil
	}

	c, err := s.classifier.Classify(ctx, text, labels)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("classification path: %w", err)
	}
	v.Source = domain.SourceClassification
	v.Category = c.Category()
	v.Confidence = c.Confidence()
	v.Ranked = c.Ranked
	v.Solution = ""
	return s.done(v), nil
}

func withMatch(v domain.Verdict, m knownerror.Match) domain.Verdict {
	v.HasMatch = true
	v.MatchID = m.Record.ID()
	v.ErrorText = m.Record.ErrorText()
	v.Similarity = m.Similarity
	return v
}

func (s *Service) done(v domain.Verdict) domain.Verdict {
	metrics.TriageTotal.WithLabelValues(string(v.Source)).Inc()
	s.logger.Debug("Triage verdict",
		zap.String("source", string(v.Source)),
		zap.String("category", v.Category),
		zap.Bool("has_match", v.HasMatch),
		zap.Float64("similarity", v.Similarity),
		zap.Float64("confidence", v.Confidence),
	)
	return v
}
