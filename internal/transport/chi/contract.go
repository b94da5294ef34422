package chi

import (
	"context"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	healthuc "github.com/kailas-cloud/errmatch/internal/usecase/health"
)

// Matcher runs the similarity path.
type Matcher interface {
	FindBestMatch(ctx context.Context, errorText string) (knownerror.Match, bool, error)
}

// Classifier runs the zero-shot path.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (domain.Classification, error)
}

// Triager combines both paths.
type Triager interface {
	Triage(ctx context.Context, text string, labels []string) (domain.Verdict, error)
}

// Reseeder replaces the catalog.
type Reseeder interface {
	Reseed(ctx context.Context, entries []knownerror.Entry) (int, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
