package triage

import (
	"context"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// Matcher runs the similarity path.
type Matcher interface {
	FindBestMatch(ctx context.Context, errorText string) (knownerror.Match, bool, error)
}

// Classifier runs the zero-shot path.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (domain.Classification, error)
}
