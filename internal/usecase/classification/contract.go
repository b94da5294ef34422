package classification

import (
	"context"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

// Classifier ranks candidate labels for a text.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]domain.LabelScore, error)
}
