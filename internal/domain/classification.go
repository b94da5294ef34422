package domain

import (
	"context"
	"fmt"
	"sort"
)

// Classifier ranks candidate labels for a text. Scores are in [0, 1], descending.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

// LabelScore is one candidate label with its confidence.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classification is the validated, ranked classifier output.
type Classification struct {
	Ranked []LabelScore
}

// Category returns the top-ranked label.
func (c Classification) Category() string {
	if len(c.Ranked) == 0 {
		return ""
	}
	return c.Ranked[0].Label
}

// Confidence returns the top-ranked score.
func (c Classification) Confidence() float64 {
	if len(c.Ranked) == 0 {
		return 0
	}
	return c.Ranked[0].Score
}

// NewClassification validates raw classifier output against the candidate labels
// and sorts it by score descending, breaking ties by candidate order.
func NewClassification(raw []LabelScore, candidates []string) (Classification, error) {
	if len(raw) == 0 {
		return Classification{}, fmt.Errorf("empty ranking: %w", ErrClassifierProviderError)
	}
	order := make(map[string]int, len(candidates))
	for i, l := range candidates {
		order[l] = i
	}

	ranked := make([]LabelScore, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, ls := range raw {
		if _, ok := order[ls.Label]; !ok {
			return Classification{}, fmt.Errorf("unknown label %q: %w", ls.Label, ErrClassifierProviderError)
		}
		if _, dup := seen[ls.Label]; dup {
			return Classification{}, fmt.Errorf("label %q ranked twice: %w", ls.Label, ErrClassifierProviderError)
		}
		if ls.Score < 0 || ls.Score > 1 || ls.Score != ls.Score {
			return Classification{}, fmt.Errorf("score %v for %q out of range: %w", ls.Score, ls.Label, ErrClassifierProviderError)
		}
		seen[ls.Label] = struct{}{}
		ranked = append(ranked, ls)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return order[ranked[i].Label] < order[ranked[j].Label]
	})
	return Classification{Ranked: ranked}, nil
}
