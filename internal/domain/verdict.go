package domain

// VerdictSource names the strategy that decided a triage verdict.
type VerdictSource string

const (
	SourceMatch          VerdictSource = "match"
	SourceClassification VerdictSource = "classification"
	SourceNone           VerdictSource = "none"
)

// Verdict is the combined triage outcome. Similarity and Confidence are
// different quantities and are never merged into one score.
type Verdict struct {
	Source   VerdictSource
	Category string
	Solution string

	// MatchID is zero when no record was found.
	MatchID    int64
	ErrorText  string
	Similarity float64
	HasMatch   bool

	Confidence float64
	Ranked     []LabelScore
}
