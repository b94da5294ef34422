package errmatch

import (
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// KnownError is a curated catalog entry.
type KnownError struct {
	ErrorText string `json:"errorText" yaml:"errorText"`
	Solution  string `json:"solution" yaml:"solution"`
	Category  string `json:"category" yaml:"category"`
}

// Match is the nearest catalogued error to a query.
type Match struct {
	ID         int64
	ErrorText  string
	Solution   string
	Category   string
	Similarity float64
}

// LabelScore is one candidate label with its confidence.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classification ranks the candidate labels. Category is the top entry.
type Classification struct {
	Category   string
	Confidence float64
	Ranked     []LabelScore
}

// Source names the strategy behind a triage verdict.
type Source string

const (
	SourceMatch          Source = "match"
	SourceClassification Source = "classification"
	SourceNone           Source = "none"
)

// Verdict is a triage outcome. Similarity describes the catalogued match and
// Confidence the classification; they are never compared with each other.
type Verdict struct {
	Source   Source
	Category string
	Solution string

	// Match is set whenever a catalogued error was found, even below the threshold.
	Match *Match

	Confidence float64
	Ranked     []LabelScore
}

func toEntries(in []KnownError) []knownerror.Entry {
	out := make([]knownerror.Entry, len(in))
	for i, k := range in {
		out[i] = knownerror.Entry{ErrorText: k.ErrorText, Solution: k.Solution, Category: k.Category}
	}
	return out
}

func fromEntries(in []knownerror.Entry) []KnownError {
	out := make([]KnownError, len(in))
	for i, e := range in {
		out[i] = KnownError{ErrorText: e.ErrorText, Solution: e.Solution, Category: e.Category}
	}
	return out
}

func fromMatch(m knownerror.Match) Match {
	return Match{
		ID:         m.Record.ID(),
		ErrorText:  m.Record.ErrorText(),
		Solution:   m.Record.Solution(),
		Category:   m.Record.Category(),
		Similarity: m.Similarity,
	}
}

func fromRanked(in []domain.LabelScore) []LabelScore {
	if len(in) == 0 {
		return nil
	}
	out := make([]LabelScore, len(in))
	for i, ls := range in {
		out[i] = LabelScore{Label: ls.Label, Score: ls.Score}
	}
	return out
}

func fromClassification(c domain.Classification) Classification {
	return Classification{
		Category:   c.Category(),
		Confidence: c.Confidence(),
		Ranked:     fromRanked(c.Ranked),
	}
}

func fromVerdict(v domain.Verdict) Verdict {
	out := Verdict{
		Source:     Source(v.Source),
		Category:   v.Category,
		Solution:   v.Solution,
		Confidence: v.Confidence,
		Ranked:     fromRanked(v.Ranked),
	}
	if v.HasMatch {
		out.Match = &Match{
			ID:         v.MatchID,
			ErrorText:  v.ErrorText,
			Similarity: v.Similarity,
		}
		if v.Source == domain.SourceMatch {
			out.Match.Solution = v.Solution
			out.Match.Category = v.Category
		}
	}
	return out
}
