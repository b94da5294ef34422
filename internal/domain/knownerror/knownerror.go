package knownerror

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

// MaxErrorTextSize caps a curated error signature, in bytes.
const MaxErrorTextSize = 16384

// TieEpsilon is the distance difference under which two candidates are equally near.
const TieEpsilon = 1e-9

// Entry is a curated known error before embedding.
type Entry struct {
	ErrorText string `json:"errorText" yaml:"errorText"`
	Solution  string `json:"solution" yaml:"solution"`
	Category  string `json:"category" yaml:"category"`
}

// Validate normalizes the entry in place and checks required fields.
func (e *Entry) Validate() error {
	e.ErrorText = domain.NormalizeText(e.ErrorText)
	e.Category = strings.TrimSpace(e.Category)
	e.Solution = strings.TrimSpace(e.Solution)

	if e.ErrorText == "" {
		return fmt.Errorf("errorText is required: %w", domain.ErrInvalidCatalog)
	}
	if len(e.ErrorText) > MaxErrorTextSize {
		return fmt.Errorf("errorText too large (max %d bytes): %w", MaxErrorTextSize, domain.ErrInvalidCatalog)
	}
	if e.Category == "" {
		return fmt.Errorf("category is required: %w", domain.ErrInvalidCatalog)
	}
	return nil
}

// Record is a stored known error (immutable value object).
// The id is assigned by the store on insert.
type Record struct {
	id        int64
	errorText string
	embedding []float32
	solution  string
	category  string
}

// New builds a record ready for insertion from a validated entry and its embedding.
func New(e Entry, embedding []float32) Record {
	return Record{
		errorText: e.ErrorText,
		embedding: embedding,
		solution:  e.Solution,
		category:  e.Category,
	}
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id int64, errorText, solution, category string, embedding []float32) Record {
	return Record{id: id, errorText: errorText, solution: solution, category: category, embedding: embedding}
}

// WithID returns a copy carrying the store-assigned id.
func (r Record) WithID(id int64) Record {
	r.id = id
	return r
}

func (r Record) ID() int64            { return r.id }
func (r Record) ErrorText() string    { return r.errorText }
func (r Record) Solution() string     { return r.solution }
func (r Record) Category() string     { return r.category }
func (r Record) Embedding() []float32 { return r.embedding }

// Candidate is a record with its cosine distance to a query vector.
type Candidate struct {
	Record   Record
	Distance float64
}

// Less orders candidates by distance, then by id when distances tie.
func Less(a, b Candidate) bool {
	if d := a.Distance - b.Distance; d < -TieEpsilon || d > TieEpsilon {
		return a.Distance < b.Distance
	}
	return a.Record.id < b.Record.id
}

// SortCandidates sorts in place by (distance ASC, id ASC).
func SortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return Less(cs[i], cs[j]) })
}

// MaxTieFetch bounds how far FetchNearest widens a query to close a tie.
const MaxTieFetch = 4096

// FetchNearest returns the k nearest candidates under the tie-break rule from
// a backend that only ranks by distance. It over-fetches by one and keeps
// doubling while the last fetched candidate ties the k-th, so records sharing
// the boundary distance are all compared by id before truncation.
func FetchNearest(
	ctx context.Context, k int,
	fetch func(ctx context.Context, n int) ([]Candidate, error),
) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	n := k + 1
	for {
		cs, err := fetch(ctx, n)
		if err != nil {
			return nil, err
		}
		SortCandidates(cs)
		if len(cs) <= k {
			return cs, nil
		}
		if len(cs) < n || n >= MaxTieFetch || !tied(cs[k-1], cs[len(cs)-1]) {
			return cs[:k], nil
		}
		n *= 2
		if n > MaxTieFetch {
			n = MaxTieFetch
		}
	}
}

func tied(a, b Candidate) bool {
	d := a.Distance - b.Distance
	return d >= -TieEpsilon && d <= TieEpsilon
}

// Best returns the nearest candidate under the tie-break rule.
func Best(cs []Candidate) (Candidate, bool) {
	if len(cs) == 0 {
		return Candidate{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if Less(c, best) {
			best = c
		}
	}
	return best, true
}

// Match is the outcome of a similarity query. Not persisted.
type Match struct {
	Record     Record
	Distance   float64
	Similarity float64
}

// NewMatch derives similarity from the candidate distance.
func NewMatch(c Candidate) Match {
	return Match{Record: c.Record, Distance: c.Distance, Similarity: domain.Similarity(c.Distance)}
}
