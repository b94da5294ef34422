package chi

import (
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

// ErrorResponse is the error envelope shared with the CLI.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MatchRequest is the body of POST /v1/match.
type MatchRequest struct {
	ErrorText string `json:"error_text"`
}

// MatchResponse is the best catalogued match.
type MatchResponse struct {
	ID         int64   `json:"id"`
	ErrorText  string  `json:"errorText"`
	Solution   string  `json:"solution"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
}

// NewMatchResponse converts a domain match.
func NewMatchResponse(m knownerror.Match) MatchResponse {
	return MatchResponse{
		ID:         m.Record.ID(),
		ErrorText:  m.Record.ErrorText(),
		Solution:   m.Record.Solution(),
		Category:   m.Record.Category(),
		Similarity: m.Similarity,
	}
}

// ClassifyRequest is the body of POST /v1/classify and POST /v1/triage.
type ClassifyRequest struct {
	LogText string   `json:"log_text"`
	Labels  []string `json:"labels"`
}

// ClassifyResponse surfaces only the top-ranked label.
type ClassifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// NewClassifyResponse converts a domain classification.
func NewClassifyResponse(c domain.Classification) ClassifyResponse {
	return ClassifyResponse{Category: c.Category(), Confidence: c.Confidence()}
}

// TriageMatch is the nearest catalogued error attached to a verdict.
type TriageMatch struct {
	ID         int64   `json:"id"`
	ErrorText  string  `json:"errorText"`
	Similarity float64 `json:"similarity"`
}

// TriageResponse keeps similarity and confidence in separate fields.
type TriageResponse struct {
	Source     string              `json:"source"`
	Category   string              `json:"category,omitempty"`
	Solution   string              `json:"solution,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
	Ranked     []domain.LabelScore `json:"ranked,omitempty"`
	Match      *TriageMatch        `json:"match,omitempty"`
}

// NewTriageResponse converts a domain verdict.
func NewTriageResponse(v domain.Verdict) TriageResponse {
	resp := TriageResponse{
		Source:   string(v.Source),
		Category: v.Category,
		Solution: v.Solution,
		Ranked:   v.Ranked,
	}
	if v.Source == domain.SourceClassification {
		c := v.Confidence
		resp.Confidence = &c
	}
	if v.HasMatch {
		resp.Match = &TriageMatch{ID: v.MatchID, ErrorText: v.ErrorText, Similarity: v.Similarity}
	}
	return resp
}

// ReseedRequest optionally carries the entries to load.
type ReseedRequest struct {
	Entries []knownerror.Entry `json:"entries"`
}

// ReseedResponse reports the number of stored records.
type ReseedResponse struct {
	Seeded int `json:"seeded"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
