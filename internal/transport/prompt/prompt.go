// Package prompt builds the label-scoring prompt shared by the chat-model
// classifiers and parses their JSON answer.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

// System instructs the model to score every label and answer with JSON only.
const System = `You triage build and runtime error logs.
Given a log excerpt and a list of candidate categories, estimate for every category the probability that the log belongs to it.
Answer with a single JSON object and nothing else, in the form:
{"scores":[{"label":"<category>","score":<number between 0 and 1>}]}
Use the category names exactly as given. Include every category once. Scores should sum to 1.`

// User renders the log excerpt and candidate labels.
func User(text string, labels []string) string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, l := range labels {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("\nLog:\n<log>\n")
	b.WriteString(text)
	b.WriteString("\n</log>")
	return b.String()
}

type answer struct {
	Scores []domain.LabelScore `json:"scores"`
}

// ParseScores extracts the JSON object from a model reply. Code fences and
// surrounding prose are tolerated. Failures carry ErrClassifierProviderError.
func ParseScores(reply string) ([]domain.LabelScore, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply: %w", domain.ErrClassifierProviderError)
	}

	var a answer
	if err := json.Unmarshal([]byte(reply[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("decode reply: %w: %w", domain.ErrClassifierProviderError, err)
	}
	if len(a.Scores) == 0 {
		return nil, fmt.Errorf("reply has no scores: %w", domain.ErrClassifierProviderError)
	}
	return a.Scores, nil
}
