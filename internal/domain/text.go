package domain

import (
	"fmt"
	"strings"
)

// NormalizeText trims surrounding whitespace and converts CRLF/CR line endings to LF.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// TrailingWindow keeps the last n characters of s. Texts of n characters or
// fewer are returned unchanged. n <= 0 disables truncation.
func TrailingWindow(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// NormalizeLabels trims each label and rejects empty sets, blank labels and duplicates.
// Order is preserved; it is the tie-break order for equal scores.
func NormalizeLabels(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, fmt.Errorf("label [%d] is blank: %w", i, ErrInvalidLabels)
		}
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("label %q is duplicated: %w", l, ErrInvalidLabels)
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}
