package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single request.
// The transport installs a pointer in the context, services add to it after
// embedding, and the transport reports it in response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // embedding was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
