package health

import "context"

// StorePinger checks knowledge base availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an external provider (embedder, classifier).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
