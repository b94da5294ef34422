package errmatch

import "context"

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component -> "ok", "error", "not_configured"
}

// Health checks the knowledge base, the embedder and the classifier.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.app.Health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
