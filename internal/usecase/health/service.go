package health

import (
	"context"
	"errors"

	"github.com/kailas-cloud/errmatch/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckNotConfigured marks a component the deployment runs without.
	CheckNotConfigured CheckResult = "not_configured"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store      StorePinger
	embedding  Checker
	classifier Checker
}

// New creates a Service. store is nil when no database is configured;
// embedding and classifier are nil when the provider has no health endpoint.
func New(store StorePinger, embedding, classifier Checker) *Service {
	return &Service{store: store, embedding: embedding, classifier: classifier}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store == nil {
		checks["store"] = CheckNotConfigured
	} else {
		checks["store"] = result(s.store.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.classifier != nil {
		checks["classifier"] = result(s.classifier.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	switch {
	case err == nil:
		return CheckOK
	case errors.Is(err, domain.ErrDatabaseNotConfigured):
		return CheckNotConfigured
	default:
		return CheckError
	}
}
