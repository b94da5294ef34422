package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/metrics"
)

// NewRouter mounts the API with its middleware stack.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	metrics.RegisterHTTPMetrics()

	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chimw.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware("/metrics"))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", s.Match)
		r.Post("/classify", s.Classify)
		r.Post("/triage", s.Triage)
		r.Post("/reseed", s.Reseed)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
