package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	healthuc "github.com/kailas-cloud/errmatch/internal/usecase/health"
)

// Client-facing messages shared with the CLI envelopes.
const (
	MsgNoErrorText     = "No error_text provided"
	MsgNoLogText       = "No log_text provided"
	MsgNoMatches       = "No matches found"
	MsgDatabaseMissing = "DATABASE_URL not set in environment"
)

// maxBodyBytes bounds request bodies; logs can be large.
const maxBodyBytes = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, emptyMsg string) bool

// Server serves the errmatch HTTP API.
type Server struct {
	matcher    Matcher
	classifier Classifier
	triage     Triager
	reseeder   Reseeder
	health     HealthReporter
	catalog    func() ([]knownerror.Entry, error)
	logger     *zap.Logger

	errorHandlers []errorHandler
}

// Deps collects the use cases behind the API. Catalog supplies the entries
// for a reseed request without a body.
type Deps struct {
	Matcher    Matcher
	Classifier Classifier
	Triage     Triager
	Reseeder   Reseeder
	Health     HealthReporter
	Catalog    func() ([]knownerror.Entry, error)
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		matcher:    deps.Matcher,
		classifier: deps.Classifier,
		triage:     deps.Triage,
		reseeder:   deps.Reseeder,
		health:     deps.Health,
		catalog:    deps.Catalog,
		logger:     logger,
	}
	// Order matters: a provider error that timed out reports as a timeout.
	s.errorHandlers = []errorHandler{
		emptyInputHandler,
		sentinelHandler(domain.ErrNoLabels, http.StatusBadRequest, "No labels provided"),
		sentinelHandler(domain.ErrInvalidLabels, http.StatusBadRequest, "Labels must be non-blank and unique"),
		sentinelHandler(domain.ErrInvalidCatalog, http.StatusBadRequest, domain.ErrInvalidCatalog.Error()),
		sentinelHandler(domain.ErrDatabaseNotConfigured, http.StatusServiceUnavailable, MsgDatabaseMissing),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, domain.ErrTimeout.Error()),
		sentinelHandler(domain.ErrEmbedderVersionMismatch, http.StatusConflict,
			"catalog was built by a different embedder; reseed required"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError,
			domain.ErrVectorDimMismatch.Error()),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway,
			domain.ErrEmbeddingProviderError.Error()),
		sentinelHandler(domain.ErrClassifierProviderError, http.StatusBadGateway,
			domain.ErrClassifierProviderError.Error()),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable,
			domain.ErrStoreUnavailable.Error()),
	}
	return s
}

// Match handles POST /v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, found, err := s.matcher.FindBestMatch(r.Context(), req.ErrorText)
	if err != nil {
		s.handleDomainError(w, r, err, MsgNoErrorText)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, MsgNoMatches)
		return
	}

	writeJSON(w, http.StatusOK, NewMatchResponse(m))
}

// Classify handles POST /v1/classify.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.classifier.Classify(r.Context(), req.LogText, req.Labels)
	if err != nil {
		s.handleDomainError(w, r, err, MsgNoLogText)
		return
	}

	writeJSON(w, http.StatusOK, NewClassifyResponse(c))
}

// Triage handles POST /v1/triage.
func (s *Server) Triage(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	v, err := s.triage.Triage(r.Context(), req.LogText, req.Labels)
	if err != nil {
		s.handleDomainError(w, r, err, MsgNoLogText)
		return
	}

	writeJSON(w, http.StatusOK, NewTriageResponse(v))
}

// Reseed handles POST /v1/reseed. An empty body or entry list loads the configured catalog.
func (s *Server) Reseed(w http.ResponseWriter, r *http.Request) {
	var req ReseedRequest
	if !s.decode(w, r, &req) {
		return
	}

	entries := req.Entries
	if len(entries) == 0 && s.catalog != nil {
		var err error
		if entries, err = s.catalog(); err != nil {
			s.handleDomainError(w, r, err, "")
			return
		}
	}

	n, err := s.reseeder.Reseed(r.Context(), entries)
	if err != nil {
		s.handleDomainError(w, r, err, "No entries provided")
		return
	}

	writeJSON(w, http.StatusOK, ReseedResponse{Seeded: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body. An empty body decodes to the zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// emptyInputHandler reports ErrEmptyInput with the route's own message.
func emptyInputHandler(w http.ResponseWriter, err error, emptyMsg string) bool {
	if !errors.Is(err, domain.ErrEmptyInput) {
		return false
	}
	if emptyMsg == "" {
		emptyMsg = domain.ErrEmptyInput.Error()
	}
	writeError(w, http.StatusBadRequest, emptyMsg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error, emptyMsg string) {
	log := requestLogger(r, s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err, emptyMsg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
