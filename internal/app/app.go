// Package app assembles the errmatch use cases from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/config"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
	"github.com/kailas-cloud/errmatch/internal/metrics"
	"github.com/kailas-cloud/errmatch/internal/usecase/classification"
	"github.com/kailas-cloud/errmatch/internal/usecase/health"
	"github.com/kailas-cloud/errmatch/internal/usecase/ingestion"
	"github.com/kailas-cloud/errmatch/internal/usecase/matching"
	"github.com/kailas-cloud/errmatch/internal/usecase/triage"
)

// KnowledgeBase is implemented by every store backend.
type KnowledgeBase interface {
	Replace(ctx context.Context, version string, records []knownerror.Record) (int, error)
	Nearest(ctx context.Context, vector []float32, k int) ([]knownerror.Candidate, error)
	Version(ctx context.Context) (string, bool, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Parts are the collaborators behind the use cases.
type Parts struct {
	// Store is nil when no database is configured.
	Store            KnowledgeBase
	QueryEmbedder    domain.Embedder
	DocumentEmbedder domain.Embedder
	Classifier       domain.Classifier
	// ClassifierProvider labels classification metrics.
	ClassifierProvider string
	Version            string
	Dimensions         int
}

// App holds the wired use cases and owns the resources behind them.
type App struct {
	Matching       *matching.Service
	Classification *classification.Service
	Triage         *triage.Service
	Ingestion      *ingestion.Service
	Health         *health.Service

	store   KnowledgeBase
	version string
	logger  *zap.Logger
	closers []func() error
}

// Build opens the configured store, embedder and classifier and wires the use cases.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterTriageMetrics()

	var closers []func() error
	fail := func(err error) (*App, error) {
		closeAll(closers, logger)
		return nil, err
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	emb, err := NewEmbedders(cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, emb.Close)

	clf, err := NewClassifier(cfg.Classification, emb.Query, logger)
	if err != nil {
		return fail(err)
	}

	a := Assemble(Parts{
		Store:              store,
		QueryEmbedder:      emb.Query,
		DocumentEmbedder:   emb.Document,
		Classifier:         clf,
		ClassifierProvider: cfg.Classification.Provider,
		Version:            emb.Version,
		Dimensions:         cfg.Embedding.Dimensions,
	}, cfg, logger)
	a.closers = closers

	logger.Info("errmatch wired",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("database_configured", store != nil),
		zap.String("embedder_version", emb.Version),
		zap.String("classifier", cfg.Classification.Provider),
	)
	return a, nil
}

// Assemble wires use cases around already-built collaborators.
func Assemble(p Parts, cfg config.Config, logger *zap.Logger) *App {
	// Keep nil interfaces nil: a typed nil store would pass the "configured" checks.
	var (
		matchStore  matching.Store
		ingestStore ingestion.Store
		pinger      health.StorePinger
	)
	if p.Store != nil {
		matchStore, ingestStore, pinger = p.Store, p.Store, p.Store
	}

	matchSvc := matching.New(matchStore, p.QueryEmbedder, matching.Options{
		Version:      p.Version,
		Dimensions:   p.Dimensions,
		Candidates:   cfg.Matching.Candidates,
		WindowChars:  cfg.Matching.WindowChars,
		ClipNegative: cfg.Matching.ClipNegative,
		Timeout:      cfg.Matching.Timeout(),
	}, logger)

	classSvc := classification.New(p.Classifier, classification.Options{
		Provider:    p.ClassifierProvider,
		WindowChars: cfg.Classification.WindowChars,
		Timeout:     cfg.Classification.Timeout(),
	}, logger)

	return &App{
		Matching:       matchSvc,
		Classification: classSvc,
		Triage: triage.New(matchSvc, classSvc, triage.Options{
			MinSimilarity: cfg.Triage.MinSimilarity,
			DefaultLabels: cfg.Triage.DefaultLabels,
		}, logger),
		Ingestion: ingestion.New(ingestStore, p.DocumentEmbedder, ingestion.Options{
			Version:     p.Version,
			Dimensions:  p.Dimensions,
			WindowChars: cfg.Matching.WindowChars,
		}, logger),
		Health:  health.New(pinger, checker(p.QueryEmbedder), checker(p.Classifier)),
		store:   p.Store,
		version: p.Version,
		logger:  logger,
	}
}

// Version returns the embedder version the catalog is built with.
func (a *App) Version() string { return a.version }

// Migrate creates the schema for backends that need one.
func (a *App) Migrate(ctx context.Context) error {
	if a.store == nil {
		return domain.ErrDatabaseNotConfigured
	}
	m, ok := a.store.(migrator)
	if !ok {
		a.logger.Info("backend has no schema to migrate")
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Count returns the number of catalogued records.
func (a *App) Count(ctx context.Context) (int, error) {
	if a.store == nil {
		return 0, domain.ErrDatabaseNotConfigured
	}
	return a.store.Count(ctx)
}

// OnClose registers fn to run on Close, after the ones already registered.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	err := closeAll(a.closers, a.logger)
	a.closers = nil
	return err
}

func closeAll(closers []func() error, logger *zap.Logger) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checker returns v's health check, or nil when it has none.
func checker(v any) health.Checker {
	if hc, ok := v.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}
