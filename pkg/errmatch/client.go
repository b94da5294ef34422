package errmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/app"
	"github.com/kailas-cloud/errmatch/internal/config"
	"github.com/kailas-cloud/errmatch/internal/domain"
	"github.com/kailas-cloud/errmatch/internal/domain/knownerror"
)

const customProvider = "custom"

// Internal interfaces for substitution in tests.
type matchUseCase interface {
	FindBestMatch(ctx context.Context, errorText string) (knownerror.Match, bool, error)
}

type classifyUseCase interface {
	Classify(ctx context.Context, text string, labels []string) (domain.Classification, error)
}

type triageUseCase interface {
	Triage(ctx context.Context, text string, labels []string) (domain.Verdict, error)
}

type reseedUseCase interface {
	Reseed(ctx context.Context, entries []knownerror.Entry) (int, error)
}

// Client is the errmatch SDK entry point. It is safe for concurrent use.
type Client struct {
	app        *app.App
	matcher    matchUseCase
	classifier classifyUseCase
	triage     triageUseCase
	reseeder   reseedUseCase
	obs        *observer
}

// New creates a Client. The provided context bounds the initial connection
// and readiness check of the knowledge base.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	cfg := cc.toConfig()
	logger := zap.NewNop()

	var closers []func() error
	fail := func(err error) (*Client, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	parts := app.Parts{
		ClassifierProvider: cfg.Classification.Provider,
		Dimensions:         cfg.Embedding.Dimensions,
	}

	switch {
	case cc.embedder != nil:
		if cc.dims <= 0 {
			return nil, errors.New("errmatch: WithEmbedder needs positive dimensions")
		}
		emb := &embedderAdapter{inner: cc.embedder}
		parts.QueryEmbedder, parts.DocumentEmbedder = emb, emb
		parts.Version = domain.EmbedderVersion(customProvider, cc.embedderModel, cc.dims)
	case cc.embedding != nil:
		embs, err := app.NewEmbedders(cfg, logger)
		if err != nil {
			return fail(fmt.Errorf("errmatch: create embedder: %w", err))
		}
		closers = append(closers, embs.Close)
		parts.QueryEmbedder, parts.DocumentEmbedder = embs.Query, embs.Document
		parts.Version = embs.Version
	default:
		return nil, errors.New("errmatch: embedder required (use WithEmbedder, WithONNX or WithOpenAI)")
	}

	if cc.classifier != nil {
		parts.Classifier = &classifierAdapter{inner: cc.classifier}
		parts.ClassifierProvider = customProvider
	} else {
		clf, err := app.NewClassifier(cfg.Classification, parts.QueryEmbedder, logger)
		if err != nil {
			return fail(fmt.Errorf("errmatch: create classifier: %w", err))
		}
		parts.Classifier = clf
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("errmatch: open knowledge base: %w", err))
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}
	parts.Store = store

	a := app.Assemble(parts, cfg, logger)
	for _, fn := range closers {
		a.OnClose(fn)
	}
	return newClient(a, obs), nil
}

func newClient(a *app.App, obs *observer) *Client {
	return &Client{
		app:        a,
		matcher:    a.Matching,
		classifier: a.Classification,
		triage:     a.Triage,
		reseeder:   a.Ingestion,
		obs:        obs,
	}
}

func (cc *clientConfig) toConfig() config.Config {
	cfg := config.Config{Database: cc.database}
	if cc.embedding != nil {
		cfg.Embedding = *cc.embedding
	}
	cfg.Classification = cc.classification
	cfg.Triage = config.TriageConfig{MinSimilarity: cc.minSimilarity, DefaultLabels: cc.defaultLabels}
	cfg.ApplyDefaults()
	if cc.embedder != nil {
		cfg.Embedding.Dimensions = cc.dims
	}
	return cfg
}

// Close releases the knowledge base connection and model sessions.
func (c *Client) Close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// EmbedderVersion identifies the vector space the client reads and writes.
func (c *Client) EmbedderVersion() string {
	return c.app.Version()
}

// Migrate creates the knowledge base schema if the backend needs one.
func (c *Client) Migrate(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("migrate", start, err) }()

	return c.app.Migrate(ctx)
}

// FindBestMatch returns the catalogued error nearest to errorText. found is
// false when the catalog is empty.
func (c *Client) FindBestMatch(ctx context.Context, errorText string) (m Match, found bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("match", start, err) }()

	res, found, err := c.matcher.FindBestMatch(ctx, errorText)
	if err != nil || !found {
		return Match{}, false, err
	}
	c.obs.matched(res.Similarity)
	return fromMatch(res), true, nil
}

// Classify assigns one of labels to logText.
func (c *Client) Classify(ctx context.Context, logText string, labels []string) (res Classification, err error) {
	start := time.Now()
	defer func() { c.obs.observe("classify", start, err) }()

	out, err := c.classifier.Classify(ctx, logText, labels)
	if err != nil {
		return Classification{}, err
	}
	return fromClassification(out), nil
}

// Triage prefers a sufficiently similar catalogued error and otherwise
// classifies logText against labels (or the configured default labels).
func (c *Client) Triage(ctx context.Context, logText string, labels ...string) (v Verdict, err error) {
	start := time.Now()
	defer func() { c.obs.observe("triage", start, err) }()

	out, err := c.triage.Triage(ctx, logText, labels)
	if err != nil {
		return Verdict{}, err
	}
	return fromVerdict(out), nil
}

// Reseed replaces the catalog with entries, or with DefaultCatalog when
// entries is nil. The replacement is atomic: on error the old catalog stays.
func (c *Client) Reseed(ctx context.Context, entries []KnownError) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reseed", start, err) }()

	if entries == nil {
		entries = DefaultCatalog()
	}
	return c.reseeder.Reseed(ctx, toEntries(entries))
}
