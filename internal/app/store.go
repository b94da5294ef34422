package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/config"
	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/db/postgres"
	dbredis "github.com/kailas-cloud/errmatch/internal/db/redis"
	"github.com/kailas-cloud/errmatch/internal/db/sqlite"
	"github.com/kailas-cloud/errmatch/internal/repository/knownerror/memory"
	"github.com/kailas-cloud/errmatch/internal/repository/knownerror/pgvector"
	"github.com/kailas-cloud/errmatch/internal/repository/knownerror/redisft"
	"github.com/kailas-cloud/errmatch/internal/repository/knownerror/sqlitevec"
)

// OpenStore connects the configured backend. A postgres driver without a URL
// yields a nil store and no error: callers report it per request.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (KnowledgeBase, func() error, error) {
	dbCfg := cfg.Database
	dims := cfg.Embedding.Dimensions
	ready := time.Duration(dbCfg.ReadinessTimeout) * time.Second

	switch dbCfg.Driver {
	case config.DriverPostgres:
		if dbCfg.URL == "" {
			logger.Warn("database.url is empty; similarity queries and reseed are unavailable")
			return nil, nil, nil
		}
		client, err := postgres.NewClient(ctx, postgres.Config{URL: dbCfg.URL, MaxConns: dbCfg.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := client.WaitForReady(ctx, ready); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("postgres not ready: %w", err)
		}
		repo := pgvector.New(client.Pool(), pgvector.Options{
			Dimensions:      dims,
			Algorithm:       dbCfg.Index.Algorithm,
			HNSWM:           dbCfg.Index.HNSWM,
			HNSWEFConstruct: dbCfg.Index.HNSWEFConstruct,
		}, logger)
		return repo, closeFn(client.Close), nil

	case config.DriverRedis:
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs: dbCfg.Addrs, Password: dbCfg.Password, ClientName: "errmatch-kb",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		if err := store.WaitForReady(ctx, ready); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		algo := db.VectorHNSW
		if dbCfg.Index.Algorithm == "flat" {
			algo = db.VectorFlat
		}
		repo := redisft.New(store, redisft.Options{
			KeyPrefix:       dbCfg.KeyPrefix,
			Dimensions:      dims,
			Algorithm:       algo,
			HNSWM:           dbCfg.Index.HNSWM,
			HNSWEFConstruct: dbCfg.Index.HNSWEFConstruct,
		}, logger)
		return repo, closeFn(store.Close), nil

	case config.DriverSQLite:
		conn, err := sqlite.Open(dbCfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		repo, err := sqlitevec.New(ctx, conn, dims, logger)
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return repo, conn.Close, nil

	case config.DriverMemory:
		return memory.New(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
	}
}

func closeFn(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}
