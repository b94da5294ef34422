package db

import (
	"context"
	"time"
)

// Store is the Redis facade behind the redisft knowledge base and the
// embedding cache. Known-error records are hashes under a per-generation
// prefix, the live generation is named by one catalog hash, and cached
// embeddings are plain string keys with a TTL.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one known-error record hash for a pipelined write.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore writes and reads record and catalog hashes.
type HashStore interface {
	// HSet writes all fields of one hash in a single command.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetMulti pipelines one HSET per item and reports the first failing key.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore holds opaque cached values such as encoded embeddings.
type KVStore interface {
	// Get returns ErrKeyNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores without expiry when ttl is not positive.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index and alias lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes an index; deleteDocs also removes the indexed hashes (DD).
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// AliasUpdate atomically points alias at index, creating the alias if needed.
	AliasUpdate(ctx context.Context, alias, index string) error
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
