package redisft

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/errmatch/internal/db"
)

// mockStore implements the consumer interface for tests.
// It keeps hashes and string keys in maps so reseed flows can be asserted end to end.
type mockStore struct {
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition
	aliases map[string]string
	dropped []string

	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllHook   func(key string)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	aliasUpdateFn func(ctx context.Context, alias, index string) error
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	pingFn        func(ctx context.Context) error
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes:  map[string]map[string]string{},
		indexes: map[string]*db.IndexDefinition{},
		aliases: map[string]string{},
	}
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		if err := m.hsetFn(ctx, key, fields); err != nil {
			return err
		}
	}
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		if err := m.hsetMultiFn(ctx, items); err != nil {
			return err
		}
	}
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.hgetAllHook != nil {
		hook := m.hgetAllHook
		m.hgetAllHook = nil
		hook(key)
	}
	if h, ok := m.hashes[key]; ok {
		return h, nil
	}
	return map[string]string{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		if err := m.createIndexFn(ctx, def); err != nil {
			return err
		}
	}
	m.indexes[def.Name] = def
	return nil
}

func (m *mockStore) DropIndex(_ context.Context, name string, deleteDocs bool) error {
	def, ok := m.indexes[name]
	if !ok {
		return db.ErrIndexNotFound
	}
	if deleteDocs {
		for key := range m.hashes {
			for _, p := range def.Prefixes {
				if len(key) >= len(p) && key[:len(p)] == p {
					delete(m.hashes, key)
				}
			}
		}
	}
	// Dropping an index removes the aliases pointing at it.
	for alias, target := range m.aliases {
		if target == name {
			delete(m.aliases, alias)
		}
	}
	delete(m.indexes, name)
	m.dropped = append(m.dropped, name)
	return nil
}

func (m *mockStore) AliasUpdate(ctx context.Context, alias, index string) error {
	if m.aliasUpdateFn != nil {
		if err := m.aliasUpdateFn(ctx, alias, index); err != nil {
			return err
		}
	}
	m.aliases[alias] = index
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

// recordKeys returns hash keys holding records (excludes the catalog hash).
func (m *mockStore) recordKeys() []string {
	var keys []string
	for k, h := range m.hashes {
		if _, ok := h[fieldID]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	repo := New(ms, Options{Dimensions: 2}, zap.NewNop())
	n := 0
	repo.newGen = func() string {
		n++
		return "g" + string(rune('0'+n))
	}
	return repo, ms
}
