package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/errmatch/internal/db"
)

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HSet writes every field in one HSET, so a reader of the catalog hash sees
// either all of a reseed's generation metadata or none of it.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: no fields", key)}
	}
	if err := s.do(ctx, s.hset(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return nil
}

// HSetMulti writes a batch of known-error record hashes in one DoMulti
// round-trip. The first failed key is reported; earlier keys stay written and
// are cleaned up by dropping the generation's index with DD.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.hset(item.Key, item.Fields)
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("record %d/%d key %s: %w", i+1, len(items), items[i].Key, err)}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key (never-seeded catalog)
// yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return m, nil
}
