package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/errmatch/internal/db"
)

// Get reads a cached value. A miss is db.ErrKeyNotFound so the embedding
// cache can fall through to the provider without treating it as a failure.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		return data, nil
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
}

// SetWithTTL stores a cached value that expires after ttl. A non-positive
// ttl keeps the entry until it is overwritten or evicted.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	v := rueidis.BinaryString(value)
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = s.b().Set().Key(key).Value(v).Ex(ttl).Build()
	} else {
		cmd = s.b().Set().Key(key).Value(v).Build()
	}
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
