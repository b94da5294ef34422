package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a mock rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c, name: "test"}
}
