package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/errmatch/internal/db"
)

var _ db.Store = (*Store)(nil)

const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName is reported via CLIENT SETNAME, e.g. errmatch-kb or errmatch-embcache.
	ClientName string
}

// Store implements db.Store via rueidis for Redis 8+ (RediSearch FT.* built in).
// The same type backs the knowledge base and the embedding cache; each opens
// its own client.
type Store struct {
	client rueidis.Client
	name   string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = "errmatch"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH reply parsing expects RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("redis %s: connect %v: %w", name, cfg.Addrs, err)
	}

	return &Store{client: client, name: name}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: "PING", Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately and then every readyPollInterval until the
// server answers or timeout expires. Used at startup before the first reseed
// or cache lookup.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var last error
	for {
		if last = s.Ping(ctx); last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis %s not ready after %s: %w", s.name, timeout, last)
		case <-ticker.C:
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// Server error fragments RediSearch uses for index lifecycle failures.
const (
	msgUnknownIndex  = "unknown index name"
	msgNoSuchIndex   = "no such index"
	msgIndexConflict = "index already exists"
)

// serverErrContains reports whether err is a Redis server reply containing
// any of the fragments, ignoring case.
func serverErrContains(err error, fragments ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, f := range fragments {
		if strings.Contains(msg, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// isIndexMissing matches both spellings: FT.INFO and FT.DROPINDEX say
// "Unknown index name", FT.SEARCH on a dropped alias says "no such index".
func isIndexMissing(err error) bool {
	return serverErrContains(err, msgUnknownIndex, msgNoSuchIndex)
}
