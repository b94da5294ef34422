package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/errmatch/internal/db"
	"github.com/kailas-cloud/errmatch/internal/domain"
)

// Config holds connection parameters for a PostgreSQL (pgvector) store.
type Config struct {
	URL      string
	MaxConns int32
}

// Client owns a pgx connection pool.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient parses the connection string and opens a pool. It does not wait for the server.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, domain.ErrDatabaseNotConfigured
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: fmt.Errorf("parse url: %w", err)}
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}
	return &Client{pool: pool}, nil
}

// Pool returns the underlying pool for repositories.
func (c *Client) Pool() *pgxpool.Pool { return c.pool }

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return &db.Error{Op: "PING", Err: err}
	}
	return nil
}

// Close releases all pooled connections.
func (c *Client) Close() {
	c.pool.Close()
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// VectorLiteral renders v in pgvector text input format: [1,2.5,-3].
// Pass it as a parameter with an explicit ::vector cast.
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.Grow(len(v)*10 + 2)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// QuoteIdent quotes a SQL identifier, preserving case.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
