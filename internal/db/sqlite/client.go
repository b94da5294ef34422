package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // driver

	"github.com/kailas-cloud/errmatch/internal/db"
)

func init() {
	sqlite_vec.Auto()
}

// Open opens (or creates) a SQLite database with the sqlite-vec extension loaded.
// ":memory:" databases are pinned to a single connection so every query sees the same data.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, &db.Error{Op: db.OpConnect, Err: fmt.Errorf("path is required")}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}
	if isMemory(path) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}

	var version string
	if err := conn.QueryRow(`SELECT vec_version()`).Scan(&version); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpConnect, Err: fmt.Errorf("sqlite-vec not loaded: %w", err)}
	}

	return conn, nil
}

// SerializeVector encodes v in the sqlite-vec float32 blob format.
func SerializeVector(v []float32) ([]byte, error) {
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return nil, fmt.Errorf("serializing vector: %w", err)
	}
	return blob, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
