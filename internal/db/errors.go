package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrSchemaMissing = errors.New("db: schema not migrated")
)

// Op constants map to driver command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpAliasUpdate = "FT.ALIASUPDATE"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"

	// SQL backends.
	OpConnect  = "CONNECT"
	OpMigrate  = "MIGRATE"
	OpQuery    = "QUERY"
	OpExec     = "EXEC"
	OpBegin    = "BEGIN"
	OpCommit   = "COMMIT"
	OpTruncate = "TRUNCATE"
	OpInsert   = "INSERT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
