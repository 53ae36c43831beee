package backend

import (
	"context"

	"reportes/internal/source"
	"reportes/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the session opener and optional cleanup function.
// Repository is set only for SQL backends.
type BackendResult struct {
	Opener     source.Opener
	Repository *storage.Repository
	Cleanup    CleanupFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQL backends
	SQLiteDBPath string
	DatabaseURL  string
	View         string
	Pushdown     bool

	// Optional YAML dataset: loaded into the memory backend, or seeded into
	// a sqlite database.
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MySQLBackend    BackendType = "mysql"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MySQLBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Dialect maps SQL backend types to their storage dialect.
func (bt BackendType) Dialect() (storage.Dialect, bool) {
	switch bt {
	case SQLiteBackend:
		return storage.SQLite, true
	case MySQLBackend:
		return storage.MySQL, true
	case PostgresBackend:
		return storage.Postgres, true
	default:
		return "", false
	}
}
