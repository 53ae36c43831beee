package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"reportes/internal/source"
)

// Options controls how sessions query the reporting view.
type Options struct {
	// View is the reporting view name; DefaultView when empty.
	View string
	// Pushdown runs grouping in SQL. When false, a session loads the view
	// once through the row adapter and aggregates in memory.
	Pushdown bool
}

// Repository owns the connection pool and hands out per-request sessions.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	opts    Options
}

// NewRepository wraps an open pool.
func NewRepository(db *sql.DB, d Dialect, opts Options) (*Repository, error) {
	if opts.View == "" {
		opts.View = DefaultView
	}
	if !ValidViewName(opts.View) {
		return nil, fmt.Errorf("invalid view name %q", opts.View)
	}
	if _, err := d.driverName(); err != nil {
		return nil, err
	}
	return &Repository{db: db, dialect: d, opts: opts}, nil
}

// Connect opens a pool for the dialect and wraps it.
func Connect(d Dialect, dsn string, opts Options) (*Repository, error) {
	db, err := OpenDB(d, dsn)
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository(db, d, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Connected reporting database", "dialect", d, "view", repo.opts.View, "pushdown", opts.Pushdown)
	return repo, nil
}

// NewSQLiteRepository opens (and migrates) a sqlite file.
func NewSQLiteRepository(dbPath string, opts Options) (*Repository, error) {
	return Connect(SQLite, dbPath, opts)
}

// DB exposes the pool for seeding and tooling.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) Dialect() Dialect { return r.dialect }

// Open implements source.Opener. Each session pins one pooled connection.
func (r *Repository) Open(ctx context.Context) (source.Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, dialect: r.dialect, opts: r.opts}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
