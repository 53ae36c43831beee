package backend

import (
	"context"
	"fmt"
	"log/slog"

	"reportes/internal/seed"
	"reportes/internal/source/memory"
	"reportes/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return f.createSQLBackend(ctx, config)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dialect, _ := config.Type.Dialect()
	dsn := config.DatabaseURL
	if dialect == storage.SQLite {
		dsn = config.SQLiteDBPath
	}

	repo, err := storage.Connect(dialect, dsn, storage.Options{View: config.View, Pushdown: config.Pushdown})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", config.Type, err)
	}

	if config.SeedFile != "" {
		ds, err := seed.Load(config.SeedFile)
		if err != nil {
			repo.Close()
			return nil, err
		}
		if err := repo.Seed(ctx, ds); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to seed %s: %w", config.SQLiteDBPath, err)
		}
		f.logger.Info("Seeded reporting database", "file", config.SeedFile, "adolescentes", len(ds.Adolescentes))
	}

	f.logger.Info("Initialized SQL backend",
		"backend", config.Type,
		"view", config.View,
		"pushdown", config.Pushdown)

	return &BackendResult{
		Opener:     repo,
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	source := config.SeedFile
	if source == "" {
		source = "embedded sample"
	}
	f.logger.Info("Initialized memory backend", "dataset", source)

	return &BackendResult{Opener: store}, nil
}
