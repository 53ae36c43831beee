package source

import (
	"context"

	"reportes/internal/core"
)

// Ports for the reporting view.
type (
	// Aggregator runs the fixed grouping queries over the reporting view.
	Aggregator interface {
		Aggregate(ctx context.Context, dim core.Dimension) ([]core.AggregateRow, error)
		// AggregateTop returns at most n rows, a prefix of Aggregate.
		AggregateTop(ctx context.Context, dim core.Dimension, n int) ([]core.AggregateRow, error)
		// Total counts distinct participants.
		Total(ctx context.Context) (int, error)
		// Detail returns one ungrouped row per participant-activity link.
		Detail(ctx context.Context) ([]core.ActivityLink, error)
	}

	CatalogReader interface {
		ListInstituciones(ctx context.Context) ([]core.Institucion, error)
		ListSedes(ctx context.Context) ([]core.Sede, error)
		ListActividades(ctx context.Context) ([]core.Actividad, error)
	}

	// Session is scoped to one request and must be closed on every path.
	Session interface {
		Aggregator
		CatalogReader
		Close() error
	}

	// Opener hands out sessions over a shared pool.
	Opener interface {
		Open(ctx context.Context) (Session, error)
		Ping(ctx context.Context) error
	}
)
