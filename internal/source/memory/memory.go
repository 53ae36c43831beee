package memory

import (
	"context"
	"sync"
	"time"

	"reportes/internal/core"
	"reportes/internal/seed"
	"reportes/internal/source"
)

// Store keeps a materialized reporting view in memory and aggregates it
// with the pure core functions.
type Store struct {
	mu      sync.RWMutex
	records []core.ParticipantRecord
	insts   []core.Institucion
	sedes   []core.Sede
	acts    []core.Actividad
}

func New(records []core.ParticipantRecord) *Store {
	return &Store{records: append([]core.ParticipantRecord(nil), records...)}
}

// NewFromDataset materializes ds at asOf and keeps its catalog.
func NewFromDataset(ds *seed.Dataset, asOf time.Time) *Store {
	s := New(ds.Records(asOf))
	s.insts, s.sedes, s.acts = ds.Catalog()
	return s
}

// NewFromFile loads a seed file, falling back to the bundled sample when path is empty.
func NewFromFile(path string) (*Store, error) {
	ds, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromDataset(ds, time.Now()), nil
}

// Replace swaps the dataset; sessions opened earlier keep their snapshot.
func (s *Store) Replace(records []core.ParticipantRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.ParticipantRecord(nil), records...)
}

// Open returns a session over the current snapshot.
func (s *Store) Open(_ context.Context) (source.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &session{
		records: s.records,
		insts:   s.insts,
		sedes:   s.sedes,
		acts:    s.acts,
	}, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

type session struct {
	records []core.ParticipantRecord
	insts   []core.Institucion
	sedes   []core.Sede
	acts    []core.Actividad
}

func (s *session) Aggregate(ctx context.Context, dim core.Dimension) ([]core.AggregateRow, error) {
	return s.AggregateTop(ctx, dim, 0)
}

func (s *session) AggregateTop(ctx context.Context, dim core.Dimension, n int) ([]core.AggregateRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !dim.IsValid() {
		return nil, core.ErrUnknownDimension
	}
	return core.AggregateTop(s.records, dim, n), nil
}

func (s *session) Total(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return core.Total(s.records), nil
}

func (s *session) Detail(ctx context.Context) ([]core.ActivityLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return core.Detail(s.records), nil
}

func (s *session) ListInstituciones(_ context.Context) ([]core.Institucion, error) {
	return append([]core.Institucion(nil), s.insts...), nil
}

func (s *session) ListSedes(_ context.Context) ([]core.Sede, error) {
	return append([]core.Sede(nil), s.sedes...), nil
}

func (s *session) ListActividades(_ context.Context) ([]core.Actividad, error) {
	return append([]core.Actividad(nil), s.acts...), nil
}

func (s *session) Close() error { return nil }
