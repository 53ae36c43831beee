package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"reportes/internal/core"
)

// Session runs the reporting queries on one dedicated connection.
type Session struct {
	conn    *sql.Conn
	dialect Dialect
	opts    Options

	// Loaded lazily when pushdown is disabled.
	records []core.ParticipantRecord
	loaded  bool
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) Aggregate(ctx context.Context, dim core.Dimension) ([]core.AggregateRow, error) {
	return s.AggregateTop(ctx, dim, 0)
}

func (s *Session) AggregateTop(ctx context.Context, dim core.Dimension, n int) ([]core.AggregateRow, error) {
	if !dim.IsValid() {
		return nil, core.ErrUnknownDimension
	}
	if !s.opts.Pushdown {
		recs, err := s.loadRecords(ctx)
		if err != nil {
			return nil, err
		}
		return core.AggregateTop(recs, dim, n), nil
	}

	col := dim.Column()
	query := "SELECT " + col + ", COUNT(DISTINCT id_adolescente) AS cantidad FROM " + s.opts.View +
		" WHERE " + col + " IS NOT NULL AND TRIM(" + col + ") <> ''" +
		" GROUP BY " + col + " ORDER BY cantidad DESC, " + col
	if n > 0 {
		query += " LIMIT " + strconv.Itoa(n)
	}
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", dim, err)
	}
	out, err := collect(rows, scanAggregate)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", dim, err)
	}
	return out, nil
}

func (s *Session) Total(ctx context.Context) (int, error) {
	if !s.opts.Pushdown {
		recs, err := s.loadRecords(ctx)
		if err != nil {
			return 0, err
		}
		return core.Total(recs), nil
	}
	var total int64
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(DISTINCT id_adolescente) FROM "+s.opts.View).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return int(total), nil
}

func (s *Session) Detail(ctx context.Context) ([]core.ActivityLink, error) {
	if !s.opts.Pushdown {
		recs, err := s.loadRecords(ctx)
		if err != nil {
			return nil, err
		}
		return core.Detail(recs), nil
	}
	rows, err := s.conn.QueryContext(ctx, "SELECT actividad, institucion FROM "+s.opts.View)
	if err != nil {
		return nil, fmt.Errorf("load activity detail: %w", err)
	}
	out, err := collect(rows, scanLink)
	if err != nil {
		return nil, fmt.Errorf("load activity detail: %w", err)
	}
	return out, nil
}

// Records returns every view row through the row adapter.
func (s *Session) Records(ctx context.Context) ([]core.ParticipantRecord, error) {
	return s.loadRecords(ctx)
}

func (s *Session) loadRecords(ctx context.Context) ([]core.ParticipantRecord, error) {
	if s.loaded {
		return s.records, nil
	}
	rows, err := s.conn.QueryContext(ctx, "SELECT "+recordColumns+" FROM "+s.opts.View)
	if err != nil {
		return nil, fmt.Errorf("load view records: %w", err)
	}
	recs, err := collect(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("load view records: %w", err)
	}
	s.records, s.loaded = recs, true
	return recs, nil
}

func (s *Session) ListInstituciones(ctx context.Context) ([]core.Institucion, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT id, valor FROM instituciones ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list instituciones: %w", err)
	}
	return collect(rows, func(row scanner) (core.Institucion, error) {
		var i core.Institucion
		if err := row.Scan(&i.ID, &i.Valor); err != nil {
			return i, fmt.Errorf("scan institucion: %w", err)
		}
		return i, nil
	})
}

func (s *Session) ListSedes(ctx context.Context) ([]core.Sede, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT id, valor, direccion, institucion_id FROM sedes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list sedes: %w", err)
	}
	return collect(rows, func(row scanner) (core.Sede, error) {
		var (
			sd        core.Sede
			direccion sql.NullString
		)
		if err := row.Scan(&sd.ID, &sd.Valor, &direccion, &sd.InstitucionID); err != nil {
			return sd, fmt.Errorf("scan sede: %w", err)
		}
		if direccion.Valid {
			sd.Direccion = &direccion.String
		}
		return sd, nil
	})
}

func (s *Session) ListActividades(ctx context.Context) ([]core.Actividad, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT id, valor, vigente FROM actividades ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list actividades: %w", err)
	}
	return collect(rows, func(row scanner) (core.Actividad, error) {
		var a core.Actividad
		if err := row.Scan(&a.ID, &a.Valor, &a.Vigente); err != nil {
			return a, fmt.Errorf("scan actividad: %w", err)
		}
		return a, nil
	})
}
