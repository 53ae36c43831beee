package http

import (
	"context"
	"net/http"

	"reportes/internal/core"
	applog "reportes/internal/log"
	"reportes/internal/source"
)

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpAggregate, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		total, err := sess.Total(ctx)
		if err != nil {
			return failure(ctx, applog.OpAggregate, err)
		}
		return NewResponse().JSON(map[string]int{"total_adolescentes": total})
	})
}

func (s *Server) handleDimension(w http.ResponseWriter, r *http.Request) {
	dim, err := ParseDimensionParam(r)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	s.writeDimension(w, r, dim, 0)
}

func (s *Server) handleTop(dim core.Dimension) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeDimension(w, r, dim, core.TopN)
	}
}

func (s *Server) writeDimension(w http.ResponseWriter, r *http.Request, dim core.Dimension, top int) {
	s.withSession(w, r, applog.OpAggregate, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		rows, err := s.reports.DimensionRows(ctx, sess, dim, top)
		if err != nil {
			return failure(ctx, applog.OpAggregate, err)
		}
		return NewResponse().JSON(dimensionRows{key: dim.Slug(), rows: rows})
	})
}

func (s *Server) handleGenderGroups(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpAggregate, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		rows, err := s.reports.GenderGroups(ctx, sess)
		if err != nil {
			return failure(ctx, applog.OpAggregate, err)
		}
		return NewResponse().JSON(dimensionRows{key: core.DimensionGender.Slug(), rows: rows})
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpAggregate, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		links, err := sess.Detail(ctx)
		if err != nil {
			return failure(ctx, applog.OpAggregate, err)
		}
		return NewResponse().JSON(nonNil(links))
	})
}

func (s *Server) handleInstituciones(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpList, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		items, err := sess.ListInstituciones(ctx)
		if err != nil {
			return failure(ctx, applog.OpList, err)
		}
		return NewResponse().JSON(nonNil(items))
	})
}

func (s *Server) handleSedes(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpList, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		items, err := sess.ListSedes(ctx)
		if err != nil {
			return failure(ctx, applog.OpList, err)
		}
		return NewResponse().JSON(nonNil(items))
	})
}

func (s *Server) handleActividades(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpList, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		items, err := sess.ListActividades(ctx)
		if err != nil {
			return failure(ctx, applog.OpList, err)
		}
		return NewResponse().JSON(nonNil(items))
	})
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
