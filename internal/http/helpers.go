package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"reportes/internal/core"
	applog "reportes/internal/log"
	"reportes/internal/services"
	"reportes/internal/source"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}

// dimensionRows renders aggregates as [{"<key>": value, "cantidad": n}],
// keeping the dimension key first.
type dimensionRows struct {
	key  string
	rows []core.AggregateRow
}

func (d dimensionRows) MarshalJSON() ([]byte, error) {
	key, err := json.Marshal(d.key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range d.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		buf.WriteString(`,"cantidad":`)
		count, _ := json.Marshal(r.Count)
		buf.Write(count)
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// withSession runs fn with a request-scoped session bounded by the query
// timeout. The session is closed on every path.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, sess source.Session) *ResponseBuilder) {
	ctx := r.Context()
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	sess, err := s.opener.Open(ctx)
	if err != nil {
		applog.LogError(ctx, "Failed to open reporting session", err, applog.ComponentStorage, op, nil)
		ServiceUnavailableError("reporting database unavailable").Write(w)
		return
	}
	defer sess.Close()

	fn(ctx, sess).Write(w)
}

// failure logs err and maps it to a JSON error response.
func failure(ctx context.Context, op string, err error) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrUnknownDimension):
		return NotFoundError(err.Error())
	case errors.Is(err, services.ErrUnknownExportKind):
		return BadRequestError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		applog.LogError(ctx, "Report query timed out", err, applog.ComponentReport, op, nil)
		return ErrorResponse(http.StatusGatewayTimeout, "report query timed out")
	default:
		applog.LogError(ctx, "Report request failed", err, applog.ComponentReport, op, nil)
		return InternalServerError("report request failed")
	}
}

func artifactResponse(art services.Artifact) *ResponseBuilder {
	return NewResponse().Attachment(art.Filename, art.ContentType, art.Data)
}
