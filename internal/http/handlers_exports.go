package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"reportes/internal/blob"
	applog "reportes/internal/log"
	"reportes/internal/services"
	"reportes/internal/source"
)

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	target, ok := ParseWorkbookTarget(r.PathValue("name"))
	if !ok {
		NotFoundError("unknown spreadsheet report: " + r.PathValue("name")).Write(w)
		return
	}
	s.withSession(w, r, applog.OpExport, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		var (
			art services.Artifact
			err error
		)
		if target.combined {
			art, err = s.reports.CombinedWorkbook(ctx, sess)
		} else {
			art, err = s.reports.DimensionWorkbook(ctx, sess, target.dim, target.top)
		}
		if err != nil {
			return failure(ctx, applog.OpExport, err)
		}
		return artifactResponse(art)
	})
}

func (s *Server) handleGeneralReport(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, applog.OpExport, func(ctx context.Context, sess source.Session) *ResponseBuilder {
		art, err := s.reports.GeneralReport(ctx, sess)
		if err != nil {
			return failure(ctx, applog.OpExport, err)
		}
		return artifactResponse(art)
	})
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, err := ParseExportKindParam(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	jobID, err := s.reports.RequestExport(ctx, kind)
	switch {
	case errors.Is(err, services.ErrExportsDisabled):
		ServiceUnavailableError(err.Error()).Write(w)
		return
	case err != nil:
		applog.LogError(ctx, "Failed to enqueue export", err, applog.ComponentAMQP, applog.OpPublish, applog.NewFields().WithJob("", string(kind)))
		ServiceUnavailableError("export queue unavailable").Write(w)
		return
	}

	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", "/exportaciones/"+jobID).
		JSON(map[string]string{"job_id": jobID, "formato": string(kind)}).
		Write(w)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		NotFoundError("unknown export job").Write(w)
		return
	}
	if s.exports == nil {
		ServiceUnavailableError(services.ErrExportsDisabled.Error()).Write(w)
		return
	}

	obj, err := s.exports.Get(ctx, blob.ExportKey(id))
	switch {
	case errors.Is(err, blob.ErrNotFound):
		NewResponse().
			Status(http.StatusNotFound).
			JSON(map[string]string{"job_id": id, "estado": "pending"}).
			Write(w)
		return
	case err != nil:
		applog.LogError(ctx, "Failed to read export artifact", err, applog.ComponentBlob, applog.OpExport, applog.NewFields().WithJob(id, ""))
		InternalServerError("failed to read export").Write(w)
		return
	}
	NewResponse().Attachment(obj.Filename, obj.ContentType, obj.Data).Write(w)
}
