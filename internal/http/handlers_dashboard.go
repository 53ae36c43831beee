package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reportes/internal/chart"
	"reportes/internal/core"
	applog "reportes/internal/log"
)

// loadDetail returns the cached dashboard base, querying the view on miss.
func (s *Server) loadDetail(ctx context.Context) (detailSnapshot, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	snap, hit, err := s.detail.Get(ctx, detailCacheKey, func(ctx context.Context) (detailSnapshot, error) {
		sess, err := s.opener.Open(ctx)
		if err != nil {
			return detailSnapshot{}, fmt.Errorf("open session: %w", err)
		}
		defer sess.Close()
		links, err := sess.Detail(ctx)
		if err != nil {
			return detailSnapshot{}, fmt.Errorf("load activity detail: %w", err)
		}
		return detailSnapshot{links: links, loadedAt: time.Now()}, nil
	})
	if err == nil {
		s.metrics.CacheLookup(hit)
	}
	return snap, err
}

// pickInstitution returns the requested institution when present, else the first.
func pickInstitution(institutions []string, requested string) string {
	for _, inst := range institutions {
		if strings.EqualFold(inst, requested) {
			return inst
		}
	}
	if len(institutions) > 0 {
		return institutions[0]
	}
	return ""
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		applog.LogError(ctx, "Templates not loaded", fmt.Errorf("no templates"), applog.ComponentTemplate, applog.OpRender, nil)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	snap, err := s.loadDetail(ctx)
	if err != nil {
		applog.LogError(ctx, "Dashboard detail unavailable", err, applog.ComponentCache, applog.OpRefresh, nil)
		http.Error(w, "reporting database unavailable", http.StatusServiceUnavailable)
		return
	}

	institutions := core.Institutions(snap.links)
	selected := pickInstitution(institutions, ParseInstitucionParam(r.URL.Query()))
	data := struct {
		Instituciones []string
		Seleccionada  string
		Filas         []core.AggregateRow
		CargadoEn     string
	}{
		Instituciones: institutions,
		Seleccionada:  selected,
		Filas:         core.CountActivities(snap.links, selected),
		CargadoEn:     snap.loadedAt.Format("02/01/2006 15:04:05"),
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		applog.LogError(ctx, "Dashboard template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.loadDetail(ctx)
	if err != nil {
		failure(ctx, applog.OpRender, err).Write(w)
		return
	}

	inst := pickInstitution(core.Institutions(snap.links), ParseInstitucionParam(r.URL.Query()))
	rows := core.CountActivities(snap.links, inst)
	title := "Adolescentes por actividad"
	if inst != "" {
		title += " - " + inst
	}
	png, err := chart.RenderBar(title, core.Labels(rows), core.Counts(rows))
	if err != nil {
		failure(ctx, applog.OpRender, err).Write(w)
		return
	}
	NewResponse().Header("Cache-Control", "no-store").Inline("image/png", png).Write(w)
}

func (s *Server) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	s.detail.Invalidate()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Dashboard detail invalidated", applog.FieldOperation, applog.OpRefresh)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
