package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"reportes/internal/blob"
	"reportes/internal/cache"
	"reportes/internal/core"
	applog "reportes/internal/log"
	"reportes/internal/metrics"
	"reportes/internal/middleware/ratelimit"
	"reportes/internal/middleware/security"
	"reportes/internal/middleware/trace"
	"reportes/internal/services"
	"reportes/internal/source"
	appweb "reportes/web"
)

const detailCacheKey = "detail"

// Options wires a Server. Opener and Reports are required.
type Options struct {
	Addr    string
	Opener  source.Opener
	Reports *services.ReportService
	// Exports serves finished async jobs; nil disables GET /exportaciones/{id}.
	Exports blob.Store
	Metrics *metrics.Metrics
	Logger  *applog.Logger

	QueryTimeout     time.Duration
	DashboardRefresh time.Duration
	ExportRateLimit  int
}

// detailSnapshot is the cached dashboard base.
type detailSnapshot struct {
	links    []core.ActivityLink
	loadedAt time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	opener    source.Opener
	reports   *services.ReportService
	exports   blob.Store
	metrics   *metrics.Metrics

	detailCache  *cache.LRUCache[detailSnapshot]
	detail       *cache.Loader[detailSnapshot]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector

	queryTimeout time.Duration
	started      time.Time
}

// NewServer configures routes and templates, returning a server ready for Run.
func NewServer(opts Options) *Server {
	refresh := opts.DashboardRefresh
	if refresh <= 0 {
		refresh = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	detailCache := cache.NewLRUCache[detailSnapshot](1, refresh)
	s := &Server{
		opener:       opts.Opener,
		reports:      opts.Reports,
		exports:      opts.Exports,
		metrics:      opts.Metrics,
		detailCache:  detailCache,
		detail:       cache.NewLoader[detailSnapshot](detailCache),
		cacheManager: cache.NewManager(detailCache),
		detector:     security.NewDetector(),
		queryTimeout: opts.QueryTimeout,
		started:      time.Now(),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.ExportRateLimit,
		OnReject:          opts.Metrics.RateLimited,
	})

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, opts.Metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           applog.Middleware(logger)(tracer.Middleware(headers.Middleware(s.detector.Middleware(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /reportes/total", s.handleTotal)
	mux.HandleFunc("GET /reportes/{dimension}", s.handleDimension)
	mux.HandleFunc("GET /reportes/top10-instituciones", s.handleTop(core.DimensionInstitution))
	mux.HandleFunc("GET /reportes/top10-actividades", s.handleTop(core.DimensionActivity))
	mux.HandleFunc("GET /reportes/genero-agrupado", s.handleGenderGroups)
	mux.HandleFunc("GET /reportes/actividad-detalle", s.handleDetail)

	mux.Handle("GET /reportes-excel/{name}", limited(http.HandlerFunc(s.handleWorkbook)))
	mux.Handle("GET /reportes-pdf/general", limited(http.HandlerFunc(s.handleGeneralReport)))
	mux.Handle("POST /exportaciones", limited(http.HandlerFunc(s.handleRequestExport)))
	mux.HandleFunc("GET /exportaciones/{id}", s.handleGetExport)

	mux.HandleFunc("GET /instituciones", s.handleInstituciones)
	mux.HandleFunc("GET /sedes", s.handleSedes)
	mux.HandleFunc("GET /actividades", s.handleActividades)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /dashboard/chart.png", s.handleDashboardChart)
	mux.HandleFunc("POST /dashboard/refresh", s.handleDashboardRefresh)
}

// Run serves HTTP and sweeps the cache and rate limiter until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.InfoContext(gctx, "HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return s.cacheManager.Run(gctx, time.Minute) })
	g.Go(func() error { return s.limiter.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("Shutting down HTTP server")
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
