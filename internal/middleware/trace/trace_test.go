package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	applog "reportes/internal/log"
)

type observation struct {
	method, route string
	status        int
}

type recorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recorder) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, status})
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Component: applog.ComponentHTTP, Output: &buf})

	mux := http.NewServeMux()
	var seenID string
	mux.HandleFunc("GET /reportes/{dimension}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := &recorder{}
	h := applog.Middleware(logger)(NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, rec).Middleware(mux))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reportes/genero", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seenID)
	}
	if got := w.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("X-Request-ID = %q, want %q", got, seenID)
	}
	want := observation{"GET", "GET /reportes/{dimension}", http.StatusTeapot}
	if len(rec.obs) != 1 || rec.obs[0] != want {
		t.Errorf("observations = %+v, want [%+v]", rec.obs, want)
	}
	out := buf.String()
	for _, s := range []string{"HTTP request completed", "request_id=" + seenID, "status_code=418", "client_ip=10.0.0.1"} {
		if !strings.Contains(out, s) {
			t.Errorf("log output missing %q:\n%s", s, out)
		}
	}
}

func TestMiddlewareUnmatchedAndIncomingID(t *testing.T) {
	rec := &recorder{}
	h := NewMiddleware(nil, rec).Middleware(http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "abc123" {
		t.Errorf("incoming request id not propagated")
	}
	if len(rec.obs) != 1 || rec.obs[0].route != "unmatched" || rec.obs[0].status != http.StatusNotFound {
		t.Errorf("observations = %+v", rec.obs)
	}
}
