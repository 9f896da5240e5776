package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(Logging(logger))
	r.Get("/{clubId}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	r.Put("/{clubId}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	tests := []struct {
		method string
		want   []string
	}{
		{http.MethodGet, []string{"level=INFO", "Request completed", "status=200", "club_id=abc", "bytes=2"}},
		{http.MethodPut, []string{"level=ERROR", "Request failed", "status=500"}},
	}
	for _, tt := range tests {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, "/abc", nil))
		for _, want := range tt.want {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("%s log = %q, want it to contain %q", tt.method, buf.String(), want)
			}
		}
	}

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a/b", nil))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status=404") {
		t.Errorf("404 log = %q, want a warning", buf.String())
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/club", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Errorf("preflight: code %d, handler called %v", rec.Code, called)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("Allow-Methods = %q, want PUT", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/club", nil))
	if !called || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("GET: handler called %v, origin %q", called, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
