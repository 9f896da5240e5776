// Package kvserver is a small document store for club sync: one JSON
// document per club id, replaced whole on every PUT.
package kvserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/clubhouse/internal/middleware"
	"github.com/mmynk/clubhouse/internal/storage"
)

// DefaultMaxBodyBytes bounds a stored document. Scorecard photos are inlined
// as data URIs, so documents are larger than their record counts suggest.
const DefaultMaxBodyBytes = 8 << 20

const (
	keyPrefix      = "doc/"
	maxClubIDBytes = 128
)

// Options configure a Server.
type Options struct {
	MaxBodyBytes int64
	Logger       *slog.Logger
	// Registry receives the server's metrics and is served on /metrics.
	// Nil gets a private registry.
	Registry *prometheus.Registry
}

// Server serves club documents out of a storage.KV.
type Server struct {
	kv      storage.KV
	maxBody int64
	logger  *slog.Logger
	reg     *prometheus.Registry

	docs    *prometheus.CounterVec
	docSize prometheus.Histogram
}

// New creates a Server over kv.
func New(kv storage.KV, opts Options) *Server {
	s := &Server{
		kv:      kv,
		maxBody: opts.MaxBodyBytes,
		logger:  opts.Logger,
		reg:     opts.Registry,
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}

	factory := promauto.With(s.reg)
	s.docs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "clubhouse_kv_requests_total",
		Help: "Document requests by operation and result.",
	}, []string{"op", "result"})
	s.docSize = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "clubhouse_kv_document_bytes",
		Help:    "Size of stored documents.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.CORS)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	r.Get("/{clubId}", s.handleGet)
	r.Put("/{clubId}", s.handlePut)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.kv.Keys(r.Context()); err != nil {
		s.logger.Error("Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clubID(w, r)
	if !ok {
		return
	}

	doc, found, err := s.kv.Get(r.Context(), keyPrefix+id)
	if err != nil {
		s.logger.Error("Document read failed", "club_id", id, "error", err)
		s.docs.WithLabelValues("get", "error").Inc()
		writeError(w, http.StatusInternalServerError, "read failed")
		return
	}
	if !found {
		s.docs.WithLabelValues("get", "not_found").Inc()
		writeError(w, http.StatusNotFound, "no document for this club")
		return
	}

	s.docs.WithLabelValues("get", "ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	io.WriteString(w, doc)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clubID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.docs.WithLabelValues("put", "too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		s.docs.WithLabelValues("put", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	if err := s.kv.Set(r.Context(), keyPrefix+id, string(body)); err != nil {
		s.logger.Error("Document write failed", "club_id", id, "error", err)
		s.docs.WithLabelValues("put", "error").Inc()
		writeError(w, http.StatusInternalServerError, "write failed")
		return
	}

	s.docs.WithLabelValues("put", "ok").Inc()
	s.docSize.Observe(float64(len(body)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clubID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "clubId")
	if id == "" || len(id) > maxClubIDBytes {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
