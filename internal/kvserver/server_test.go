package kvserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubhouse/internal/models"
	"github.com/mmynk/clubhouse/internal/remote"
	"github.com/mmynk/clubhouse/internal/storage/memory"
	"github.com/mmynk/clubhouse/internal/storage/sqlite"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupServer(t *testing.T, opts Options) (*httptest.Server, *Server) {
	t.Helper()
	kv, err := sqlite.New(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	opts.Logger = quietLogger()
	srv := New(kv, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestPutThenGet(t *testing.T) {
	ts, srv := setupServer(t, Options{})

	resp, _ := do(t, http.MethodGet, ts.URL+"/club-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, ts.URL+"/club-1", ` {"members":[],"carryover":5} `)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, http.MethodGet, ts.URL+"/club-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"members":[],"carryover":5}`, body)

	resp, _ = do(t, http.MethodGet, ts.URL+"/club-2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "documents are per club")

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.docs.WithLabelValues("put", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(srv.docs.WithLabelValues("get", "not_found")))
}

func TestPut_Rejects(t *testing.T) {
	ts, _ := setupServer(t, Options{MaxBodyBytes: 64})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty", body: "", want: http.StatusBadRequest},
		{name: "not json", body: "members=3", want: http.StatusBadRequest},
		{name: "array", body: "[1,2]", want: http.StatusBadRequest},
		{name: "truncated", body: `{"members":[`, want: http.StatusBadRequest},
		{name: "too large", body: `{"memo":"` + strings.Repeat("x", 100) + `"}`, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, http.MethodPut, ts.URL+"/club", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp, _ := do(t, http.MethodGet, ts.URL+"/club", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "rejected bodies are not stored")

	resp, _ = do(t, http.MethodGet, ts.URL+"/"+strings.Repeat("a", 200), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts, _ := setupServer(t, Options{Registry: reg})

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	do(t, http.MethodPut, ts.URL+"/c", `{}`)
	resp, body = do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `clubhouse_kv_requests_total{op="put",result="ok"} 1`)
	assert.Contains(t, body, "clubhouse_kv_document_bytes_count 1")
}

func TestPreflight(t *testing.T) {
	ts, _ := setupServer(t, Options{})
	resp, _ := do(t, http.MethodOptions, ts.URL+"/club", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}

func TestStoreFailureIs500(t *testing.T) {
	kv := memory.New()
	kv.FailSetsOn(keyPrefix + "club")
	ts := httptest.NewServer(New(kv, Options{Logger: quietLogger()}).Handler())
	defer ts.Close()

	resp, _ := do(t, http.MethodPut, ts.URL+"/club", `{}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWithSyncClient(t *testing.T) {
	ts, _ := setupServer(t, Options{})
	ctx := context.Background()

	client, err := remote.NewClient(ts.URL + "/")
	require.NoError(t, err)

	_, found, err := client.Pull(ctx, "golf-club")
	require.NoError(t, err)
	assert.False(t, found)

	snap := models.Snapshot{
		Members:   []models.Member{{ID: "m1", Name: "김철수", Handicap: 12}},
		Scores:    []models.RoundScore{{ID: "s1", MemberID: "m1", OutingID: models.ExternalOutingID, TotalScore: 88, Date: "2024-05-05"}},
		Carryover: 1_000_000,
		UpdatedAt: 1_714_900_000_000,
		Version:   models.SnapshotVersion,
	}
	require.NoError(t, client.Push(ctx, "golf-club", snap))

	got, found, err := client.Pull(ctx, "golf-club")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.Normalize(), got.Full())
}
