package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/metrics"
	"github.com/LJTian/DevPulse/internal/pipeline"
	"github.com/LJTian/DevPulse/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, query string) (pipeline.Result, error)

func (f fetchFunc) FetchDevelopments(ctx context.Context, query string) (pipeline.Result, error) {
	return f(ctx, query)
}

type envelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Data    session.View `json:"data"`
}

func newTestEngine(t *testing.T, f fetchFunc) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	srv := NewServer(session.New(f, nil, nil), m, nil)
	r := gin.New()
	srv.RegisterRoutes(r)
	return r, m
}

func do(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func sample(usedMock bool) pipeline.Result {
	return pipeline.Result{
		UsedMock: usedMock,
		Items: []collector.DevelopmentItem{
			{ID: "1", Title: "Claude release", URL: "https://a.example/1", Source: "a.example", RelativeTime: "1h ago"},
			{ID: "2", Title: "GPT release", URL: "https://b.example/2", Source: "b.example", RelativeTime: "2h ago"},
		},
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestEngine(t, func(context.Context, string) (pipeline.Result, error) { return sample(false), nil })
	w := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListDevelopmentsTriggersFirstRefreshAndFilters(t *testing.T) {
	calls := 0
	r, _ := newTestEngine(t, func(context.Context, string) (pipeline.Result, error) {
		calls++
		return sample(true), nil
	})

	w := do(r, http.MethodGet, "/api/v1/developments?q=CLAUDE")
	require.Equal(t, http.StatusOK, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Code)
	assert.Equal(t, "success", body.Message)
	assert.True(t, body.Data.UsedMock)
	assert.Equal(t, session.StateReady, body.Data.State)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Claude release", body.Data.Items[0].Title)
	assert.Equal(t, "1h ago", body.Data.Items[0].RelativeTime)
	assert.NotNil(t, body.Data.FetchedAt)

	w = do(r, http.MethodGet, "/api/v1/developments")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 2)
	assert.Equal(t, 1, calls)
}

func TestRefreshReinvokesPipeline(t *testing.T) {
	calls := 0
	r, _ := newTestEngine(t, func(context.Context, string) (pipeline.Result, error) {
		calls++
		return sample(false), nil
	})

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/api/v1/refresh")
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestPipelineRejectionIsInternalError(t *testing.T) {
	r, _ := newTestEngine(t, func(context.Context, string) (pipeline.Result, error) {
		return pipeline.Result{}, errors.New("unexpected")
	})

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/v1/developments"},
		{http.MethodPost, "/api/v1/refresh"},
	} {
		w := do(r, tc.method, tc.target)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"internal_error"`)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, m := newTestEngine(t, func(context.Context, string) (pipeline.Result, error) { return sample(false), nil })
	m.RecordFallback(metrics.ReasonEmpty)

	w := do(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devpulse_pipeline_fallbacks_total")
}

func TestRegisterStaticServesIndexForUnknownGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>devpulse</html>"), 0o644))

	r := gin.New()
	RegisterStatic(r, root)

	w := do(r, http.MethodGet, "/some/page")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devpulse")

	w = do(r, http.MethodPost, "/some/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
