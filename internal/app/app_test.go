package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code string `json:"code"`
	Data struct {
		Items    []collector.DevelopmentItem `json:"items"`
		UsedMock bool                        `json:"usedMock"`
		State    string                      `json:"state"`
	} `json:"data"`
}

func get(t *testing.T, h http.Handler, target string) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestMockModeServesFixture(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := New(&config.Config{MockMode: true, WindowHours: 48, HTTPTimeout: time.Second}, nil)

	body := get(t, a.Engine(), "/api/v1/developments")
	assert.Equal(t, "ok", body.Code)
	assert.True(t, body.Data.UsedMock)
	assert.Equal(t, "ready", body.Data.State)
	require.NotEmpty(t, body.Data.Items)
	for _, it := range body.Data.Items {
		assert.NotEmpty(t, it.RelativeTime)
	}
}

func TestLiveProviderWiring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	created := time.Now().Add(-time.Hour).Unix()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"hits":[{"objectID":"1","title":"Gemini paper","url":"https://example.com/gemini","created_at_i":%d}]}`, created)
	}))
	defer upstream.Close()

	a := New(&config.Config{Provider: collector.ProviderHN, WindowHours: 48, HTTPTimeout: time.Second}, nil,
		collector.WithBaseURL(upstream.URL))

	body := get(t, a.Engine(), "/api/v1/developments?q=gemini")
	assert.False(t, body.Data.UsedMock)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Gemini paper", body.Data.Items[0].Title)
	assert.Equal(t, "1h ago", body.Data.Items[0].RelativeTime)
}

func TestMissingCredentialFallsBackToMock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := New(&config.Config{Provider: collector.ProviderNewsAPI, WindowHours: 48, HTTPTimeout: time.Second}, nil)

	body := get(t, a.Engine(), "/api/v1/developments")
	assert.True(t, body.Data.UsedMock)
	assert.NotEmpty(t, body.Data.Items)
}
