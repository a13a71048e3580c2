package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

func TestPriorityLabel(t *testing.T) {
	assert.Equal(t, "low", priorityLabel(models.JobPriorityLow))
	assert.Equal(t, "normal", priorityLabel(models.JobPriorityNormal))
	assert.Equal(t, "high", priorityLabel(models.JobPriorityHigh))
	assert.Equal(t, "normal", priorityLabel(3))
	assert.Equal(t, "high", priorityLabel(99))
}

func TestRouterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	api := &API{cfg: &config.Config{
		Server: config.ServerConfig{RateLimitRPS: 100, RateLimitBurst: 100},
	}}
	router := setupRouter(api)

	want := map[string]string{
		"POST /api/v1/videos/upload":      "",
		"GET /api/v1/videos/:id":          "",
		"POST /api/v1/videos/:id/edit":    "",
		"GET /api/v1/jobs/:id/sentences":  "",
		"PATCH /api/v1/jobs/:id/verdicts": "",
		"POST /api/v1/jobs/:id/feedback":  "",
		"GET /api/v1/jobs/:id/timeline":   "",
		"GET /api/v1/jobs/:id/output":     "",
	}

	registered := make(map[string]bool)
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for route := range want {
		assert.True(t, registered[route], route)
	}

	// Unknown paths fall through to 404
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
