package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/middleware"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/service"
)

func TestRouterOpsEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	health := NewHealthHandler(metrics, map[string]ReadyCheck{
		"storage": func(context.Context) error { return nil },
	})
	router := NewRouter(RouterConfig{}, Handlers{Health: health}, nil, metrics, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestRouterReadyDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	health := NewHealthHandler(nil, map[string]ReadyCheck{
		"redis":   func(context.Context) error { return errors.New("connection refused") },
		"storage": func(context.Context) error { return nil },
	})
	router := NewRouter(RouterConfig{}, Handlers{Health: health}, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestRouterMosqueRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{GeneralPerMinute: 30, MosquePerMinute: 2}, nil)
	defer limiter.Stop()
	mosques := NewMosqueHandler(&fakeMosqueSearcher{mosques: []models.Mosque{}}, dto.NewValidator())
	router := NewRouter(RouterConfig{APIPrefix: "/api"}, Handlers{Mosques: mosques}, limiter, nil, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/mosques?lat=-6.2&lng=106.8", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
