package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type fakeMosqueSearcher struct {
	mosques []models.Mosque
	err     error
	radius  int
	called  bool
}

func (f *fakeMosqueSearcher) Nearby(_ context.Context, lat, lng float64, radius int) ([]models.Mosque, error) {
	f.called = true
	f.radius = radius
	return f.mosques, f.err
}

func serveMosques(h *MosqueHandler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	h.Nearby(c)
	return rec
}

func TestMosqueHandlerBounds(t *testing.T) {
	svc := &fakeMosqueSearcher{}
	h := NewMosqueHandler(svc, dto.NewValidator())

	for _, target := range []string{
		"/mosques?lng=106.8",
		"/mosques?lat=7&lng=106.8",
		"/mosques?lat=-12&lng=106.8",
		"/mosques?lat=-6.2&lng=94",
		"/mosques?lat=-6.2&lng=142",
		"/mosques?lat=-6.2&lng=106.8&radius=50",
		"/mosques?lat=-6.2&lng=106.8&radius=20000",
		"/mosques?lat=abc&lng=106.8",
	} {
		rec := serveMosques(h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.False(t, svc.called)
}

func TestMosqueHandlerSuccess(t *testing.T) {
	svc := &fakeMosqueSearcher{mosques: []models.Mosque{
		{ID: "node/1", Name: "Masjid Istiqlal", Lat: -6.17, Lng: 106.83, Distance: 420},
	}}
	h := NewMosqueHandler(svc, dto.NewValidator())

	rec := serveMosques(h, "/mosques?lat=-6.175&lng=106.827")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000, svc.radius)
	assert.Equal(t, "public, s-maxage=3600, stale-while-revalidate=7200", rec.Header().Get("Cache-Control"))

	env := decodeEnvelope(t, rec)
	var mosques []models.Mosque
	require.NoError(t, json.Unmarshal(env.Data, &mosques))
	require.Len(t, mosques, 1)
	assert.Equal(t, "Masjid Istiqlal", mosques[0].Name)
	assert.EqualValues(t, 1, env.Meta["count"])
}

func TestMosqueHandlerUpstreamFailure(t *testing.T) {
	svc := &fakeMosqueSearcher{err: appErrors.ErrMosqueNetwork}
	h := NewMosqueHandler(svc, dto.NewValidator())

	rec := serveMosques(h, "/mosques?lat=-6.2&lng=106.8&radius=3000")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 3000, svc.radius)
	assert.Equal(t, "MOSQUE_NETWORK_ERROR", decodeEnvelope(t, rec).Error.Code)
}
