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

type fakeScheduleProxy struct {
	resp  *models.ScheduleResponse
	hit   bool
	err   error
	calls []string

	lastYear, lastMonth int
}

func (f *fakeScheduleProxy) Month(_ context.Context, cityID string, year, month int) (*models.ScheduleResponse, bool, error) {
	f.calls = append(f.calls, cityID)
	f.lastYear, f.lastMonth = year, month
	return f.resp, f.hit, f.err
}

type fakePrefetcher struct {
	requested [][3]interface{}
}

func (f *fakePrefetcher) MaybePrefetch(cityID string, year, month int) bool {
	f.requested = append(f.requested, [3]interface{}{cityID, year, month})
	return true
}

func newScheduleContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestScheduleHandlerMissingParams(t *testing.T) {
	proxy := &fakeScheduleProxy{}
	h := NewScheduleHandler(proxy, nil, dto.NewValidator())

	for _, target := range []string{
		"/schedule",
		"/schedule?city_id=1219&year=2025",
		"/schedule?city_id=1219&year=abc&month=4",
		"/schedule?city_id=../1219&year=2025&month=4",
	} {
		c, rec := newScheduleContext(target)
		h.Month(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Empty(t, proxy.calls)
}

func TestScheduleHandlerClampsAndCaches(t *testing.T) {
	proxy := &fakeScheduleProxy{
		resp: &models.ScheduleResponse{Status: true, Data: &models.ScheduleData{ID: "1219", Lokasi: "KOTA BANDUNG"}},
		hit:  true,
	}
	prefetch := &fakePrefetcher{}
	h := NewScheduleHandler(proxy, prefetch, dto.NewValidator())

	c, rec := newScheduleContext("/schedule?city_id=1219&year=3000&month=13")
	h.Month(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2100, proxy.lastYear)
	assert.Equal(t, 12, proxy.lastMonth)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "s-maxage=86400")
	require.Len(t, prefetch.requested, 1)

	env := decodeEnvelope(t, rec)
	var data models.ScheduleResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "KOTA BANDUNG", data.Data.Lokasi)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.NotEmpty(t, env.Meta["hijri"])
}

func TestScheduleHandlerUpstreamError(t *testing.T) {
	proxy := &fakeScheduleProxy{err: appErrors.Clone(appErrors.ErrScheduleUpstream, "kota tidak ditemukan")}
	prefetch := &fakePrefetcher{}
	h := NewScheduleHandler(proxy, prefetch, dto.NewValidator())

	c, rec := newScheduleContext("/schedule?city_id=1219&year=2025&month=4")
	h.Month(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "kota tidak ditemukan", env.Error.Message)
	assert.Empty(t, prefetch.requested)
}
