package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type fakeCitySearch struct {
	keyword string
	resp    *models.CitySearchResponse
	err     error
}

func (f *fakeCitySearch) Search(_ context.Context, keyword string) (*models.CitySearchResponse, error) {
	f.keyword = keyword
	return f.resp, f.err
}

func TestCityHandlerSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeCitySearch{resp: &models.CitySearchResponse{Status: true, Data: []models.Location{{ID: "1219", Lokasi: "KOTA BANDUNG"}}}}
	h := NewCityHandler(svc, dto.NewValidator())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/cities?q=bandung", nil)
	h.Search(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bandung", svc.keyword)
	assert.Contains(t, rec.Body.String(), "KOTA BANDUNG")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "public")
}

func TestCityHandlerUpstreamDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeCitySearch{err: appErrors.With(appErrors.ErrUpstreamDown, errors.New("timeout"))}
	h := NewCityHandler(svc, dto.NewValidator())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/cities?q=bandung", nil)
	h.Search(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
