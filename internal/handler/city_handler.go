package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/response"
)

const cityCacheControl = "public, s-maxage=86400, stale-while-revalidate=43200"

type citySearcher interface {
	Search(ctx context.Context, keyword string) (*models.CitySearchResponse, error)
}

// CityHandler proxies city search.
type CityHandler struct {
	service   citySearcher
	validator *dto.Validator
}

// NewCityHandler constructs the handler.
func NewCityHandler(service citySearcher, validator *dto.Validator) *CityHandler {
	return &CityHandler{service: service, validator: validator}
}

// Search godoc
// @Summary Search cities
// @Tags Cities
// @Produce json
// @Param q query string true "Keyword, at least 2 characters"
// @Success 200 {object} response.Envelope
// @Router /cities [get]
func (h *CityHandler) Search(c *gin.Context) {
	var q dto.CityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Search(c.Request.Context(), q.Q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, http.StatusOK, cityCacheControl, result)
}
