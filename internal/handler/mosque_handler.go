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

const mosqueCacheControl = "public, s-maxage=3600, stale-while-revalidate=7200"

type mosqueSearcher interface {
	Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Mosque, error)
}

// MosqueHandler serves nearby mosque searches.
type MosqueHandler struct {
	service   mosqueSearcher
	validator *dto.Validator
}

// NewMosqueHandler constructs the handler.
func NewMosqueHandler(service mosqueSearcher, validator *dto.Validator) *MosqueHandler {
	return &MosqueHandler{service: service, validator: validator}
}

// Nearby godoc
// @Summary Mosques near a point
// @Tags Mosques
// @Produce json
// @Param lat query number true "Latitude (-11..6)"
// @Param lng query number true "Longitude (95..141)"
// @Param radius query int false "Radius in metres (100..10000), default 2000"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /mosques [get]
func (h *MosqueHandler) Nearby(c *gin.Context) {
	var q dto.MosqueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat, lng and radius must be numbers"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, err)
		return
	}

	radius := q.RadiusOrDefault()
	mosques, err := h.service.Nearby(c.Request.Context(), *q.Lat, *q.Lng, radius)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, http.StatusOK, mosqueCacheControl, mosques, map[string]interface{}{
		"radius": radius,
		"count":  len(mosques),
	})
}
