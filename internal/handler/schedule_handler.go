package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/middleware"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/response"
)

const scheduleCacheControl = "public, s-maxage=86400, stale-while-revalidate=43200"

type scheduleProxy interface {
	Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, bool, error)
}

type schedulePrefetcher interface {
	MaybePrefetch(cityID string, year, month int) bool
}

// ScheduleHandler serves month schedules.
type ScheduleHandler struct {
	proxy     scheduleProxy
	prefetch  schedulePrefetcher
	validator *dto.Validator
}

// NewScheduleHandler constructs the handler. prefetch may be nil.
func NewScheduleHandler(proxy scheduleProxy, prefetch schedulePrefetcher, validator *dto.Validator) *ScheduleHandler {
	return &ScheduleHandler{proxy: proxy, prefetch: prefetch, validator: validator}
}

// Month godoc
// @Summary Monthly prayer schedule
// @Tags Schedule
// @Produce json
// @Param city_id query string true "City ID"
// @Param year query int true "Year, clamped to 2000-2100"
// @Param month query int true "Month, clamped to 1-12"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Month(c *gin.Context) {
	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "city_id, year and month are required"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, err)
		return
	}
	q.Clamp()

	result, hit, err := h.proxy.Month(c.Request.Context(), q.CityID, q.Year, q.Month)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.prefetch != nil {
		h.prefetch.MaybePrefetch(q.CityID, q.Year, q.Month)
	}

	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	labels := service.HijriMonthsFor(q.Year, q.Month)
	hijri := make([]string, 0, len(labels))
	for _, label := range labels {
		hijri = append(hijri, label.String())
	}
	meta["hijri"] = hijri
	response.Cached(c, http.StatusOK, scheduleCacheControl, result, meta)
}
