package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/response"
)

const streamHeartbeat = 15 * time.Second

type nextPrayerFinder interface {
	Next(ctx context.Context, cityID string, tz models.Timezone) (*models.NextPrayerResult, error)
}

type timeSource interface {
	Snapshot() models.TimeSnapshot
}

// CountdownFactory builds a fresh engine for one stream subscriber.
type CountdownFactory func(loc models.LocationState) *service.CountdownEngine

// PrayerHandler serves the next prayer, the live countdown and the clock.
type PrayerHandler struct {
	next      nextPrayerFinder
	clock     timeSource
	newEngine CountdownFactory
	metrics   *service.MetricsService
	validator *dto.Validator
	logger    *zap.Logger
}

// NewPrayerHandler constructs the handler.
func NewPrayerHandler(next nextPrayerFinder, clock timeSource, newEngine CountdownFactory, metrics *service.MetricsService, validator *dto.Validator, logger *zap.Logger) *PrayerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrayerHandler{next: next, clock: clock, newEngine: newEngine, metrics: metrics, validator: validator, logger: logger}
}

// NextPrayer godoc
// @Summary Next prayer for a city
// @Tags Prayer
// @Produce json
// @Param city_id query string true "City ID"
// @Param province query string false "Province, selects WIB/WITA/WIT"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /next-prayer [get]
func (h *PrayerHandler) NextPrayer(c *gin.Context) {
	loc, ok := h.bindLocation(c)
	if !ok {
		return
	}
	next, err := h.next.Next(c.Request.Context(), loc.Location.ID, loc.Timezone)
	if err != nil {
		response.Error(c, err)
		return
	}
	snapshot := h.clock.Snapshot()
	localDate := service.LocalDate(snapshot.Now, loc.Timezone.UTCOffsetHours)
	response.JSON(c, http.StatusOK, dto.NextPrayerResponse{
		Location:   loc,
		Next:       next,
		LocalDate:  localDate,
		Hijri:      service.HijriDate(localDate),
		ServerTime: snapshot,
	})
}

// Stream godoc
// @Summary Live countdown as server-sent events
// @Tags Prayer
// @Produce text/event-stream
// @Param city_id query string true "City ID"
// @Param province query string false "Province, selects WIB/WITA/WIT"
// @Success 200 {string} string "countdown events"
// @Router /countdown/stream [get]
func (h *PrayerHandler) Stream(c *gin.Context) {
	loc, ok := h.bindLocation(c)
	if !ok {
		return
	}
	if h.newEngine == nil {
		response.Error(c, appErrors.ErrUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	engine := h.newEngine(loc)
	updates := make(chan models.CountdownState, 1)
	unsubscribe := engine.OnChange(func(state models.CountdownState) {
		// Keep only the newest state for slow readers.
		for {
			select {
			case updates <- state:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
		unsubscribe()
	}()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-updates:
			c.SSEvent("countdown", state)
			c.Writer.Flush()
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				h.logger.Debug("countdown stream closed", zap.Error(err))
				return
			}
			c.Writer.Flush()
		}
	}
}

// Time godoc
// @Summary Corrected server time
// @Tags Prayer
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time [get]
func (h *PrayerHandler) Time(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.clock.Snapshot())
}

func (h *PrayerHandler) bindLocation(c *gin.Context) (models.LocationState, bool) {
	var q dto.LocationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return models.LocationState{}, false
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, err)
		return models.LocationState{}, false
	}
	return models.LocationState{
		Location: models.Location{ID: q.CityID, Daerah: q.Province},
		Timezone: service.ResolveTimezone(q.Province),
	}, true
}
