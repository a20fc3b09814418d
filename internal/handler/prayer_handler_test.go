package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) Snapshot() models.TimeSnapshot {
	return models.TimeSnapshot{Now: c.now, OffsetMs: 1500, SyncedAt: c.now.Add(-time.Minute)}
}

type fakeNextFinder struct {
	result *models.NextPrayerResult
	err    error
	tz     models.Timezone
}

func (f *fakeNextFinder) Next(_ context.Context, cityID string, tz models.Timezone) (*models.NextPrayerResult, error) {
	f.tz = tz
	return f.result, f.err
}

type staticSchedule struct{ days []models.ScheduleDay }

func (s staticSchedule) GetSchedule(context.Context, string, int, int) ([]models.ScheduleDay, error) {
	return s.days, nil
}

// 2025-04-10 12:00 WITA.
var prayerNow = time.Date(2025, 4, 10, 4, 0, 0, 0, time.UTC)

func TestPrayerHandlerNextPrayer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	finder := &fakeNextFinder{result: &models.NextPrayerResult{Name: models.PrayerAshar, Key: "ashar", Time: "15:10", RemainingMs: 11400000}}
	h := NewPrayerHandler(finder, fixedClock{now: prayerNow}, nil, nil, dto.NewValidator(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/next-prayer?city_id=2622&province=SULAWESI%20SELATAN", nil)
	h.NextPrayer(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TimezoneWITA, finder.tz.Label)

	var body dto.NextPrayerResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, "ashar", body.Next.Key)
	assert.Equal(t, "2025-04-10", body.LocalDate)
	assert.Equal(t, "12 Syawal 1446H", body.Hijri)
	assert.Equal(t, int64(1500), body.ServerTime.OffsetMs)
}

func TestPrayerHandlerNextPrayerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	finder := &fakeNextFinder{err: appErrors.ErrScheduleUnavailable}
	h := NewPrayerHandler(finder, fixedClock{now: prayerNow}, nil, nil, dto.NewValidator(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/next-prayer", nil)
	h.NextPrayer(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/next-prayer?city_id=2622", nil)
	h.NextPrayer(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPrayerHandlerTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPrayerHandler(nil, fixedClock{now: prayerNow}, nil, nil, dto.NewValidator(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/time", nil)
	h.Time(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.TimeSnapshot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &snap))
	assert.True(t, snap.Now.Equal(prayerNow))
}

func TestPrayerHandlerStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := fixedClock{now: prayerNow}
	day := models.ScheduleDay{Date: "2025-04-10", Imsak: "04:20", Subuh: "04:30", Dzuhur: "12:10", Ashar: "15:20", Maghrib: "18:10", Isya: "19:20"}
	metrics := service.NewMetricsService()
	factory := func(loc models.LocationState) *service.CountdownEngine {
		return service.NewCountdownEngine(staticSchedule{days: []models.ScheduleDay{day}}, clock, loc,
			service.CountdownOptions{CoarseInterval: time.Hour, FineInterval: time.Hour}, metrics, nil)
	}
	h := NewPrayerHandler(nil, clock, factory, metrics, dto.NewValidator(), nil)

	router := gin.New()
	router.GET("/countdown/stream", h.Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/countdown/stream?city_id=2622&province=SULAWESI%20SELATAN", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var active models.CountdownState
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var state models.CountdownState
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &state))
		if state.Status == models.CountdownActive {
			active = state
			break
		}
	}
	require.NotNil(t, active.Next, "no active state received")
	assert.Equal(t, models.PrayerDzuhur, active.Next.Name)
	assert.Equal(t, int64(10*time.Minute/time.Millisecond), active.Next.RemainingMs)
	assert.Equal(t, models.TimezoneWITA, active.Location.Timezone.Label)

	assert.Eventually(t, func() bool { return metrics.Snapshot().StreamClients == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	assert.Eventually(t, func() bool { return metrics.Snapshot().StreamClients == 0 }, 2*time.Second, 10*time.Millisecond)
}
