package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/pkg/cache"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

func TestNextPrayerServiceWithinMonth(t *testing.T) {
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("1219", 2025, 4): {fullDay("2025-04-10"), fullDay("2025-04-11")},
	}}
	clock := &fakeClock{now: localAt("2025-04-10", 12, 0, 0, 7)}
	svc := NewNextPrayerService(src, clock, nil)

	next, err := svc.Next(context.Background(), "1219", ResolveTimezone("JAWA BARAT"))
	require.NoError(t, err)
	assert.Equal(t, models.PrayerAshar, next.Name)
	assert.Equal(t, int64((3*time.Hour+10*time.Minute)/time.Millisecond), next.RemainingMs)
}

func TestNextPrayerServiceMonthEnd(t *testing.T) {
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("1219", 2025, 4): {fullDay("2025-04-30")},
		ScheduleKey("1219", 2025, 5): {fullDay("2025-05-01")},
	}}
	clock := &fakeClock{now: localAt("2025-04-30", 22, 0, 0, 7)}
	svc := NewNextPrayerService(src, clock, nil)

	next, err := svc.Next(context.Background(), "1219", ResolveTimezone("JAWA BARAT"))
	require.NoError(t, err)
	assert.True(t, next.IsTomorrow)
	assert.Equal(t, models.PrayerImsak, next.Name)
}

func TestNextPrayerServiceUnavailable(t *testing.T) {
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("1219", 2025, 4): {fullDay("2025-04-30")},
	}}
	clock := &fakeClock{now: localAt("2025-04-30", 22, 0, 0, 7)}
	svc := NewNextPrayerService(src, clock, nil)

	_, err := svc.Next(context.Background(), "1219", ResolveTimezone("JAWA BARAT"))
	assert.True(t, errors.Is(err, appErrors.ErrScheduleUnavailable))

	src.err = errors.New("boom")
	_, err = svc.Next(context.Background(), "1219", ResolveTimezone("JAWA BARAT"))
	assert.EqualError(t, err, "boom")
}

func TestNextPrayerServiceThroughProxyReusesMonth(t *testing.T) {
	up := &fakeDayUpstream{}
	schedules, clock := newScheduleFixture(up, storage.NewMemoryKV(0))
	proxy := NewScheduleProxy(schedules, NewCacheService(cache.NewMemory(), nil, 0, nil, true), 0)
	svc := NewNextPrayerService(proxy, clock, nil)
	tz := ResolveTimezone("DKI JAKARTA")

	first, err := svc.Next(context.Background(), "jkt", tz)
	require.NoError(t, err)
	assert.Equal(t, models.PrayerDzuhur, first.Name)
	assert.Equal(t, 30, up.total())

	for i := 0; i < 2; i++ {
		next, err := svc.Next(context.Background(), "jkt", tz)
		require.NoError(t, err)
		assert.Equal(t, first.Name, next.Name)
	}
	assert.Equal(t, 30, up.total(), "repeat requests for the same month must not reach upstream")
}
