package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type scheduleCall struct {
	CityID string
	Year   int
	Month  int
}

type fakeScheduleSource struct {
	mu    sync.Mutex
	days  map[string][]models.ScheduleDay
	err   error
	gate  chan struct{}
	calls []scheduleCall
}

func (f *fakeScheduleSource) GetSchedule(ctx context.Context, cityID string, year, month int) ([]models.ScheduleDay, error) {
	f.mu.Lock()
	f.calls = append(f.calls, scheduleCall{cityID, year, month})
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.days[ScheduleKey(cityID, year, month)], nil
}

func (f *fakeScheduleSource) Calls() []scheduleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduleCall(nil), f.calls...)
}

func jakarta() models.LocationState {
	return models.LocationState{
		Location: models.Location{ID: "jkt", Lokasi: "KOTA JAKARTA", Daerah: "DKI JAKARTA"},
		Timezone: ResolveTimezone("DKI JAKARTA"),
	}
}

func newTestEngine(src ScheduleSource, clock Clock) *CountdownEngine {
	return NewCountdownEngine(src, clock, jakarta(), CountdownOptions{MaxRefetch: 3}, nil, nil)
}

func TestCountdownEngineFetchesOnFirstTick(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 10, 0, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10"), fullDay("2025-04-11")},
	}}
	engine := newTestEngine(src, clock)

	engine.CoarseTick()
	engine.Wait()

	state := engine.Snapshot()
	require.NotNil(t, state.Next)
	assert.Equal(t, models.CountdownActive, state.Status)
	assert.Equal(t, models.PrayerDzuhur, state.Next.Name)
	assert.Equal(t, "2025-04-10", state.LocalDate)
	assert.Equal(t, []scheduleCall{{"jkt", 2025, 4}}, src.Calls())
}

func TestCountdownEngineFetchesNextMonthAtMonthEnd(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-30", 20, 0, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-30")},
		ScheduleKey("jkt", 2025, 5): {fullDay("2025-05-01")},
	}}
	engine := newTestEngine(src, clock)

	engine.CoarseTick()
	engine.Wait()

	state := engine.Snapshot()
	require.NotNil(t, state.Next)
	assert.True(t, state.Next.IsTomorrow)
	assert.Equal(t, []scheduleCall{{"jkt", 2025, 4}, {"jkt", 2025, 5}}, src.Calls())
}

func TestCountdownEngineCapsRefetchAttempts(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 10, 0, 0, 7)}
	src := &fakeScheduleSource{err: errors.New("connection refused")}
	engine := newTestEngine(src, clock)

	for i := 0; i < 5; i++ {
		engine.CoarseTick()
		engine.Wait()
	}

	state := engine.Snapshot()
	assert.Len(t, src.Calls(), 3)
	assert.Equal(t, models.CountdownUnavailable, state.Status)
	assert.Equal(t, appErrors.ErrScheduleUnavailable.Message, state.Error)
	assert.Nil(t, state.Next)

	src.mu.Lock()
	src.err = nil
	src.days = map[string][]models.ScheduleDay{ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")}}
	src.mu.Unlock()

	engine.Retry()
	engine.Wait()
	state = engine.Snapshot()
	assert.Equal(t, models.CountdownActive, state.Status)
	assert.Equal(t, 0, state.Attempts)
}

func TestCountdownEngineSingleRefetchInFlight(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 10, 0, 0, 7)}
	src := &fakeScheduleSource{gate: make(chan struct{}), days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := newTestEngine(src, clock)

	engine.CoarseTick()
	engine.CoarseTick()
	engine.CoarseTick()
	assert.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	close(src.gate)
	engine.Wait()
	assert.Len(t, src.Calls(), 1)
	assert.Equal(t, models.CountdownActive, engine.Snapshot().Status)
}

func TestCountdownEngineRolloverTriggersRefetch(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 23, 59, 50, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10"), fullDay("2025-04-11")},
	}}
	engine := newTestEngine(src, clock)
	engine.CoarseTick()
	engine.Wait()
	require.Len(t, src.Calls(), 1)

	clock.Set(localAt("2025-04-11", 0, 0, 20, 7))
	engine.CoarseTick()
	engine.Wait()

	state := engine.Snapshot()
	require.NotNil(t, state.Next)
	assert.Equal(t, models.PrayerImsak, state.Next.Name)
	assert.False(t, state.Next.IsTomorrow)
	assert.Len(t, src.Calls(), 2)
	assert.Equal(t, 0, state.Attempts)
}

func TestCountdownEngineFineTick(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 11, 53, 58, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := newTestEngine(src, clock)
	engine.CoarseTick()
	engine.Wait()

	before := engine.Snapshot().Next
	require.NotNil(t, before)
	require.Equal(t, int64(62_000), before.RemainingMs)

	clock.Advance(time.Second)
	assert.False(t, engine.FineTick())
	assert.Equal(t, int64(61_000), engine.Snapshot().Next.RemainingMs)

	clock.Advance(2 * time.Minute)
	assert.True(t, engine.FineTick())
	after := engine.Snapshot().Next
	assert.Equal(t, models.PrayerDzuhur, after.Name)
	assert.Equal(t, int64(61_000), after.RemainingMs)
	assert.Len(t, src.Calls(), 1)

	engine.CoarseTick()
	assert.Equal(t, models.PrayerAshar, engine.Snapshot().Next.Name)
}

func TestCountdownEngineSetLocationInvalidatesTarget(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 10, 0, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
		ScheduleKey("mks", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := newTestEngine(src, clock)
	engine.CoarseTick()
	engine.Wait()
	require.NotNil(t, engine.Snapshot().Next)

	var observed []models.CountdownState
	var mu sync.Mutex
	unsubscribe := engine.OnChange(func(s models.CountdownState) {
		mu.Lock()
		observed = append(observed, s)
		mu.Unlock()
	})
	defer unsubscribe()

	src.mu.Lock()
	src.gate = make(chan struct{})
	src.mu.Unlock()

	makassar := models.LocationState{
		Location: models.Location{ID: "mks", Lokasi: "KOTA MAKASSAR", Daerah: "SULAWESI SELATAN"},
		Timezone: ResolveTimezone("SULAWESI SELATAN"),
	}
	engine.SetLocation(makassar)

	state := engine.Snapshot()
	assert.Nil(t, state.Next)
	assert.Equal(t, "mks", state.Location.Location.ID)
	assert.Equal(t, models.CountdownLoading, state.Status)

	close(src.gate)
	engine.Wait()

	calls := src.Calls()
	assert.Equal(t, "mks", calls[len(calls)-1].CityID)
	final := engine.Snapshot()
	require.NotNil(t, final.Next)
	assert.Equal(t, models.PrayerDzuhur, final.Next.Name)
	mu.Lock()
	require.NotEmpty(t, observed)
	assert.Nil(t, observed[0].Next)
	mu.Unlock()
}

func TestCountdownEngineRunStopsOnCancel(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 10, 0, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := NewCountdownEngine(src, clock, jakarta(), CountdownOptions{
		CoarseInterval: 20 * time.Millisecond,
		FineInterval:   5 * time.Millisecond,
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	assert.Eventually(t, func() bool { return engine.Snapshot().Next != nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
