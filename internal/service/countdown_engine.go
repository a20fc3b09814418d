package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// Refetch trigger reasons.
const (
	RefetchLocation  = "location"
	RefetchExhausted = "exhausted"
	RefetchRollover  = "rollover"
	RefetchManual    = "manual"
)

// ScheduleSource supplies month schedules to the engine.
type ScheduleSource interface {
	GetSchedule(ctx context.Context, cityID string, year, month int) ([]models.ScheduleDay, error)
}

// CountdownOptions tunes the engine cadence.
type CountdownOptions struct {
	CoarseInterval time.Duration
	FineInterval   time.Duration
	MaxRefetch     int
}

// CountdownEngine tracks the next prayer for one location. CoarseTick owns
// target selection and every refetch; FineTick only refreshes the remaining
// time of the selected target.
type CountdownEngine struct {
	source  ScheduleSource
	clock   Clock
	opts    CountdownOptions
	metrics *MetricsService
	logger  *zap.Logger

	mu               sync.Mutex
	baseCtx          context.Context
	location         models.LocationState
	schedule         []models.ScheduleDay
	target           *models.NextPrayerResult
	lastObservedDate string
	generation       uint64
	refetchInFlight  bool
	attempts         int
	unavailable      bool
	lastErr          error
	observers        map[int]func(models.CountdownState)
	nextObserver     int
	refetches        sync.WaitGroup
}

// NewCountdownEngine builds an engine for loc. Nothing is fetched until the
// first CoarseTick or Run.
func NewCountdownEngine(source ScheduleSource, clock Clock, loc models.LocationState, opts CountdownOptions, metrics *MetricsService, logger *zap.Logger) *CountdownEngine {
	if opts.CoarseInterval <= 0 {
		opts.CoarseInterval = 30 * time.Second
	}
	if opts.FineInterval <= 0 {
		opts.FineInterval = time.Second
	}
	if opts.MaxRefetch <= 0 {
		opts.MaxRefetch = 3
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountdownEngine{
		source:    source,
		clock:     clock,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
		baseCtx:   context.Background(),
		location:  loc,
		observers: make(map[int]func(models.CountdownState)),
	}
}

// OnChange registers fn to receive a snapshot after every state change. The
// returned func unregisters it.
func (e *CountdownEngine) OnChange(fn func(models.CountdownState)) func() {
	e.mu.Lock()
	id := e.nextObserver
	e.nextObserver++
	e.observers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (e *CountdownEngine) Snapshot() models.CountdownState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// CoarseTick recomputes the target, detects date rollover and requests a
// refetch when look-ahead data is exhausted.
func (e *CountdownEngine) CoarseTick() {
	e.mu.Lock()
	now := e.clock.Now()
	offset := e.location.Timezone.UTCOffsetHours
	date := LocalDate(now, offset)
	rolledOver := e.lastObservedDate != "" && e.lastObservedDate != date
	e.lastObservedDate = date

	e.target = ComputeNext(e.schedule, now, offset)
	if e.target != nil {
		e.attempts = 0
		e.unavailable = false
		e.lastErr = nil
		tomorrow := toLocal(now, offset).AddDate(0, 0, 1).Format(dateLayout)
		if rolledOver && !hasDay(e.schedule, tomorrow) {
			e.requestRefetchLocked(RefetchRollover)
		}
	} else if !e.unavailable {
		if e.attempts >= e.opts.MaxRefetch {
			e.markUnavailableLocked()
		} else {
			e.requestRefetchLocked(RefetchExhausted)
		}
	}

	state, observers := e.snapshotLocked(), e.observersLocked()
	e.mu.Unlock()
	notify(observers, state)
}

// FineTick refreshes RemainingMs of the selected target. It reports true
// when the target has elapsed, leaving the state untouched for the next
// CoarseTick.
func (e *CountdownEngine) FineTick() bool {
	e.mu.Lock()
	if e.target == nil {
		e.mu.Unlock()
		return false
	}
	remaining := e.target.TargetAt.Sub(e.clock.Now()).Milliseconds()
	if remaining <= 0 {
		e.mu.Unlock()
		return true
	}
	next := *e.target
	next.RemainingMs = remaining
	e.target = &next

	state, observers := e.snapshotLocked(), e.observersLocked()
	e.mu.Unlock()
	notify(observers, state)
	return false
}

// SetLocation switches the engine to loc, dropping the previous target and
// schedule immediately and fetching the new city's schedule.
func (e *CountdownEngine) SetLocation(loc models.LocationState) {
	e.mu.Lock()
	e.generation++
	e.location = loc
	e.schedule = nil
	e.target = nil
	e.lastObservedDate = ""
	e.attempts = 0
	e.unavailable = false
	e.lastErr = nil
	e.refetchInFlight = false
	e.requestRefetchLocked(RefetchLocation)

	state, observers := e.snapshotLocked(), e.observersLocked()
	e.mu.Unlock()
	notify(observers, state)
}

// Retry clears the unavailable state and fetches again.
func (e *CountdownEngine) Retry() {
	e.mu.Lock()
	e.attempts = 0
	e.unavailable = false
	e.lastErr = nil
	e.requestRefetchLocked(RefetchManual)

	state, observers := e.snapshotLocked(), e.observersLocked()
	e.mu.Unlock()
	notify(observers, state)
}

// Run drives both tickers until ctx is done and waits for in-flight
// refetches before returning.
func (e *CountdownEngine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()
	defer e.refetches.Wait()

	e.CoarseTick()

	coarse := time.NewTicker(e.opts.CoarseInterval)
	defer coarse.Stop()
	fine := time.NewTicker(e.opts.FineInterval)
	defer fine.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-coarse.C:
			e.CoarseTick()
		case <-fine.C:
			if e.FineTick() {
				e.CoarseTick()
			}
		}
	}
}

// Wait blocks until in-flight refetches complete.
func (e *CountdownEngine) Wait() {
	e.refetches.Wait()
}

func (e *CountdownEngine) requestRefetchLocked(reason string) {
	if e.refetchInFlight {
		return
	}
	if e.location.Location.ID == "" {
		e.lastErr = appErrors.Clone(appErrors.ErrValidation, "city id is required")
		return
	}
	e.refetchInFlight = true
	if reason == RefetchExhausted {
		e.attempts++
	}
	e.metrics.RecordRefetch(reason)

	gen := e.generation
	ctx := e.baseCtx
	cityID := e.location.Location.ID
	local := toLocal(e.clock.Now(), e.location.Timezone.UTCOffsetHours)

	e.refetches.Add(1)
	go func() {
		defer e.refetches.Done()
		e.refetch(ctx, gen, cityID, local, reason)
	}()
}

func (e *CountdownEngine) refetch(ctx context.Context, gen uint64, cityID string, local time.Time, reason string) {
	days, err := e.source.GetSchedule(ctx, cityID, local.Year(), int(local.Month()))
	if err == nil {
		tomorrow := local.AddDate(0, 0, 1)
		if tomorrow.Month() != local.Month() {
			next, nextErr := e.source.GetSchedule(ctx, cityID, tomorrow.Year(), int(tomorrow.Month()))
			if nextErr != nil {
				e.logger.Warn("next month schedule unavailable", zap.String("city_id", cityID), zap.Error(nextErr))
			} else {
				days = mergeDays(days, next)
			}
		}
	}

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.refetchInFlight = false
	if err != nil {
		e.lastErr = err
		e.logger.Warn("schedule refetch failed",
			zap.String("city_id", cityID), zap.String("reason", reason), zap.Int("attempts", e.attempts), zap.Error(err))
		if e.target == nil && e.attempts >= e.opts.MaxRefetch {
			e.markUnavailableLocked()
		}
		state, observers := e.snapshotLocked(), e.observersLocked()
		e.mu.Unlock()
		notify(observers, state)
		return
	}
	e.schedule = days
	e.mu.Unlock()

	e.CoarseTick()
}

func (e *CountdownEngine) markUnavailableLocked() {
	e.unavailable = true
	if e.lastErr == nil {
		e.lastErr = appErrors.ErrScheduleUnavailable
		return
	}
	e.lastErr = appErrors.With(appErrors.ErrScheduleUnavailable, e.lastErr)
}

func (e *CountdownEngine) snapshotLocked() models.CountdownState {
	state := models.CountdownState{
		Location:  e.location,
		LocalDate: e.lastObservedDate,
		Attempts:  e.attempts,
		UpdatedAt: e.clock.Now(),
	}
	switch {
	case e.target != nil:
		next := *e.target
		state.Next = &next
		state.Status = models.CountdownActive
	case e.unavailable:
		state.Status = models.CountdownUnavailable
	case e.refetchInFlight && len(e.schedule) > 0:
		state.Status = models.CountdownRefetching
	default:
		state.Status = models.CountdownLoading
	}
	if e.lastErr != nil {
		state.Error = appErrors.FromError(e.lastErr).Message
	}
	return state
}

func (e *CountdownEngine) observersLocked() []func(models.CountdownState) {
	out := make([]func(models.CountdownState), 0, len(e.observers))
	ids := make([]int, 0, len(e.observers))
	for id := range e.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, e.observers[id])
	}
	return out
}

func notify(observers []func(models.CountdownState), state models.CountdownState) {
	for _, fn := range observers {
		fn(state)
	}
}

// mergeDays combines schedules keyed by date, later entries winning.
func mergeDays(sets ...[]models.ScheduleDay) []models.ScheduleDay {
	byDate := make(map[string]models.ScheduleDay)
	for _, set := range sets {
		for _, day := range set {
			byDate[day.Date] = day
		}
	}
	out := make([]models.ScheduleDay, 0, len(byDate))
	for _, day := range byDate {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
