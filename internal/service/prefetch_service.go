package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/pkg/jobs"
)

const prefetchJobType = "schedule_prefetch"

type prefetchPayload struct {
	CityID string
	Year   int
	Month  int
}

// PrefetchOptions configures the prefetch queue.
type PrefetchOptions struct {
	WindowDays int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// PrefetchService warms next month's schedule in the background once a
// month's schedule is requested during its closing days.
type PrefetchService struct {
	proxy  *ScheduleProxy
	queue  *jobs.Queue
	clock  Clock
	window int
	logger *zap.Logger
}

// NewPrefetchService builds the service; call Start before MaybePrefetch.
func NewPrefetchService(proxy *ScheduleProxy, opts PrefetchOptions, clock Clock, logger *zap.Logger) *PrefetchService {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PrefetchService{proxy: proxy, clock: clock, window: opts.WindowDays, logger: logger}
	s.queue = jobs.NewQueue("schedule-prefetch", s.handle, jobs.QueueConfig{
		Workers:    opts.Workers,
		MaxRetries: opts.MaxRetries,
		RetryDelay: opts.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *PrefetchService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *PrefetchService) Stop() {
	s.queue.Stop()
}

// Pending reports queued or running prefetches.
func (s *PrefetchService) Pending() int {
	return s.queue.Pending()
}

// MaybePrefetch enqueues next month for cityID when year/month is the current
// month in Indonesian western time and today falls within its last window
// days. It reports whether a job was queued.
func (s *PrefetchService) MaybePrefetch(cityID string, year, month int) bool {
	local := toLocal(s.clock.Now(), 7)
	if local.Year() != year || int(local.Month()) != month {
		return false
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	if local.Day() <= daysInMonth-s.window {
		return false
	}

	next := first.AddDate(0, 1, 0)
	job := jobs.Job{
		Key:      fmt.Sprintf("prefetch:%s:%d:%d", cityID, next.Year(), int(next.Month())),
		Type:     prefetchJobType,
		Payload:  prefetchPayload{CityID: cityID, Year: next.Year(), Month: int(next.Month())},
		Enqueued: s.clock.Now(),
	}
	queued, err := s.queue.TryEnqueue(job)
	if err != nil {
		if !errors.Is(err, jobs.ErrQueueFull) {
			s.logger.Warn("prefetch enqueue failed", zap.String("key", job.Key), zap.Error(err))
		}
		return false
	}
	return queued
}

func (s *PrefetchService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(prefetchPayload)
	if !ok {
		return fmt.Errorf("unexpected prefetch payload %T", job.Payload)
	}
	warmed, err := s.proxy.Warm(ctx, payload.CityID, payload.Year, payload.Month)
	if err != nil {
		return fmt.Errorf("prefetch %s: %w", job.Key, err)
	}
	if warmed {
		s.logger.Info("schedule prefetched", zap.String("key", job.Key), zap.Int("attempt", job.Attempt))
	}
	return nil
}
