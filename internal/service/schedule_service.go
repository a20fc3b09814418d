package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

const schedulePrefix = "schedule_"

// ScheduleUpstream fetches one day of prayer times.
type ScheduleUpstream interface {
	Day(ctx context.Context, cityID string, date time.Time) (*models.ScheduleResponse, error)
}

// ScheduleOptions tunes fetching and offline replay.
type ScheduleOptions struct {
	Timeout   time.Duration
	MaxAge    time.Duration
	BatchSize int
	Attempts  int
	Backoff   time.Duration
}

// ScheduleService assembles month schedules from day-granular upstream calls
// and replays persisted months when the upstream is unreachable.
type ScheduleService struct {
	upstream ScheduleUpstream
	kv       KVStore
	opts     ScheduleOptions
	clock    Clock
	metrics  *MetricsService
	logger   *zap.Logger
}

// cachedSchedule is the persisted form: the response plus its fetch time in
// unix milliseconds.
type cachedSchedule struct {
	TS int64 `json:"_ts"`
	models.ScheduleResponse
}

// NewScheduleService constructs the service. kv may be nil to disable
// persistence.
func NewScheduleService(upstream ScheduleUpstream, kv KVStore, opts ScheduleOptions, clock Clock, metrics *MetricsService, logger *zap.Logger) *ScheduleService {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 7
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{upstream: upstream, kv: kv, opts: opts, clock: clock, metrics: metrics, logger: logger}
}

// ScheduleKey is the persistence key for a city month.
func ScheduleKey(cityID string, year, month int) string {
	return fmt.Sprintf("%s%s_%d_%d", schedulePrefix, cityID, year, month)
}

// GetSchedule returns the month's days sorted by date.
func (s *ScheduleService) GetSchedule(ctx context.Context, cityID string, year, month int) ([]models.ScheduleDay, error) {
	resp, err := s.Month(ctx, cityID, year, month)
	if err != nil {
		return nil, err
	}
	return resp.Data.Jadwal, nil
}

// Month returns the full month response including location details.
func (s *ScheduleService) Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, error) {
	cityID = strings.TrimSpace(cityID)
	if cityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "city id is required")
	}
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	key := ScheduleKey(cityID, year, month)
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.fetchMonth(fetchCtx, cityID, year, month)
	if err == nil {
		s.persist(ctx, key, resp)
		return resp, nil
	}
	if errors.Is(err, appErrors.ErrScheduleUpstream) {
		return nil, err
	}

	if cached, ok := s.loadCached(ctx, key); ok {
		s.metrics.ObserveUpstream("myquran", OutcomeFallback, 0)
		s.logger.Warn("schedule fetch failed, serving persisted copy",
			zap.String("key", key), zap.Error(err))
		return cached, nil
	}
	return nil, err
}

func (s *ScheduleService) fetchMonth(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, error) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	var (
		mu      sync.Mutex
		byDate  = make(map[string]models.ScheduleDay, daysInMonth)
		outData *models.ScheduleData
	)

	for start := 1; start <= daysInMonth; start += s.opts.BatchSize {
		end := start + s.opts.BatchSize - 1
		if end > daysInMonth {
			end = daysInMonth
		}

		g, gctx := errgroup.WithContext(ctx)
		for d := start; d <= end; d++ {
			date := first.AddDate(0, 0, d-1)
			g.Go(func() error {
				resp, err := s.fetchDay(gctx, cityID, date)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if outData == nil {
					data := *resp.Data
					outData = &data
				}
				for _, day := range resp.Data.Jadwal {
					if day.Date == "" {
						continue
					}
					byDate[day.Date] = day
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if outData == nil {
		return nil, appErrors.With(appErrors.ErrScheduleUpstream, fmt.Errorf("empty schedule for %s", cityID))
	}

	days := make([]models.ScheduleDay, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	if outData.ID == "" {
		outData.ID = cityID
	}
	outData.Jadwal = days
	return &models.ScheduleResponse{Status: true, Data: outData}, nil
}

func (s *ScheduleService) fetchDay(ctx context.Context, cityID string, date time.Time) (*models.ScheduleResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		started := time.Now()
		resp, err := s.upstream.Day(ctx, cityID, date)
		elapsed := time.Since(started)

		switch {
		case err != nil:
			s.metrics.ObserveUpstream("myquran", OutcomeNetwork, elapsed)
			lastErr = fmt.Errorf("fetch %s %s: %w", cityID, date.Format("2006-01-02"), err)
		case resp == nil || !resp.Status:
			s.metrics.ObserveUpstream("myquran", OutcomeLogical, elapsed)
			msg := "jadwal tidak tersedia"
			if resp != nil && resp.Error != "" {
				msg = resp.Error
			}
			return nil, appErrors.With(appErrors.Clone(appErrors.ErrScheduleUpstream, msg), fmt.Errorf("city %s on %s", cityID, date.Format("2006-01-02")))
		case resp.Data == nil:
			s.metrics.ObserveUpstream("myquran", OutcomeLogical, elapsed)
			lastErr = fmt.Errorf("fetch %s %s: response without data", cityID, date.Format("2006-01-02"))
		default:
			s.metrics.ObserveUpstream("myquran", OutcomeOK, elapsed)
			return resp, nil
		}

		if attempt < s.opts.Attempts {
			if err := sleepContext(ctx, s.opts.Backoff*time.Duration(attempt)); err != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

func (s *ScheduleService) loadCached(ctx context.Context, key string) (*models.ScheduleResponse, bool) {
	if s.kv == nil {
		return nil, false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var entry cachedSchedule
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("discarding unreadable schedule cache", zap.String("key", key), zap.Error(err))
		_ = s.kv.Delete(ctx, key)
		return nil, false
	}
	if entry.Data == nil || !entry.Status {
		return nil, false
	}
	if s.expired(entry.TS) {
		return nil, false
	}
	resp := entry.ScheduleResponse
	return &resp, true
}

func (s *ScheduleService) persist(ctx context.Context, key string, resp *models.ScheduleResponse) {
	if s.kv == nil {
		return
	}
	entry := cachedSchedule{TS: s.clock.Now().UnixMilli(), ScheduleResponse: *resp}
	err := setJSON(ctx, s.kv, key, entry)
	if err == nil {
		return
	}
	if !errors.Is(err, appErrors.ErrQuotaExceeded) {
		s.logger.Warn("schedule cache write failed", zap.String("key", key), zap.Error(err))
		return
	}

	evicted := s.EvictStale(ctx)
	if err := setJSON(ctx, s.kv, key, entry); err != nil {
		s.logger.Warn("schedule cache write failed after eviction",
			zap.String("key", key), zap.Int("evicted", evicted), zap.Error(err))
	}
}

// EvictStale deletes persisted schedules older than the max age or
// unreadable, and returns how many were removed.
func (s *ScheduleService) EvictStale(ctx context.Context) int {
	if s.kv == nil {
		return 0
	}
	keys, err := s.kv.Keys(ctx, schedulePrefix)
	if err != nil {
		s.logger.Warn("list schedule cache failed", zap.Error(err))
		return 0
	}
	removed := 0
	for _, key := range keys {
		var stamp struct {
			TS int64 `json:"_ts"`
		}
		if err := getJSON(ctx, s.kv, key, &stamp); err == nil && !s.expired(stamp.TS) {
			continue
		}
		if err := s.kv.Delete(ctx, key); err == nil {
			removed++
		}
	}
	return removed
}

func (s *ScheduleService) expired(ts int64) bool {
	return s.clock.Now().Sub(time.UnixMilli(ts)) > s.opts.MaxAge
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
