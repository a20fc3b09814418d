package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

// Clock is the single source of "now" for schedule arithmetic.
type Clock interface {
	Now() time.Time
}

// TimeAuthority returns the current time according to a remote source.
type TimeAuthority interface {
	Now(ctx context.Context, zone string) (time.Time, error)
}

const authorityZone = "Asia/Jakarta"

// ClockService corrects the local clock by an offset measured against a
// remote authority.
type ClockService struct {
	authority TimeAuthority
	timeout   time.Duration
	interval  time.Duration
	local     func() time.Time
	metrics   *MetricsService
	logger    *zap.Logger

	mu       sync.RWMutex
	offset   time.Duration
	syncedAt time.Time
}

// NewClockService builds a clock with a zero offset until the first Sync.
func NewClockService(authority TimeAuthority, timeout, interval time.Duration, metrics *MetricsService, logger *zap.Logger) *ClockService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClockService{
		authority: authority,
		timeout:   timeout,
		interval:  interval,
		local:     time.Now,
		metrics:   metrics,
		logger:    logger,
	}
}

// Sync measures and stores the offset. Any failure yields and stores a zero
// offset so the local clock is used as is.
func (s *ClockService) Sync(ctx context.Context) time.Duration {
	offset := s.measure(ctx)
	s.mu.Lock()
	s.offset = offset
	s.syncedAt = s.local()
	s.mu.Unlock()
	return offset
}

func (s *ClockService) measure(ctx context.Context) time.Duration {
	if s.authority == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	before := s.local()
	remote, err := s.authority.Now(ctx, authorityZone)
	after := s.local()
	if err != nil {
		s.metrics.ObserveUpstream("worldtime", OutcomeNetwork, after.Sub(before))
		s.logger.Warn("time sync failed, using local clock", zap.Error(err))
		return 0
	}
	s.metrics.ObserveUpstream("worldtime", OutcomeOK, after.Sub(before))

	latency := after.Sub(before) / 2
	offset := remote.Add(latency).Sub(after)
	s.logger.Debug("time synced", zap.Duration("offset", offset), zap.Duration("latency", latency))
	return offset
}

// Now returns the corrected time.
func (s *ClockService) Now() time.Time {
	s.mu.RLock()
	offset := s.offset
	s.mu.RUnlock()
	return s.local().Add(offset)
}

// Offset returns the last measured offset.
func (s *ClockService) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// Snapshot reports the corrected time with its offset.
func (s *ClockService) Snapshot() models.TimeSnapshot {
	s.mu.RLock()
	offset, syncedAt := s.offset, s.syncedAt
	s.mu.RUnlock()
	return models.TimeSnapshot{
		Now:      s.local().Add(offset),
		OffsetMs: offset.Milliseconds(),
		SyncedAt: syncedAt,
	}
}

// Start syncs immediately and then on every interval until ctx is done.
func (s *ClockService) Start(ctx context.Context) {
	s.Sync(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sync(ctx)
			}
		}
	}()
}

// SystemClock reads the local clock without correction.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
