package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// NextPrayerService answers one-shot next-prayer queries against the
// corrected clock.
type NextPrayerService struct {
	source ScheduleSource
	clock  Clock
	logger *zap.Logger
}

// NewNextPrayerService constructs the service.
func NewNextPrayerService(source ScheduleSource, clock Clock, logger *zap.Logger) *NextPrayerService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NextPrayerService{source: source, clock: clock, logger: logger}
}

// Next loads the current month, plus the next one on its last day, and
// returns the upcoming prayer for the city in tz.
func (s *NextPrayerService) Next(ctx context.Context, cityID string, tz models.Timezone) (*models.NextPrayerResult, error) {
	now := s.clock.Now()
	local := toLocal(now, tz.UTCOffsetHours)

	days, err := s.source.GetSchedule(ctx, cityID, local.Year(), int(local.Month()))
	if err != nil {
		return nil, err
	}
	if tomorrow := local.AddDate(0, 0, 1); tomorrow.Month() != local.Month() {
		next, err := s.source.GetSchedule(ctx, cityID, tomorrow.Year(), int(tomorrow.Month()))
		if err != nil {
			s.logger.Warn("next month schedule unavailable", zap.String("city_id", cityID), zap.Error(err))
		} else {
			days = mergeDays(days, next)
		}
	}

	result := ComputeNext(days, now, tz.UTCOffsetHours)
	if result == nil {
		return nil, appErrors.ErrScheduleUnavailable
	}
	return result, nil
}
