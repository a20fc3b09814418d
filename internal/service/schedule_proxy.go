package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// ScheduleProxy serves month schedules through the edge response cache.
type ScheduleProxy struct {
	months MonthSource
	cache  *CacheService
	ttl    time.Duration
}

// NewScheduleProxy constructs the proxy. cache may be disabled but not nil.
func NewScheduleProxy(months MonthSource, cache *CacheService, ttl time.Duration) *ScheduleProxy {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ScheduleProxy{months: months, cache: cache, ttl: ttl}
}

// ProxyScheduleKey is the edge cache key of a city month.
func ProxyScheduleKey(cityID string, year, month int) string {
	return fmt.Sprintf("schedule:%s:%d:%d", cityID, year, month)
}

// Month returns the month schedule and whether it was served from cache.
// Untyped upstream failures surface as ErrUpstreamDown.
func (p *ScheduleProxy) Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, bool, error) {
	var out models.ScheduleResponse
	hit, err := p.cache.Remember(ctx, ProxyScheduleKey(cityID, year, month), p.ttl, &out, func(ctx context.Context) (interface{}, error) {
		return p.months.Month(ctx, cityID, year, month)
	})
	if err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) {
			err = appErrors.With(appErrors.ErrUpstreamDown, err)
		}
		return nil, false, err
	}
	return &out, hit, nil
}

// Warm loads the month into the cache unless it is already there.
func (p *ScheduleProxy) Warm(ctx context.Context, cityID string, year, month int) (bool, error) {
	var existing models.ScheduleResponse
	if hit, _ := p.cache.Get(ctx, ProxyScheduleKey(cityID, year, month), &existing); hit {
		return false, nil
	}
	if _, _, err := p.Month(ctx, cityID, year, month); err != nil {
		return false, err
	}
	return true, nil
}

// GetSchedule returns the cached month's days, so the proxy can stand in for
// the schedule service as a ScheduleSource.
func (p *ScheduleProxy) GetSchedule(ctx context.Context, cityID string, year, month int) ([]models.ScheduleDay, error) {
	resp, _, err := p.Month(ctx, cityID, year, month)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, appErrors.With(appErrors.ErrScheduleUpstream, fmt.Errorf("empty schedule for %s %d-%02d", cityID, year, month))
	}
	return resp.Data.Jadwal, nil
}

// Months exposes the proxy as a MonthSource.
func (p *ScheduleProxy) Months() MonthSource {
	return proxyMonths{p}
}

type proxyMonths struct{ p *ScheduleProxy }

func (m proxyMonths) Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, error) {
	resp, _, err := m.p.Month(ctx, cityID, year, month)
	return resp, err
}
