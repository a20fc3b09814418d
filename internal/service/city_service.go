package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

const minCityKeyword = 2

// CitySearcher is the upstream city lookup.
type CitySearcher interface {
	SearchCities(ctx context.Context, keyword string) (*models.CitySearchResponse, error)
}

// CityService proxies city search with a shared response cache.
type CityService struct {
	upstream CitySearcher
	cache    *CacheService
	ttl      time.Duration
}

// NewCityService constructs the service. cache may be disabled but not nil.
func NewCityService(upstream CitySearcher, cache *CacheService, ttl time.Duration) *CityService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CityService{upstream: upstream, cache: cache, ttl: ttl}
}

// Search returns cities matching keyword. Keywords shorter than two
// characters return an empty result without calling the upstream.
func (s *CityService) Search(ctx context.Context, keyword string) (*models.CitySearchResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < minCityKeyword {
		return &models.CitySearchResponse{Status: true, Data: []models.Location{}}, nil
	}

	key := "cities:" + strings.ToLower(keyword)
	var out models.CitySearchResponse
	if _, err := s.cache.Remember(ctx, key, s.ttl, &out, func(ctx context.Context) (interface{}, error) {
		return s.upstream.SearchCities(ctx, keyword)
	}); err != nil {
		return nil, appErrors.With(appErrors.ErrUpstreamDown, err)
	}
	if out.Data == nil {
		out.Data = []models.Location{}
	}
	return &out, nil
}
