package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

const selectedLocationKey = "selected_location"

// DefaultLocation is used until a location has been selected.
var DefaultLocation = models.Location{
	ID:     "58a2fc6ed39fd083f55d4182bf88826d",
	Lokasi: "KOTA JAKARTA",
	Daerah: "DKI JAKARTA",
}

// LocationService holds the selected location and persists it best effort.
type LocationService struct {
	kv       KVStore
	cities   CitySearcher
	fallback models.Location
	logger   *zap.Logger

	mu      sync.Mutex
	current *models.LocationState
}

// NewLocationService constructs the service. kv and cities may be nil; an
// empty fallback means DefaultLocation.
func NewLocationService(kv KVStore, cities CitySearcher, fallback models.Location, logger *zap.Logger) *LocationService {
	if fallback.ID == "" {
		fallback = DefaultLocation
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{kv: kv, cities: cities, fallback: fallback, logger: logger}
}

// Current returns the selected location, loading the persisted one on first
// use.
func (s *LocationService) Current(ctx context.Context) models.LocationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return *s.current
	}

	loc := s.fallback
	if s.kv != nil {
		var stored models.Location
		err := getJSON(ctx, s.kv, selectedLocationKey, &stored)
		switch {
		case err == nil && strings.TrimSpace(stored.ID) != "":
			loc = stored
		case err != nil && !errors.Is(err, appErrors.ErrCacheMiss):
			s.logger.Warn("selected location unreadable", zap.Error(err))
		}
	}
	state := stateFor(loc)
	s.current = &state
	return state
}

// Select makes loc the current location.
func (s *LocationService) Select(ctx context.Context, loc models.Location) (models.LocationState, error) {
	loc.ID = strings.TrimSpace(loc.ID)
	if loc.ID == "" {
		return models.LocationState{}, appErrors.Clone(appErrors.ErrValidation, "city id is required")
	}
	state := stateFor(loc)

	s.mu.Lock()
	s.current = &state
	s.mu.Unlock()

	if s.kv != nil {
		if err := setJSON(ctx, s.kv, selectedLocationKey, loc); err != nil {
			s.logger.Warn("selected location not persisted", zap.String("city_id", loc.ID), zap.Error(err))
		}
	}
	return state, nil
}

// SelectByID selects a city known only by its upstream id. City search is by
// name, so the name and province come from the city's schedule for the month
// of at.
func (s *LocationService) SelectByID(ctx context.Context, id string, months MonthSource, at time.Time) (models.LocationState, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.LocationState{}, appErrors.Clone(appErrors.ErrValidation, "city id is required")
	}
	resp, err := months.Month(ctx, id, at.Year(), int(at.Month()))
	if err != nil {
		return models.LocationState{}, fmt.Errorf("resolve city %s: %w", id, err)
	}
	if resp == nil || resp.Data == nil {
		return models.LocationState{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("kota %s tidak ditemukan", id))
	}
	return s.Select(ctx, models.Location{ID: id, Lokasi: resp.Data.Lokasi, Daerah: resp.Data.Daerah})
}

// Detect selects the upstream city matching the capital nearest to fix.
func (s *LocationService) Detect(ctx context.Context, fix models.GeoFix) (models.LocationState, error) {
	if s.cities == nil {
		return models.LocationState{}, appErrors.Clone(appErrors.ErrUnsupported, "city search is not configured")
	}
	capital := nearestCapital(fix.Coordinates())

	resp, err := s.cities.SearchCities(ctx, capital.Name)
	if err != nil {
		return models.LocationState{}, fmt.Errorf("search %s: %w", capital.Name, err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return models.LocationState{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("kota %s tidak ditemukan", capital.Name))
	}

	match := resp.Data[0]
	for _, loc := range resp.Data {
		if normalizeCityName(loc.Lokasi) == capital.Name && strings.HasPrefix(strings.ToUpper(loc.Lokasi), "KOTA ") {
			match = loc
			break
		}
	}
	if match.Daerah == "" {
		match.Daerah = capital.Province
	}
	return s.Select(ctx, match)
}

func stateFor(loc models.Location) models.LocationState {
	return models.LocationState{Location: loc, Timezone: ResolveTimezone(loc.Daerah)}
}
