package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

func TestLocationServiceDefaultsToJakarta(t *testing.T) {
	svc := NewLocationService(storage.NewMemoryKV(0), nil, models.Location{}, nil)

	state := svc.Current(context.Background())
	assert.Equal(t, DefaultLocation, state.Location)
	assert.Equal(t, models.TimezoneWIB, state.Timezone.Label)
}

func TestLocationServiceSelectPersists(t *testing.T) {
	kv := storage.NewMemoryKV(0)
	ctx := context.Background()
	svc := NewLocationService(kv, nil, models.Location{}, nil)

	makassar := models.Location{ID: "7371", Lokasi: "KOTA MAKASSAR", Daerah: "SULAWESI SELATAN"}
	state, err := svc.Select(ctx, makassar)
	require.NoError(t, err)
	assert.Equal(t, 8, state.Timezone.UTCOffsetHours)
	assert.Equal(t, state, svc.Current(ctx))

	reloaded := NewLocationService(kv, nil, models.Location{}, nil)
	assert.Equal(t, makassar, reloaded.Current(ctx).Location)

	_, err = svc.Select(ctx, models.Location{ID: "  "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLocationServiceSelectSurvivesStorageFailure(t *testing.T) {
	kv := storage.NewMemoryKV(10)
	svc := NewLocationService(kv, nil, models.Location{}, nil)

	state, err := svc.Select(context.Background(), models.Location{ID: "7371", Lokasi: "KOTA MAKASSAR", Daerah: "SULAWESI SELATAN"})
	require.NoError(t, err)
	assert.Equal(t, "7371", state.Location.ID)
}

func TestLocationServiceDetect(t *testing.T) {
	cities := &fakeCitySearcher{resp: &models.CitySearchResponse{Status: true, Data: []models.Location{
		{ID: "3573", Lokasi: "KAB. MALANG", Daerah: "JAWA TIMUR"},
		{ID: "3507", Lokasi: "KOTA MALANG", Daerah: "JAWA TIMUR"},
	}}}
	svc := NewLocationService(nil, cities, models.Location{}, nil)

	state, err := svc.Detect(context.Background(), models.GeoFix{Lat: -7.98, Lng: 112.63, Accuracy: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"MALANG"}, cities.keywords)
	assert.Equal(t, "3507", state.Location.ID)
	assert.Equal(t, models.TimezoneWIB, state.Timezone.Label)
}

func TestLocationServiceDetectNoMatch(t *testing.T) {
	cities := &fakeCitySearcher{resp: &models.CitySearchResponse{Status: true}}
	svc := NewLocationService(nil, cities, models.Location{}, nil)

	_, err := svc.Detect(context.Background(), models.GeoFix{Lat: -8.67, Lng: 115.21})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, []string{"DENPASAR"}, cities.keywords)
}

func TestCityCoordinates(t *testing.T) {
	c, ok := CityCoordinates("KOTA JAKARTA")
	require.True(t, ok)
	assert.InDelta(t, -6.2088, c.Lat, 1e-9)

	_, ok = CityCoordinates("kab. bogor")
	assert.True(t, ok)

	_, ok = CityCoordinates("GOTHAM")
	assert.False(t, ok)
}

type staticMonths struct {
	data  *models.ScheduleData
	err   error
	asked []string
}

func (m *staticMonths) Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, error) {
	m.asked = append(m.asked, ScheduleKey(cityID, year, month))
	if m.err != nil {
		return nil, m.err
	}
	return &models.ScheduleResponse{Status: true, Data: m.data}, nil
}

func TestLocationServiceSelectByIDTakesProvinceFromSchedule(t *testing.T) {
	kv := storage.NewMemoryKV(0)
	ctx := context.Background()
	svc := NewLocationService(kv, nil, models.Location{}, nil)
	months := &staticMonths{data: &models.ScheduleData{ID: "7371", Lokasi: "KOTA MAKASSAR", Daerah: "SULAWESI SELATAN"}}

	state, err := svc.SelectByID(ctx, " 7371 ", months, time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{ScheduleKey("7371", 2025, 4)}, months.asked)
	assert.Equal(t, models.Location{ID: "7371", Lokasi: "KOTA MAKASSAR", Daerah: "SULAWESI SELATAN"}, state.Location)
	assert.Equal(t, models.TimezoneWITA, state.Timezone.Label)
	assert.Equal(t, 8, state.Timezone.UTCOffsetHours)
	assert.Equal(t, state, svc.Current(ctx))
}

func TestLocationServiceSelectByIDFailure(t *testing.T) {
	svc := NewLocationService(storage.NewMemoryKV(0), nil, models.Location{}, nil)
	ctx := context.Background()
	at := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)

	_, err := svc.SelectByID(ctx, "7371", &staticMonths{err: errors.New("upstream down")}, at)
	assert.Error(t, err)
	assert.Equal(t, DefaultLocation, svc.Current(ctx).Location)

	_, err = svc.SelectByID(ctx, "", &staticMonths{}, at)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
