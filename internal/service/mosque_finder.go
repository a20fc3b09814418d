package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/repository"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

const (
	mosquePrefix        = "mosques_"
	refetchDistance     = 200.0
	accuracyImproveRate = 0.5
)

// MosqueSource lists mosques near a point. Satisfied by MosqueService and
// repository.GatewayRepository.
type MosqueSource interface {
	Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Mosque, error)
}

// MosqueFinderOptions configures caching and connectivity checks. Online may
// be nil, in which case the finder assumes connectivity.
type MosqueFinderOptions struct {
	CacheTTL time.Duration
	Online   func(ctx context.Context) bool
}

type cachedMosques struct {
	Data []models.Mosque `json:"data"`
	TS   int64           `json:"ts"`
}

type mosqueFetch struct {
	position models.MosquePosition
	radius   int
}

// MosqueFinder applies the client-side search policy: accuracy-derived radius,
// a short-lived persisted cache and suppression of redundant refetches.
type MosqueFinder struct {
	source MosqueSource
	kv     KVStore
	opts   MosqueFinderOptions
	clock  Clock
	logger *zap.Logger

	mu   sync.Mutex
	last *mosqueFetch
}

// NewMosqueFinder constructs the finder. kv may be nil to disable caching.
func NewMosqueFinder(source MosqueSource, kv KVStore, opts MosqueFinderOptions, clock Clock, logger *zap.Logger) *MosqueFinder {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MosqueFinder{source: source, kv: kv, opts: opts, clock: clock, logger: logger}
}

// MosqueCacheKey snaps coordinates to two decimals and appends the radius.
func MosqueCacheKey(c models.Coordinates, radius int) string {
	return fmt.Sprintf("%s%.2f_%.2f_r%d", mosquePrefix, c.Lat, c.Lng, radius)
}

// Search looks up mosques around coords. A nil accuracy marks a city-level
// estimate. An empty result is returned together with ErrNoMosques so callers
// can tell it from failures, which surface as ErrOffline, ErrMosqueServer or
// ErrMosqueNetwork.
func (f *MosqueFinder) Search(ctx context.Context, coords models.Coordinates, accuracy *float64, forceRefresh bool) (*models.MosqueSearchResult, error) {
	kind := models.PositionGPS
	if accuracy == nil {
		kind = models.PositionCity
	}
	return f.search(ctx, models.MosquePosition{Coordinates: coords, Accuracy: accuracy, Kind: kind}, forceRefresh)
}

// Update searches for a new position unless it is too close to the last
// successful search to matter. Moving from a city estimate to a GPS fix
// always fetches fresh data. fetched is false when the call was suppressed.
func (f *MosqueFinder) Update(ctx context.Context, pos models.MosquePosition) (result *models.MosqueSearchResult, fetched bool, err error) {
	f.mu.Lock()
	last := f.last
	f.mu.Unlock()

	switchingToGPS := last != nil && pos.Kind == models.PositionGPS && last.position.Kind != models.PositionGPS
	if last != nil && !switchingToGPS && !movedEnough(last, pos) {
		return nil, false, nil
	}

	result, err = f.search(ctx, pos, switchingToGPS)
	return result, true, err
}

func movedEnough(last *mosqueFetch, pos models.MosquePosition) bool {
	if HaversineDistance(last.position.Coordinates, pos.Coordinates) >= refetchDistance {
		return true
	}
	prev := last.position.Accuracy
	if prev != nil && pos.Accuracy != nil && *pos.Accuracy < *prev*accuracyImproveRate {
		return true
	}
	return SearchRadius(pos.Accuracy) != last.radius
}

func (f *MosqueFinder) search(ctx context.Context, pos models.MosquePosition, forceRefresh bool) (*models.MosqueSearchResult, error) {
	if f.opts.Online != nil && !f.opts.Online(ctx) {
		return nil, appErrors.ErrOffline
	}

	radius := SearchRadius(pos.Accuracy)
	key := MosqueCacheKey(pos.Coordinates, radius)

	if !forceRefresh {
		if cached, ok := f.loadCached(ctx, key); ok {
			f.remember(pos, radius)
			result := &models.MosqueSearchResult{Mosques: cached.Data, Radius: radius, FromCache: true, FetchedAt: time.UnixMilli(cached.TS).UTC()}
			return result, emptyResultError(result)
		}
	}

	mosques, err := f.source.Nearby(ctx, pos.Coordinates.Lat, pos.Coordinates.Lng, radius)
	if err != nil {
		return nil, classifyMosqueError(err)
	}
	if mosques == nil {
		mosques = []models.Mosque{}
	}

	now := f.clock.Now()
	if f.kv != nil {
		if err := setJSON(ctx, f.kv, key, cachedMosques{Data: mosques, TS: now.UnixMilli()}); err != nil {
			f.logger.Debug("mosque cache write skipped", zap.String("key", key), zap.Error(err))
		}
	}
	f.remember(pos, radius)

	result := &models.MosqueSearchResult{Mosques: mosques, Radius: radius, FetchedAt: now.UTC()}
	return result, emptyResultError(result)
}

func (f *MosqueFinder) loadCached(ctx context.Context, key string) (*cachedMosques, bool) {
	if f.kv == nil {
		return nil, false
	}
	var entry cachedMosques
	if err := getJSON(ctx, f.kv, key, &entry); err != nil {
		return nil, false
	}
	if f.clock.Now().Sub(time.UnixMilli(entry.TS)) > f.opts.CacheTTL {
		_ = f.kv.Delete(ctx, key)
		return nil, false
	}
	if entry.Data == nil {
		entry.Data = []models.Mosque{}
	}
	return &entry, true
}

func (f *MosqueFinder) remember(pos models.MosquePosition, radius int) {
	f.mu.Lock()
	f.last = &mosqueFetch{position: pos, radius: radius}
	f.mu.Unlock()
}

func emptyResultError(result *models.MosqueSearchResult) error {
	if len(result.Mosques) > 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrNoMosques,
		fmt.Sprintf("Tidak ada masjid ditemukan dalam radius %s. Coba perbesar radius atau pindah lokasi.", FormatRadius(result.Radius)))
}

func classifyMosqueError(err error) error {
	var status *repository.StatusError
	switch {
	case errors.Is(err, appErrors.ErrMosqueServer), errors.Is(err, appErrors.ErrMosqueNetwork), errors.Is(err, appErrors.ErrOffline):
		return err
	case errors.As(err, &status):
		return appErrors.With(appErrors.Clone(appErrors.ErrMosqueServer, fmt.Sprintf("Server error (%d). Coba lagi nanti.", status.Code)), err)
	default:
		return appErrors.With(appErrors.ErrMosqueNetwork, err)
	}
}
