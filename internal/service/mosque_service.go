package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/repository"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// OverpassClient runs one query against one interpreter endpoint.
type OverpassClient interface {
	Query(ctx context.Context, endpoint, query string) (*models.OverpassResponse, error)
}

// MosqueOptions configures the Overpass search.
type MosqueOptions struct {
	Endpoints      []string
	AttemptTimeout time.Duration
	Limit          int
}

// MosqueService finds mosques around a point through Overpass, failing over
// across endpoints in order.
type MosqueService struct {
	client  OverpassClient
	opts    MosqueOptions
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMosqueService constructs the service.
func NewMosqueService(client OverpassClient, opts MosqueOptions, metrics *MetricsService, logger *zap.Logger) *MosqueService {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MosqueService{client: client, opts: opts, metrics: metrics, logger: logger}
}

// Nearby returns up to Limit mosques within radius meters, nearest first.
// It fails with ErrMosqueNetwork only after every endpoint failed.
func (s *MosqueService) Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Mosque, error) {
	if len(s.opts.Endpoints) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMosqueNetwork, "no overpass endpoint configured")
	}
	query := BuildOverpassQuery(lat, lng, radius)

	var lastErr error
	for i, endpoint := range s.opts.Endpoints {
		if i > 0 {
			s.metrics.RecordFailover(s.opts.Endpoints[i-1])
		}
		resp, err := s.attempt(ctx, endpoint, query)
		if err == nil {
			return ParseOverpassResponse(resp, models.Coordinates{Lat: lat, Lng: lng}, s.opts.Limit), nil
		}
		lastErr = err
		s.logger.Warn("overpass endpoint failed", zap.String("endpoint", endpoint), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, appErrors.With(appErrors.ErrMosqueNetwork, fmt.Errorf("all overpass endpoints failed: %w", lastErr))
}

func (s *MosqueService) attempt(ctx context.Context, endpoint, query string) (*models.OverpassResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Query(attemptCtx, endpoint, query)
	elapsed := time.Since(start)

	var status *repository.StatusError
	switch {
	case err == nil:
		s.metrics.ObserveUpstream("overpass", OutcomeOK, elapsed)
	case errors.As(err, &status):
		s.metrics.ObserveUpstream("overpass", OutcomeStatus, elapsed)
	default:
		s.metrics.ObserveUpstream("overpass", OutcomeNetwork, elapsed)
	}
	return resp, err
}

// BuildOverpassQuery unions the three mosque tag patterns around a point.
func BuildOverpassQuery(lat, lng float64, radius int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radius, formatCoord(lat), formatCoord(lng))
	return "[out:json][timeout:15];(" +
		`nwr["amenity"="place_of_worship"]["religion"="muslim"]` + around + ";" +
		`nwr["building"="mosque"]` + around + ";" +
		`nwr["place_of_worship"="musalla"]` + around + ";" +
		");out center body qt;"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseOverpassResponse converts raw elements to mosques sorted by distance
// from origin. Elements repeated across union branches are kept once and
// elements without a position are dropped.
func ParseOverpassResponse(resp *models.OverpassResponse, origin models.Coordinates, limit int) []models.Mosque {
	if resp == nil || len(resp.Elements) == 0 {
		return []models.Mosque{}
	}

	seen := make(map[string]struct{}, len(resp.Elements))
	mosques := make([]models.Mosque, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		id := el.Type + "/" + strconv.FormatInt(el.ID, 10)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		center, ok := elementCenter(el)
		if !ok {
			continue
		}
		mosques = append(mosques, models.Mosque{
			ID:       id,
			Name:     mosqueName(el.Tags),
			Lat:      center.Lat,
			Lng:      center.Lng,
			Distance: HaversineDistance(origin, center),
			Address:  mosqueAddress(el.Tags),
		})
	}

	sort.SliceStable(mosques, func(i, j int) bool { return mosques[i].Distance < mosques[j].Distance })
	if limit > 0 && len(mosques) > limit {
		mosques = mosques[:limit]
	}
	return mosques
}

func elementCenter(el models.OverpassElement) (models.Coordinates, bool) {
	if el.Type == "node" && el.Lat != nil && el.Lon != nil {
		return models.Coordinates{Lat: *el.Lat, Lng: *el.Lon}, true
	}
	if el.Center != nil {
		return models.Coordinates{Lat: el.Center.Lat, Lng: el.Center.Lon}, true
	}
	return models.Coordinates{}, false
}

func mosqueName(tags map[string]string) string {
	for _, key := range []string{"name", "name:id", "name:en", "old_name"} {
		name := tags[key]
		if name == "" {
			continue
		}
		if name == "Masjid" {
			if addr := mosqueAddress(tags); addr != "" {
				return "Masjid (" + addr + ")"
			}
		}
		return name
	}
	if tags["place_of_worship"] == "musalla" {
		return "Musholla"
	}
	return "Masjid"
}

func mosqueAddress(tags map[string]string) string {
	if street := tags["addr:street"]; street != "" {
		return street
	}
	return tags["addr:full"]
}
