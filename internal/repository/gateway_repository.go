package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

const gatewayUpstream = "gateway"

// GatewayRepository consumes a running api-gateway the way the web client
// does.
type GatewayRepository struct {
	baseURL string
	client  *http.Client
}

// NewGatewayRepository builds the client against the gateway's API prefix,
// e.g. "http://localhost:8080/api".
func NewGatewayRepository(baseURL string, client *http.Client) *GatewayRepository {
	if client == nil {
		client = defaultClient(15 * time.Second)
	}
	return &GatewayRepository{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type gatewayEnvelope[T any] struct {
	Data  T                `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// Nearby lists mosques around a point. A non-2xx gateway reply maps to
// ErrMosqueServer carrying the status code; transport failures map to
// ErrMosqueNetwork.
func (r *GatewayRepository) Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Mosque, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("radius", strconv.Itoa(radius))
	req, err := http.NewRequest(http.MethodGet, r.baseURL+"/mosques?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mosque request: %w", err)
	}

	var env gatewayEnvelope[[]models.Mosque]
	if err := doJSON(ctx, r.client, gatewayUpstream, req, &env); err != nil {
		var status *StatusError
		if errors.As(err, &status) {
			return nil, appErrors.With(
				appErrors.Clone(appErrors.ErrMosqueServer, fmt.Sprintf("Server error (%d). Coba tekan Refresh.", status.Code)),
				err,
			)
		}
		return nil, appErrors.With(appErrors.ErrMosqueNetwork, err)
	}
	return env.Data, nil
}
