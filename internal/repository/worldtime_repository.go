package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const worldTimeUpstream = "worldtime"

// WorldTimeRepository reads the current time from a worldtimeapi-compatible
// service.
type WorldTimeRepository struct {
	baseURL string
	client  *http.Client
}

// NewWorldTimeRepository builds the client. A nil client falls back to a plain
// http.Client with a 5s timeout.
func NewWorldTimeRepository(baseURL string, client *http.Client) *WorldTimeRepository {
	if client == nil {
		client = defaultClient(5 * time.Second)
	}
	return &WorldTimeRepository{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Now returns the authority's current time for zone, e.g. "Asia/Jakarta".
func (r *WorldTimeRepository) Now(ctx context.Context, zone string) (time.Time, error) {
	segments := strings.Split(zone, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	req, err := http.NewRequest(http.MethodGet, r.baseURL+"/timezone/"+strings.Join(segments, "/"), nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build time request: %w", err)
	}

	var payload struct {
		Datetime string `json:"datetime"`
	}
	if err := doJSON(ctx, r.client, worldTimeUpstream, req, &payload); err != nil {
		return time.Time{}, err
	}
	if payload.Datetime == "" {
		return time.Time{}, fmt.Errorf("%s: empty datetime", worldTimeUpstream)
	}

	parsed, err := time.Parse(time.RFC3339Nano, payload.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: parse datetime: %w", worldTimeUpstream, err)
	}
	return parsed, nil
}
