package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

// OverpassRepository posts queries to Overpass interpreter endpoints.
type OverpassRepository struct {
	client *http.Client
}

// NewOverpassRepository builds the client. Per-attempt deadlines come from
// the caller's context.
func NewOverpassRepository(client *http.Client) *OverpassRepository {
	if client == nil {
		client = defaultClient(30 * time.Second)
	}
	return &OverpassRepository{client: client}
}

// Query sends query to a single endpoint as a form-encoded POST.
func (r *OverpassRepository) Query(ctx context.Context, endpoint, query string) (*models.OverpassResponse, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "jadwal-sholat/1.0")

	var resp models.OverpassResponse
	if err := doJSON(ctx, r.client, hostOf(endpoint), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
