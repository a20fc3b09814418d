package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

const myQuranUpstream = "myquran"

// MyQuranRepository talks to the myQuran v3 prayer schedule API.
type MyQuranRepository struct {
	baseURL string
	client  *http.Client
}

// NewMyQuranRepository builds the client. A nil client falls back to a plain
// http.Client with a 15s timeout.
func NewMyQuranRepository(baseURL string, client *http.Client) *MyQuranRepository {
	if client == nil {
		client = defaultClient(15 * time.Second)
	}
	return &MyQuranRepository{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Day fetches a single day's schedule. The returned response may carry
// Status false with the upstream error text.
func (r *MyQuranRepository) Day(ctx context.Context, cityID string, date time.Time) (*models.ScheduleResponse, error) {
	day := date.Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/jadwal/%s/%s", r.baseURL, url.PathEscape(cityID), day)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build schedule request: %w", err)
	}

	var raw rawScheduleResponse
	if err := doJSON(ctx, r.client, myQuranUpstream, req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(day)
}

// SearchCities looks up cities by keyword.
func (r *MyQuranRepository) SearchCities(ctx context.Context, keyword string) (*models.CitySearchResponse, error) {
	endpoint := fmt.Sprintf("%s/kota/cari/%s", r.baseURL, url.PathEscape(keyword))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build city search request: %w", err)
	}

	var raw struct {
		Status bool          `json:"status"`
		Data   []rawLocation `json:"data"`
	}
	if err := doJSON(ctx, r.client, myQuranUpstream, req, &raw); err != nil {
		return nil, err
	}

	out := &models.CitySearchResponse{Status: raw.Status, Data: make([]models.Location, 0, len(raw.Data))}
	for _, loc := range raw.Data {
		out.Data = append(out.Data, loc.location())
	}
	return out, nil
}

// rawLocation accepts both the v2 (lokasi/daerah) and v3 (kabko/prov) field
// names and numeric or string ids.
type rawLocation struct {
	ID     json.RawMessage `json:"id"`
	Lokasi string          `json:"lokasi"`
	Kabko  string          `json:"kabko"`
	Daerah string          `json:"daerah"`
	Prov   string          `json:"prov"`
}

func (l rawLocation) location() models.Location {
	loc := models.Location{ID: rawID(l.ID), Lokasi: l.Lokasi, Daerah: l.Daerah}
	if loc.Lokasi == "" {
		loc.Lokasi = l.Kabko
	}
	if loc.Daerah == "" {
		loc.Daerah = l.Prov
	}
	return loc
}

func rawID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

type rawScheduleResponse struct {
	Status  bool   `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Data    *struct {
		rawLocation
		Jadwal json.RawMessage `json:"jadwal"`
	} `json:"data"`
}

func (r rawScheduleResponse) normalize(requested string) (*models.ScheduleResponse, error) {
	out := &models.ScheduleResponse{Status: r.Status, Error: r.Error}
	if !r.Status {
		if out.Error == "" {
			out.Error = r.Message
		}
		return out, nil
	}
	if r.Data == nil {
		return out, nil
	}

	days, err := decodeJadwal(r.Data.Jadwal, requested)
	if err != nil {
		return nil, err
	}
	loc := r.Data.location()
	out.Data = &models.ScheduleData{ID: loc.ID, Lokasi: loc.Lokasi, Daerah: loc.Daerah, Jadwal: days}
	return out, nil
}

// decodeJadwal accepts a list of days, a single day object, or an object
// keyed by ISO date.
func decodeJadwal(raw json.RawMessage, requested string) ([]models.ScheduleDay, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	if raw[0] == '[' {
		var days []models.ScheduleDay
		if err := json.Unmarshal(raw, &days); err != nil {
			return nil, fmt.Errorf("decode jadwal list: %w", err)
		}
		return days, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode jadwal: %w", err)
	}

	if _, single := fields["subuh"]; single {
		var day models.ScheduleDay
		if err := json.Unmarshal(raw, &day); err != nil {
			return nil, fmt.Errorf("decode jadwal day: %w", err)
		}
		if day.Date == "" {
			day.Date = requested
		}
		return []models.ScheduleDay{day}, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([]models.ScheduleDay, 0, len(keys))
	for _, k := range keys {
		var day models.ScheduleDay
		if err := json.Unmarshal(fields[k], &day); err != nil {
			return nil, fmt.Errorf("decode jadwal %s: %w", k, err)
		}
		if day.Date == "" {
			day.Date = k
		}
		days = append(days, day)
	}
	return days, nil
}
