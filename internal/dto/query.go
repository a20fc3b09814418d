package dto

import "github.com/noah-isme/jadwal-sholat/internal/models"

// Default and bounds for schedule and mosque queries.
const (
	MinYear       = 2000
	MaxYear       = 2100
	DefaultRadius = 2000
)

// CityQuery is the city search query string.
type CityQuery struct {
	Q string `form:"q" validate:"max=64"`
}

// ScheduleQuery selects a city month. Year and month are clamped, not
// rejected, once present.
type ScheduleQuery struct {
	CityID string `form:"city_id" validate:"required,cityid"`
	Year   int    `form:"year" validate:"required"`
	Month  int    `form:"month" validate:"required"`
}

// Clamp pins year and month into the supported range.
func (q *ScheduleQuery) Clamp() {
	q.Year = clamp(q.Year, MinYear, MaxYear)
	q.Month = clamp(q.Month, 1, 12)
}

// MosqueQuery is a point within Indonesia plus an optional radius in metres.
type MosqueQuery struct {
	Lat    *float64 `form:"lat" validate:"required,min=-11,max=6"`
	Lng    *float64 `form:"lng" validate:"required,min=95,max=141"`
	Radius *int     `form:"radius" validate:"omitempty,min=100,max=10000"`
}

// RadiusOrDefault returns the requested radius or 2 km.
func (q MosqueQuery) RadiusOrDefault() int {
	if q.Radius == nil {
		return DefaultRadius
	}
	return *q.Radius
}

// LocationQuery identifies a city and the province used for its timezone.
type LocationQuery struct {
	CityID   string `form:"city_id" validate:"required,cityid"`
	Province string `form:"province" validate:"max=64"`
}

// ExportHeader is the optional letterhead of an export request.
type ExportHeader struct {
	MosqueName string `json:"mosque_name" validate:"max=120"`
	Address    string `json:"address" validate:"max=200"`
	Contact    string `json:"contact" validate:"max=120"`
}

// ExportRequest is the body of POST /exports.
type ExportRequest struct {
	CityID   string        `json:"city_id" validate:"required,cityid"`
	Province string        `json:"province" validate:"max=64"`
	Year     int           `json:"year" validate:"required,min=2000,max=2100"`
	Month    int           `json:"month" validate:"required,min=1,max=12"`
	Format   string        `json:"format" validate:"required,oneof=pdf png csv"`
	Header   *ExportHeader `json:"header"`
}

// Model converts the body into the service request.
func (r ExportRequest) Model() models.ExportRequest {
	out := models.ExportRequest{
		CityID:   r.CityID,
		Province: r.Province,
		Year:     r.Year,
		Month:    r.Month,
		Format:   models.ExportFormat(r.Format),
	}
	if r.Header != nil {
		out.Header = &models.CustomHeader{
			MosqueName: r.Header.MosqueName,
			Address:    r.Header.Address,
			Contact:    r.Header.Contact,
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NextPrayerResponse is the body of GET /next-prayer.
type NextPrayerResponse struct {
	Location   models.LocationState     `json:"location"`
	Next       *models.NextPrayerResult `json:"next"`
	LocalDate  string                   `json:"local_date"`
	Hijri      string                   `json:"hijri"`
	ServerTime models.TimeSnapshot      `json:"server_time"`
}
