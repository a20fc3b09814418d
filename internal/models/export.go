package models

import "time"

// ExportFormat enumerates downloadable schedule formats.
type ExportFormat string

const (
	ExportPDF ExportFormat = "pdf"
	ExportPNG ExportFormat = "png"
	ExportCSV ExportFormat = "csv"
)

// CustomHeader is the optional mosque letterhead printed on exports.
type CustomHeader struct {
	MosqueName string `json:"mosque_name"`
	Address    string `json:"address"`
	Contact    string `json:"contact"`
}

// ExportRequest describes one month export.
type ExportRequest struct {
	CityID   string        `json:"city_id"`
	Province string        `json:"province"`
	Year     int           `json:"year"`
	Month    int           `json:"month"`
	Format   ExportFormat  `json:"format"`
	Header   *CustomHeader `json:"header,omitempty"`
}

// ExportResult points at a generated file.
type ExportResult struct {
	ID          string       `json:"id"`
	Format      ExportFormat `json:"format"`
	Filename    string       `json:"filename"`
	DownloadURL string       `json:"download_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}
