package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
	"github.com/noah-isme/jadwal-sholat/pkg/export"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

const maxHeaderField = 120

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthSource supplies a full month response with location details.
type MonthSource interface {
	Month(ctx context.Context, cityID string, year, month int) (*models.ScheduleResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders month schedules into shareable files behind signed,
// expiring download links.
type ExportService struct {
	schedules MonthSource
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ExportFormat]documentRenderer
	sanitizer *bluemonday.Policy
	clock     Clock
	cfg       ExportConfig
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV, PDF and PNG
// renderers.
func NewExportService(schedules MonthSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, clock Clock, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &ExportService{
		schedules: schedules,
		storage:   files,
		signer:    signer,
		renderers: map[models.ExportFormat]documentRenderer{
			models.ExportCSV: export.NewCSVExporter(),
			models.ExportPDF: export.NewPDFExporter(),
			models.ExportPNG: export.NewImageExporter(),
		},
		sanitizer: bluemonday.StrictPolicy(),
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Generate renders the requested month and stores it.
func (s *ExportService) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	renderer, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}
	if strings.TrimSpace(req.CityID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "city id is required")
	}
	if req.Year < 2000 || req.Year > 2100 || req.Month < 1 || req.Month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year or month out of range")
	}

	resp, err := s.schedules.Month(ctx, req.CityID, req.Year, req.Month)
	if err != nil {
		return nil, err
	}

	doc := s.buildDocument(resp.Data, req)
	payload, err := renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.Format, err)
	}

	id := uuid.NewString()
	name := fmt.Sprintf("jadwal-sholat-%s-%04d-%02d.%s", slugify(resp.Data.Lokasi), req.Year, req.Month, req.Format)
	relPath, err := s.storage.Save(path.Join(id, name), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule exported",
		zap.String("export_id", id), zap.String("city_id", req.CityID), zap.String("format", string(req.Format)), zap.Int("bytes", len(payload)))

	return &models.ExportResult{
		ID:          id,
		Format:      req.Format,
		Filename:    name,
		DownloadURL: fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveDownload validates token and opens the stored file. The caller
// closes the file.
func (s *ExportService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link expired")
	case err != nil:
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, "", err
	}
	return file, path.Base(relPath), nil
}

// Cleanup removes files older than the result TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

// StartCleanup runs Cleanup on every interval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup()
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

func (s *ExportService) buildDocument(data *models.ScheduleData, req models.ExportRequest) export.Document {
	tz := ResolveTimezone(firstNonEmpty(req.Province, data.Daerah))
	today := LocalDate(s.clock.Now(), tz.UTCOffsetHours)

	hijri := make([]string, 0, 2)
	for _, label := range HijriMonthsFor(req.Year, req.Month) {
		hijri = append(hijri, label.String())
	}

	doc := export.Document{
		Title:     "Jadwal Sholat " + titleCase(data.Lokasi),
		Subtitle:  fmt.Sprintf("%s %d / %s", indonesianMonths[req.Month-1], req.Year, strings.Join(hijri, " - ")),
		Headers:   []string{"Tanggal", "Hijriah", "Imsak", "Subuh", "Terbit", "Dhuha", "Dzuhur", "Ashar", "Maghrib", "Isya"},
		Rows:      make([][]string, 0, len(data.Jadwal)),
		Highlight: export.NoHighlight,
		Footer:    fmt.Sprintf("Waktu dalam %s. Sumber: Kemenag RI via myQuran.", tz.Label),
	}
	if req.Header != nil {
		for _, line := range []string{req.Header.MosqueName, req.Header.Address, req.Header.Contact} {
			if clean := s.sanitize(line); clean != "" {
				doc.Preamble = append(doc.Preamble, clean)
			}
		}
	}

	for i, day := range data.Jadwal {
		if day.Date == today {
			doc.Highlight = i
		}
		hijriDay := ""
		if d, err := time.Parse(dateLayout, day.Date); err == nil {
			h := HijriFromDate(d)
			hijriDay = fmt.Sprintf("%d %s", h.Day, h.MonthName)
		}
		doc.Rows = append(doc.Rows, []string{
			displayDate(day.Date), hijriDay,
			day.Imsak, day.Subuh, day.Terbit, day.Dhuha, day.Dzuhur, day.Ashar, day.Maghrib, day.Isya,
		})
	}
	return doc
}

// sanitize strips markup from user supplied header text and bounds its
// length.
func (s *ExportService) sanitize(raw string) string {
	clean := html.UnescapeString(s.sanitizer.Sanitize(raw))
	clean = strings.Join(strings.Fields(clean), " ")
	if utf8.RuneCountInString(clean) > maxHeaderField {
		clean = string([]rune(clean)[:maxHeaderField])
	}
	return clean
}

func displayDate(iso string) string {
	d, err := time.Parse(dateLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "kota"
	}
	return out
}
