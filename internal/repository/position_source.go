package repository

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// LinePositionSource turns a text stream into a position watch. Each line is
// "lat,lng,accuracy"; the words "permission" and "unavailable" report the
// matching failures. Blank and malformed lines are skipped.
type LinePositionSource struct {
	r   io.Reader
	now func() time.Time
}

// NewLinePositionSource reads fixes from r, e.g. a gpspipe process or a FIFO.
func NewLinePositionSource(r io.Reader) *LinePositionSource {
	return &LinePositionSource{r: r, now: time.Now}
}

// Watch streams updates until ctx is cancelled or the reader is exhausted.
// When opts.Timeout elapses without a line, a failure update is emitted and
// the watch keeps waiting.
func (s *LinePositionSource) Watch(ctx context.Context, opts models.WatchOptions) (<-chan models.PositionUpdate, error) {
	if s.r == nil {
		return nil, appErrors.ErrPositionUnavailable
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make(chan models.PositionUpdate)
	go func() {
		defer close(out)
		var timeout <-chan time.Time
		var timer *time.Timer
		if opts.Timeout > 0 {
			timer = time.NewTimer(opts.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}

		for {
			var update models.PositionUpdate
			select {
			case <-ctx.Done():
				return
			case <-timeout:
				update = models.PositionUpdate{Err: appErrors.With(appErrors.ErrPositionFailed, fmt.Errorf("no position within %s", opts.Timeout))}
				timer.Reset(opts.Timeout)
			case line, ok := <-lines:
				if !ok {
					return
				}
				parsed, skip := s.parse(line)
				if skip {
					continue
				}
				update = parsed
				if timer != nil {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(opts.Timeout)
				}
			}

			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *LinePositionSource) parse(line string) (models.PositionUpdate, bool) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return models.PositionUpdate{}, true
	case "permission":
		return models.PositionUpdate{Err: appErrors.ErrPermissionDenied}, false
	case "unavailable":
		return models.PositionUpdate{Err: appErrors.ErrPositionUnavailable}, false
	}

	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return models.PositionUpdate{}, true
	}
	values := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.PositionUpdate{}, true
		}
		values[i] = v
	}
	if values[0] < -90 || values[0] > 90 || values[1] < -180 || values[1] > 180 || values[2] < 0 {
		return models.PositionUpdate{}, true
	}
	return models.PositionUpdate{Fix: models.GeoFix{Lat: values[0], Lng: values[1], Accuracy: values[2], At: s.now()}}, false
}
