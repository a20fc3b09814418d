package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones and wraps of a sentinel
// still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound      = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden     = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrValidation    = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal      = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrRateLimited   = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrCacheMiss     = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrQuotaExceeded = New("QUOTA_EXCEEDED", http.StatusInsufficientStorage, "storage quota exceeded")
	ErrUnavailable   = New("UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrUnsupported   = New("UNSUPPORTED", http.StatusBadRequest, "unsupported operation")
	ErrUpstreamDown  = New("UPSTREAM_UNAVAILABLE", http.StatusBadGateway, "upstream unavailable")
)

// Schedule errors.
var (
	ErrScheduleUpstream    = New("SCHEDULE_UPSTREAM_ERROR", http.StatusBadGateway, "jadwal tidak tersedia dari sumber data")
	ErrScheduleUnavailable = New("SCHEDULE_UNAVAILABLE", http.StatusServiceUnavailable, "jadwal sholat tidak dapat dimuat, coba lagi nanti")
)

// Mosque search errors. Each one maps to a distinct user-facing message.
var (
	ErrOffline       = New("OFFLINE", http.StatusServiceUnavailable, "Anda sedang offline. Periksa koneksi internet Anda.")
	ErrMosqueServer  = New("MOSQUE_SERVER_ERROR", http.StatusBadGateway, "Server gagal memuat data masjid. Coba tekan Refresh.")
	ErrMosqueNetwork = New("MOSQUE_NETWORK_ERROR", http.StatusBadGateway, "Gagal terhubung ke server. Periksa koneksi internet dan coba lagi.")
	ErrNoMosques     = New("NO_MOSQUES", http.StatusOK, "Tidak ada masjid ditemukan dalam radius pencarian.")
)

// Geolocation errors.
var (
	ErrPermissionDenied    = New("PERMISSION_DENIED", http.StatusForbidden, "Izin lokasi ditolak. Buka pengaturan browser untuk mengizinkan.")
	ErrPositionUnavailable = New("POSITION_UNAVAILABLE", http.StatusServiceUnavailable, "Lokasi tidak tersedia. Pastikan GPS aktif.")
	ErrPositionFailed      = New("POSITION_FAILED", http.StatusInternalServerError, "Gagal mendeteksi lokasi. Coba lagi.")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// With returns a copy of the sentinel wrapping cause, keeping code and message.
func With(err *Error, cause error) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Err = cause
	return &clone
}
