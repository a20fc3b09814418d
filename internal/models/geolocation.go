package models

import "time"

// GeoFix is one position reading. Accuracy is the 1-sigma radius in meters.
type GeoFix struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy float64   `json:"accuracy"`
	At       time.Time `json:"at"`
}

// Coordinates returns the fix position.
func (f GeoFix) Coordinates() Coordinates {
	return Coordinates{Lat: f.Lat, Lng: f.Lng}
}

// WatchOptions configures a continuous position watch.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

// GeoState is the tracker lifecycle state.
type GeoState string

const (
	GeoIdle      GeoState = "idle"
	GeoDetecting GeoState = "detecting"
	GeoSettled   GeoState = "settled"
	GeoCancelled GeoState = "cancelled"
)

// GeoSnapshot is an immutable view of the tracker.
type GeoSnapshot struct {
	State      GeoState `json:"state"`
	Generation uint64   `json:"generation"`
	Fix        *GeoFix  `json:"fix,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// PositionUpdate is one event on a position watch: either a fix or an error.
type PositionUpdate struct {
	Fix GeoFix
	Err error
}
