package models

// Location is a city as returned by the schedule upstream. ID is opaque.
type Location struct {
	ID     string `json:"id"`
	Lokasi string `json:"lokasi"`
	Daerah string `json:"daerah,omitempty"`
}

// TimezoneLabel is one of the three Indonesian zones.
type TimezoneLabel string

const (
	TimezoneWIB  TimezoneLabel = "WIB"
	TimezoneWITA TimezoneLabel = "WITA"
	TimezoneWIT  TimezoneLabel = "WIT"
)

// Timezone is a label with its fixed UTC offset.
type Timezone struct {
	Label          TimezoneLabel `json:"label"`
	UTCOffsetHours int           `json:"utc_offset_hours"`
}

// LocationState is the currently selected place with its resolved zone.
type LocationState struct {
	Location Location `json:"location"`
	Timezone Timezone `json:"timezone"`
}

// CitySearchResponse mirrors the upstream city search envelope.
type CitySearchResponse struct {
	Status bool       `json:"status"`
	Data   []Location `json:"data"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
