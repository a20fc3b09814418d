package models

import "time"

// Mosque is a place of worship near a query point. ID is "type/id".
type Mosque struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
	Address  string  `json:"address,omitempty"`
}

// OverpassCenter is the centroid Overpass reports for ways and relations.
type OverpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OverpassElement is a raw POI element.
type OverpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *OverpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// OverpassResponse is the JSON body of an interpreter call.
type OverpassResponse struct {
	Elements []OverpassElement `json:"elements"`
}

// PositionKind tells a coarse city estimate from a live GPS fix.
type PositionKind string

const (
	PositionCity PositionKind = "city"
	PositionGPS  PositionKind = "gps"
)

// MosquePosition is the input to a mosque search. Accuracy is nil when
// unknown.
type MosquePosition struct {
	Coordinates Coordinates  `json:"coordinates"`
	Accuracy    *float64     `json:"accuracy,omitempty"`
	Kind        PositionKind `json:"kind"`
}

// MosqueSearchResult is one search outcome.
type MosqueSearchResult struct {
	Mosques   []Mosque  `json:"mosques"`
	Radius    int       `json:"radius"`
	FromCache bool      `json:"from_cache"`
	FetchedAt time.Time `json:"fetched_at"`
}
