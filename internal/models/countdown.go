package models

import "time"

// NextPrayerResult is the upcoming prayer relative to a corrected instant.
// TargetAt is the absolute instant of the prayer.
type NextPrayerResult struct {
	Name        PrayerName `json:"name"`
	Key         string     `json:"key"`
	Time        string     `json:"time"`
	RemainingMs int64      `json:"remaining_ms"`
	IsTomorrow  bool       `json:"is_tomorrow"`
	TargetAt    time.Time  `json:"target_at"`
}

// CountdownStatus describes where the prayer cycle engine currently stands.
type CountdownStatus string

const (
	CountdownLoading     CountdownStatus = "loading"
	CountdownActive      CountdownStatus = "active"
	CountdownRefetching  CountdownStatus = "refetching"
	CountdownUnavailable CountdownStatus = "unavailable"
)

// CountdownState is a point-in-time copy of the engine state.
type CountdownState struct {
	Status    CountdownStatus   `json:"status"`
	Location  LocationState     `json:"location"`
	Next      *NextPrayerResult `json:"next,omitempty"`
	LocalDate string            `json:"local_date"`
	Attempts  int               `json:"attempts"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TimeSnapshot is the corrected clock reading exposed by the gateway.
type TimeSnapshot struct {
	Now      time.Time `json:"now"`
	OffsetMs int64     `json:"offset_ms"`
	SyncedAt time.Time `json:"synced_at"`
}

// Announcement is published to signage subscribers when the next prayer
// changes.
type Announcement struct {
	CityID   string            `json:"city_id"`
	Lokasi   string            `json:"lokasi"`
	Timezone TimezoneLabel     `json:"timezone"`
	Next     *NextPrayerResult `json:"next"`
	SentAt   time.Time         `json:"sent_at"`
}
