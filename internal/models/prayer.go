package models

import "strings"

// PrayerName is one of the eight daily time points in chronological order.
type PrayerName string

const (
	PrayerImsak   PrayerName = "Imsak"
	PrayerSubuh   PrayerName = "Subuh"
	PrayerTerbit  PrayerName = "Terbit"
	PrayerDhuha   PrayerName = "Dhuha"
	PrayerDzuhur  PrayerName = "Dzuhur"
	PrayerAshar   PrayerName = "Ashar"
	PrayerMaghrib PrayerName = "Maghrib"
	PrayerIsya    PrayerName = "Isya"
)

// PrayerOrder lists the slots in the order they occur within a day.
var PrayerOrder = []PrayerName{
	PrayerImsak,
	PrayerSubuh,
	PrayerTerbit,
	PrayerDhuha,
	PrayerDzuhur,
	PrayerAshar,
	PrayerMaghrib,
	PrayerIsya,
}

// Key is the lower-case slot key used by the schedule payload.
func (p PrayerName) Key() string {
	return strings.ToLower(string(p))
}
