package models

// ScheduleDay holds one calendar date's prayer times as local HH:MM strings.
// Any slot may be empty when the upstream omitted it.
type ScheduleDay struct {
	Tanggal string `json:"tanggal"`
	Date    string `json:"date"`
	Imsak   string `json:"imsak"`
	Subuh   string `json:"subuh"`
	Terbit  string `json:"terbit"`
	Dhuha   string `json:"dhuha"`
	Dzuhur  string `json:"dzuhur"`
	Ashar   string `json:"ashar"`
	Maghrib string `json:"maghrib"`
	Isya    string `json:"isya"`
}

// Time returns the raw clock string for a slot.
func (d ScheduleDay) Time(p PrayerName) string {
	switch p {
	case PrayerImsak:
		return d.Imsak
	case PrayerSubuh:
		return d.Subuh
	case PrayerTerbit:
		return d.Terbit
	case PrayerDhuha:
		return d.Dhuha
	case PrayerDzuhur:
		return d.Dzuhur
	case PrayerAshar:
		return d.Ashar
	case PrayerMaghrib:
		return d.Maghrib
	case PrayerIsya:
		return d.Isya
	default:
		return ""
	}
}

// ScheduleData is the month payload for one city.
type ScheduleData struct {
	ID     string        `json:"id"`
	Lokasi string        `json:"lokasi"`
	Daerah string        `json:"daerah"`
	Jadwal []ScheduleDay `json:"jadwal"`
}

// ScheduleResponse mirrors the upstream envelope. Status false carries Error.
type ScheduleResponse struct {
	Status bool          `json:"status"`
	Data   *ScheduleData `json:"data,omitempty"`
	Error  string        `json:"error,omitempty"`
}
