package service

import (
	"time"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

const (
	dateLayout = "2006-01-02"
	dayMs      = int64(24 * time.Hour / time.Millisecond)
)

// ComputeNext returns the first prayer after now in the location's wall
// clock, or tomorrow's imsak once today's slots are exhausted. It returns nil
// when tomorrow's schedule is not available. Slots with missing or malformed
// times are skipped.
func ComputeNext(schedules []models.ScheduleDay, now time.Time, utcOffsetHours int) *models.NextPrayerResult {
	local := toLocal(now, utcOffsetHours)
	today := local.Format(dateLayout)
	nowMs := msSinceMidnight(local)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	if day, ok := findDay(schedules, today); ok {
		for _, name := range models.PrayerOrder {
			raw := day.Time(name)
			secs, ok := parseClock(raw)
			if !ok {
				continue
			}
			targetMs := int64(secs) * 1000
			if targetMs > nowMs {
				return &models.NextPrayerResult{
					Name:        name,
					Key:         name.Key(),
					Time:        raw,
					RemainingMs: targetMs - nowMs,
					TargetAt:    fromLocal(midnight.Add(time.Duration(secs)*time.Second), utcOffsetHours),
				}
			}
		}
	}

	tomorrow := midnight.AddDate(0, 0, 1)
	day, ok := findDay(schedules, tomorrow.Format(dateLayout))
	if !ok {
		return nil
	}
	secs, ok := parseClock(day.Imsak)
	if !ok {
		return nil
	}
	return &models.NextPrayerResult{
		Name:        models.PrayerImsak,
		Key:         models.PrayerImsak.Key(),
		Time:        day.Imsak,
		RemainingMs: (dayMs - nowMs) + int64(secs)*1000,
		IsTomorrow:  true,
		TargetAt:    fromLocal(tomorrow.Add(time.Duration(secs)*time.Second), utcOffsetHours),
	}
}

// LocalDate is the calendar date at now in the given zone.
func LocalDate(now time.Time, utcOffsetHours int) string {
	return toLocal(now, utcOffsetHours).Format(dateLayout)
}

// toLocal shifts now into a UTC-labelled wall clock of the zone.
func toLocal(now time.Time, utcOffsetHours int) time.Time {
	return now.UTC().Add(time.Duration(utcOffsetHours) * time.Hour)
}

func fromLocal(wall time.Time, utcOffsetHours int) time.Time {
	return wall.Add(-time.Duration(utcOffsetHours) * time.Hour)
}

func msSinceMidnight(local time.Time) int64 {
	return int64(local.Hour())*3_600_000 +
		int64(local.Minute())*60_000 +
		int64(local.Second())*1000 +
		int64(local.Nanosecond())/int64(time.Millisecond)
}

func findDay(schedules []models.ScheduleDay, date string) (models.ScheduleDay, bool) {
	for _, day := range schedules {
		if day.Date == date {
			return day, true
		}
	}
	return models.ScheduleDay{}, false
}

func hasDay(schedules []models.ScheduleDay, date string) bool {
	_, ok := findDay(schedules, date)
	return ok
}

// parseClock converts "HH:MM" to seconds since midnight.
func parseClock(raw string) (int, bool) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, false
	}
	h, ok1 := twoDigits(raw[0], raw[1])
	m, ok2 := twoDigits(raw[3], raw[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, false
	}
	return h*3600 + m*60, true
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
