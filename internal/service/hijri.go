package service

import (
	"fmt"
	"time"

	"github.com/hablullah/go-hijri"
)

var hijriMonthNames = [...]string{
	"Muharram",
	"Safar",
	"Rabi'ul Awwal",
	"Rabi'ul Akhir",
	"Jumadil Awwal",
	"Jumadil Akhir",
	"Rajab",
	"Sya'ban",
	"Ramadan",
	"Syawal",
	"Dzulqa'dah",
	"Dzulhijjah",
}

// HijriParts is a date in the Umm al-Qura calendar.
type HijriParts struct {
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Year      int    `json:"year"`
}

// String formats the date as "1 Ramadan 1447H".
func (h HijriParts) String() string {
	return fmt.Sprintf("%d %s %dH", h.Day, h.MonthName, h.Year)
}

// HijriMonthLabel names one Hijri month overlapping a Gregorian month.
type HijriMonthLabel struct {
	MonthName string `json:"month_name"`
	Year      int    `json:"year"`
}

// String formats the label as "Ramadan 1447H".
func (l HijriMonthLabel) String() string {
	return fmt.Sprintf("%s %dH", l.MonthName, l.Year)
}

// HijriFromDate converts the calendar date of d to Umm al-Qura. Dates outside
// the published table (1937-2077) fall back to the arithmetic civil
// calendar.
func HijriFromDate(d time.Time) HijriParts {
	noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
	uq, err := hijri.CreateUmmAlQuraDate(noon)
	if err != nil {
		return tabularHijri(noon)
	}
	month := int(uq.Month)
	return HijriParts{Day: int(uq.Day), Month: month, MonthName: hijriMonthNames[month-1], Year: int(uq.Year)}
}

func tabularHijri(d time.Time) HijriParts {
	l := julianDayNumber(d.Year(), int(d.Month()), d.Day()) - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	month := (24 * l) / 709
	day := l - (709*month)/24
	year := 30*n + j - 30
	return HijriParts{Day: day, Month: month, MonthName: hijriMonthNames[month-1], Year: year}
}

// HijriDate formats an ISO date ("2026-02-18") as a Hijri date string. It
// returns an empty string for unparseable input.
func HijriDate(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return HijriFromDate(d).String()
}

// HijriMonthsFor lists the Hijri months a Gregorian month spans, one or two
// labels in order.
func HijriMonthsFor(year, month int) []HijriMonthLabel {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	a, b := HijriFromDate(first), HijriFromDate(last)

	labels := []HijriMonthLabel{{MonthName: a.MonthName, Year: a.Year}}
	if a.Month != b.Month || a.Year != b.Year {
		labels = append(labels, HijriMonthLabel{MonthName: b.MonthName, Year: b.Year})
	}
	return labels
}

func julianDayNumber(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}
