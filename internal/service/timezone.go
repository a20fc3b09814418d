package service

import (
	"strings"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

var timezoneOffsets = map[models.TimezoneLabel]int{
	models.TimezoneWIB:  7,
	models.TimezoneWITA: 8,
	models.TimezoneWIT:  9,
}

var provinceTimezones = map[string]models.TimezoneLabel{
	"ACEH":                 models.TimezoneWIB,
	"SUMATERA UTARA":       models.TimezoneWIB,
	"SUMATERA BARAT":       models.TimezoneWIB,
	"RIAU":                 models.TimezoneWIB,
	"JAMBI":                models.TimezoneWIB,
	"SUMATERA SELATAN":     models.TimezoneWIB,
	"BENGKULU":             models.TimezoneWIB,
	"LAMPUNG":              models.TimezoneWIB,
	"KEP. BANGKA BELITUNG": models.TimezoneWIB,
	"KEP. RIAU":            models.TimezoneWIB,
	"DKI JAKARTA":          models.TimezoneWIB,
	"JAWA BARAT":           models.TimezoneWIB,
	"JAWA TENGAH":          models.TimezoneWIB,
	"DI YOGYAKARTA":        models.TimezoneWIB,
	"JAWA TIMUR":           models.TimezoneWIB,
	"BANTEN":               models.TimezoneWIB,
	"KALIMANTAN BARAT":     models.TimezoneWIB,

	"BALI":                models.TimezoneWITA,
	"NUSA TENGGARA BARAT": models.TimezoneWITA,
	"NUSA TENGGARA TIMUR": models.TimezoneWITA,
	"KALIMANTAN TENGAH":   models.TimezoneWITA,
	"KALIMANTAN SELATAN":  models.TimezoneWITA,
	"KALIMANTAN TIMUR":    models.TimezoneWITA,
	"KALIMANTAN UTARA":    models.TimezoneWITA,
	"SULAWESI UTARA":      models.TimezoneWITA,
	"SULAWESI TENGAH":     models.TimezoneWITA,
	"SULAWESI SELATAN":    models.TimezoneWITA,
	"SULAWESI TENGGARA":   models.TimezoneWITA,
	"GORONTALO":           models.TimezoneWITA,
	"SULAWESI BARAT":      models.TimezoneWITA,

	"MALUKU":           models.TimezoneWIT,
	"MALUKU UTARA":     models.TimezoneWIT,
	"PAPUA":            models.TimezoneWIT,
	"PAPUA BARAT":      models.TimezoneWIT,
	"PAPUA BARAT DAYA": models.TimezoneWIT,
	"PAPUA TENGAH":     models.TimezoneWIT,
	"PAPUA PEGUNUNGAN": models.TimezoneWIT,
	"PAPUA SELATAN":    models.TimezoneWIT,
}

// ResolveTimezone maps a province name to its zone. Unknown names resolve to
// WIB.
func ResolveTimezone(province string) models.Timezone {
	label, ok := provinceTimezones[strings.ToUpper(strings.TrimSpace(province))]
	if !ok {
		label = models.TimezoneWIB
	}
	return models.Timezone{Label: label, UTCOffsetHours: timezoneOffsets[label]}
}
