package service

import (
	"strings"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

type cityCapital struct {
	Name     string
	Province string
	Lat      float64
	Lng      float64
}

// cityCapitals are provincial capitals and large cities used to turn a
// position into a city keyword and back.
var cityCapitals = []cityCapital{
	{"BANDA ACEH", "ACEH", 5.5483, 95.3238},
	{"MEDAN", "SUMATERA UTARA", 3.5952, 98.6722},
	{"PADANG", "SUMATERA BARAT", -0.9471, 100.4172},
	{"PEKANBARU", "RIAU", 0.5071, 101.4478},
	{"JAMBI", "JAMBI", -1.6101, 103.6131},
	{"PALEMBANG", "SUMATERA SELATAN", -2.9761, 104.7754},
	{"BENGKULU", "BENGKULU", -3.7928, 102.2608},
	{"BANDAR LAMPUNG", "LAMPUNG", -5.3971, 105.2668},
	{"PANGKAL PINANG", "KEP. BANGKA BELITUNG", -2.1291, 106.1138},
	{"TANJUNG PINANG", "KEP. RIAU", 0.9186, 104.4554},
	{"BATAM", "KEP. RIAU", 1.0456, 104.0305},
	{"JAKARTA", "DKI JAKARTA", -6.2088, 106.8456},
	{"BOGOR", "JAWA BARAT", -6.5971, 106.8060},
	{"DEPOK", "JAWA BARAT", -6.4025, 106.7942},
	{"BEKASI", "JAWA BARAT", -6.2383, 106.9756},
	{"BANDUNG", "JAWA BARAT", -6.9175, 107.6191},
	{"TANGERANG", "BANTEN", -6.1783, 106.6319},
	{"SERANG", "BANTEN", -6.1104, 106.1640},
	{"SEMARANG", "JAWA TENGAH", -6.9667, 110.4167},
	{"SURAKARTA", "JAWA TENGAH", -7.5755, 110.8243},
	{"YOGYAKARTA", "DI YOGYAKARTA", -7.7956, 110.3695},
	{"SURABAYA", "JAWA TIMUR", -7.2575, 112.7521},
	{"MALANG", "JAWA TIMUR", -7.9666, 112.6326},
	{"PONTIANAK", "KALIMANTAN BARAT", -0.0263, 109.3425},
	{"PALANGKARAYA", "KALIMANTAN TENGAH", -2.2161, 113.9135},
	{"BANJARMASIN", "KALIMANTAN SELATAN", -3.3186, 114.5944},
	{"SAMARINDA", "KALIMANTAN TIMUR", -0.5022, 117.1536},
	{"BALIKPAPAN", "KALIMANTAN TIMUR", -1.2379, 116.8529},
	{"TARAKAN", "KALIMANTAN UTARA", 3.3274, 117.5785},
	{"DENPASAR", "BALI", -8.6705, 115.2126},
	{"MATARAM", "NUSA TENGGARA BARAT", -8.5833, 116.1167},
	{"KUPANG", "NUSA TENGGARA TIMUR", -10.1772, 123.6070},
	{"MANADO", "SULAWESI UTARA", 1.4748, 124.8421},
	{"GORONTALO", "GORONTALO", 0.5435, 123.0568},
	{"PALU", "SULAWESI TENGAH", -0.8917, 119.8707},
	{"MAMUJU", "SULAWESI BARAT", -2.6748, 118.8885},
	{"MAKASSAR", "SULAWESI SELATAN", -5.1477, 119.4327},
	{"KENDARI", "SULAWESI TENGGARA", -3.9985, 122.5129},
	{"AMBON", "MALUKU", -3.6954, 128.1814},
	{"TERNATE", "MALUKU UTARA", 0.7893, 127.3756},
	{"SORONG", "PAPUA BARAT DAYA", -0.8762, 131.2558},
	{"MANOKWARI", "PAPUA BARAT", -0.8615, 134.0620},
	{"NABIRE", "PAPUA TENGAH", -3.3667, 135.4833},
	{"JAYAWIJAYA", "PAPUA PEGUNUNGAN", -4.0956, 138.9486},
	{"JAYAPURA", "PAPUA", -2.5337, 140.7181},
	{"MERAUKE", "PAPUA SELATAN", -8.4932, 140.4018},
}

// nearestCapital returns the capital closest to c.
func nearestCapital(c models.Coordinates) cityCapital {
	best := cityCapitals[0]
	bestDist := HaversineDistance(c, models.Coordinates{Lat: best.Lat, Lng: best.Lng})
	for _, city := range cityCapitals[1:] {
		d := HaversineDistance(c, models.Coordinates{Lat: city.Lat, Lng: city.Lng})
		if d < bestDist {
			best, bestDist = city, d
		}
	}
	return best
}

// CityCoordinates returns the coarse position of a known city. Upstream
// names such as "KOTA JAKARTA" or "KAB. BOGOR" are accepted.
func CityCoordinates(name string) (models.Coordinates, bool) {
	norm := normalizeCityName(name)
	for _, city := range cityCapitals {
		if city.Name == norm {
			return models.Coordinates{Lat: city.Lat, Lng: city.Lng}, true
		}
	}
	return models.Coordinates{}, false
}

func normalizeCityName(name string) string {
	norm := strings.ToUpper(strings.TrimSpace(name))
	for _, prefix := range []string{"KOTA ", "KAB. ", "KABUPATEN "} {
		norm = strings.TrimPrefix(norm, prefix)
	}
	return strings.TrimSpace(norm)
}
