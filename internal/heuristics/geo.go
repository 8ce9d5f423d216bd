package heuristics

import (
	"math"
	"strings"

	"github.com/axlrose023/fraud-checker/pkg/models"
)

const (
	earthRadiusKM          = 6371.0
	geoDistanceThresholdKM = 800.0
	geoAccuracyLimitMeters = 50000.0
)

// GeoRule cross-checks the client-reported location against IP geolocation.
// With no resolver result (disabled, unresolved, or failed lookup) the rule
// emits nothing.
type GeoRule struct{}

func (GeoRule) Collect(payload *models.FraudCheckRequest, d Derived) []models.FraudSignal {
	ipGeo := d.IPGeo
	if ipGeo == nil {
		return nil
	}

	var signals []models.FraudSignal

	if ipGeo.IsHosting {
		signals = append(signals, NewSignal(
			"HOSTING_PROVIDER_IP", 20,
			"IP appears to belong to a hosting/data-center provider.",
		))
	}

	location := payload.Location
	if location == nil {
		return signals
	}

	if location.CountryISO != "" && ipGeo.CountryISO != "" &&
		!strings.EqualFold(location.CountryISO, ipGeo.CountryISO) {
		signals = append(signals, NewSignal(
			"IP_COUNTRY_MISMATCH", 35,
			"Location country does not match IP geolocation country.",
		))
	}

	if location.Timezone != "" && ipGeo.Timezone != "" && location.Timezone != ipGeo.Timezone {
		signals = append(signals, NewSignal(
			"IP_TIMEZONE_MISMATCH", 15,
			"Reported timezone does not match IP geolocation timezone.",
		))
	}

	if location.UTCOffsetMinutes != nil && ipGeo.UTCOffsetMinutes != nil &&
		abs(*location.UTCOffsetMinutes-*ipGeo.UTCOffsetMinutes) > 60 {
		signals = append(signals, NewSignal(
			"IP_UTC_OFFSET_MISMATCH", 18,
			"Reported UTC offset does not match IP geolocation UTC offset.",
		))
	}

	if location.Latitude != nil && location.Longitude != nil &&
		location.AccuracyMeters != nil && *location.AccuracyMeters <= geoAccuracyLimitMeters &&
		ipGeo.Latitude != nil && ipGeo.Longitude != nil {
		distance := HaversineDistanceKM(
			*location.Latitude, *location.Longitude,
			*ipGeo.Latitude, *ipGeo.Longitude,
		)
		if distance >= geoDistanceThresholdKM {
			signals = append(signals, NewSignal(
				"GEOLOCATION_DISTANCE_MISMATCH", 25,
				"Browser geolocation is too far from IP geolocation for the reported accuracy.",
			))
		}
	}

	return signals
}

// HaversineDistanceKM is the great-circle distance between two coordinates.
func HaversineDistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
