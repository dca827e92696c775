// Package coordinates provides great-circle distance and bearing calculations
// plus the unit conversions used at every display and entry boundary.
//
// All distances are computed in statute miles. Speeds are carried in knots
// and altitudes in feet; conversion to metric happens only when a value is
// shown to the user or read back from user input.
package coordinates

import "math"

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusMiles is the mean Earth radius in statute miles.
	// This is the base unit for every distance in the application.
	EarthRadiusMiles = 3959.0

	// MilesToKilometers converts statute miles to kilometers
	MilesToKilometers = 1.60934

	// KnotsToKmh converts knots to kilometers per hour
	KnotsToKmh = 1.852

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048
)

// Geographic represents a position on Earth's surface in decimal degrees (WGS84).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64
}

// Distance calculates the great-circle distance between two points using the
// Haversine formula. Returns statute miles. NaN inputs yield NaN.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegreesToRadians
	lat2Rad := lat2 * DegreesToRadians
	dLat := (lat2 - lat1) * DegreesToRadians
	dLon := (lon2 - lon1) * DegreesToRadians

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Floating point error can push a slightly above 1 near antipodes.
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// DistanceBetween is Distance for two Geographic positions.
func DistanceBetween(from, to Geographic) float64 {
	return Distance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	lat1 := from.Latitude * DegreesToRadians
	lon1 := from.Longitude * DegreesToRadians
	lat2 := to.Latitude * DegreesToRadians
	lon2 := to.Longitude * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return NormalizeAzimuth(math.Atan2(y, x) * RadiansToDegrees)
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// CardinalDirection converts a bearing in degrees to a 16-point compass label.
func CardinalDirection(bearing float64) string {
	directions := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	index := int((NormalizeAzimuth(bearing) + 11.25) / 22.5)
	return directions[index%16]
}

// ConvertDistance converts miles to the user's display unit.
func ConvertDistance(miles float64, metric bool) float64 {
	if metric {
		return miles * MilesToKilometers
	}
	return miles
}

// RadiusToMiles converts a radius entered in the user's unit back to miles.
func RadiusToMiles(radius float64, metric bool) float64 {
	if metric {
		return radius / MilesToKilometers
	}
	return radius
}

// ConvertSpeed converts knots to km/h when metric is selected.
// Imperial display keeps knots, the unit aircraft report.
func ConvertSpeed(knots float64, metric bool) float64 {
	if metric {
		return knots * KnotsToKmh
	}
	return knots
}

// ConvertAltitude converts feet to meters when metric is selected.
func ConvertAltitude(feet float64, metric bool) float64 {
	if metric {
		return feet * FeetToMeters
	}
	return feet
}

// DistanceUnit returns the label for the selected distance unit.
func DistanceUnit(metric bool) string {
	if metric {
		return "km"
	}
	return "mi"
}

// SpeedUnit returns the label for the selected speed unit.
func SpeedUnit(metric bool) string {
	if metric {
		return "km/h"
	}
	return "kts"
}

// AltitudeUnit returns the label for the selected altitude unit.
func AltitudeUnit(metric bool) string {
	if metric {
		return "m"
	}
	return "ft"
}
