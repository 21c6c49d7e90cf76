// Package geo provides the spherical-earth distance math shared by the query
// engine and its tests. Distances use the haversine formula with an Earth
// radius of 6371 km.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the spherical-earth approximation radius.
const EarthRadiusKm = 6371.0

// MaxRadiusKm bounds nearby queries.
const MaxRadiusKm = 50.0

// Haversine returns the great-circle distance in kilometres between two
// points. It is the reference implementation the store-side expression must
// agree with (tolerance 1e-6 km).
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// DistanceExpr returns a SQL expression computing the haversine distance in
// kilometres between the given lat/lng columns and a center point, plus the
// bind arguments it consumes. The asin/sqrt form is exact at zero distance,
// so a radius of 0 still matches the center point itself. Only portable math
// functions are used (present in both MySQL and SQLite).
func DistanceExpr(latCol, lngCol string, centerLat, centerLng float64) (string, []interface{}) {
	expr := fmt.Sprintf(
		"(2 * %g * ASIN(SQRT("+
			"POW(SIN((RADIANS(%s) - RADIANS(?)) / 2), 2) + "+
			"COS(RADIANS(?)) * COS(RADIANS(%s)) * "+
			"POW(SIN((RADIANS(%s) - RADIANS(?)) / 2), 2)"+
			")))",
		EarthRadiusKm, latCol, latCol, lngCol,
	)
	return expr, []interface{}{centerLat, centerLat, centerLng}
}

// ValidatePoint rejects out-of-range coordinates before they reach the store.
func ValidatePoint(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateRadius rejects negative or oversized radii. A radius of 0 is valid
// and matches exact-position records only.
func ValidateRadius(radiusKm float64) error {
	if radiusKm < 0 {
		return fmt.Errorf("radius must be >= 0")
	}
	if radiusKm > MaxRadiusKm {
		return fmt.Errorf("radius must be <= %g km", MaxRadiusKm)
	}
	return nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
