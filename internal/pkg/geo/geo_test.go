package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineZeroDistance(t *testing.T) {
	d := Haversine(40.7128, -74.0060, 40.7128, -74.0060)
	assert.InDelta(t, 0.0, d, 1e-6)
}

func TestHaversineKnownDistances(t *testing.T) {
	// New York -> Los Angeles, great-circle distance ~3936 km.
	d := Haversine(40.7128, -74.0060, 34.0522, -118.2437)
	assert.InDelta(t, 3936, d, 5)

	// One degree of latitude at the equator is ~111.19 km on a 6371 km sphere.
	d = Haversine(0, 0, 1, 0)
	assert.InDelta(t, 2*math.Pi*EarthRadiusKm/360, d, 1e-6)
}

func TestHaversineSymmetry(t *testing.T) {
	a := Haversine(40.7128, -74.0060, 41.0, -75.0)
	b := Haversine(41.0, -75.0, 40.7128, -74.0060)
	assert.InDelta(t, a, b, 1e-9)
}

func TestHaversineNearbyExclusion(t *testing.T) {
	// (41.0, -75.0) is far more than 1 km from downtown Manhattan.
	d := Haversine(41.0, -75.0, 40.7128, -74.0060)
	assert.Greater(t, d, 1.0)
}

func TestValidatePoint(t *testing.T) {
	require.NoError(t, ValidatePoint(40.7128, -74.0060))
	require.NoError(t, ValidatePoint(-90, 180))
	assert.Error(t, ValidatePoint(90.1, 0))
	assert.Error(t, ValidatePoint(-91, 0))
	assert.Error(t, ValidatePoint(0, 180.5))
	assert.Error(t, ValidatePoint(0, -181))
}

func TestValidateRadius(t *testing.T) {
	require.NoError(t, ValidateRadius(0))
	require.NoError(t, ValidateRadius(50))
	assert.Error(t, ValidateRadius(-0.1))
	assert.Error(t, ValidateRadius(50.1))
}

func TestDistanceExprArgs(t *testing.T) {
	expr, args := DistanceExpr("latitude", "longitude", 40.7128, -74.0060)
	assert.Contains(t, expr, "ASIN")
	assert.Contains(t, expr, "RADIANS(latitude)")
	require.Len(t, args, 3)
	assert.Equal(t, 40.7128, args[0])
	assert.Equal(t, 40.7128, args[1])
	assert.Equal(t, -74.0060, args[2])
}
