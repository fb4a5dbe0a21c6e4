package geomodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDistanceMetersZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 10, Lon: -40}
	assert.Equal(t, 0.0, DistanceMeters(p, p))
}

func TestDistanceMetersKnownPair(t *testing.T) {
	// Roughly one degree of longitude at the equator is ~111.3km.
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0, Lon: 1}
	d := DistanceMeters(a, b)
	assert.InDelta(t, 111195.0, d, 2000.0)
}

func TestBearingDegreesNormalized(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
	}{
		{"due north", Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0}},
		{"due south", Point{Lat: 1, Lon: 0}, Point{Lat: 0, Lon: 0}},
		{"due east", Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 1}},
		{"due west", Point{Lat: 0, Lon: 1}, Point{Lat: 0, Lon: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brng := BearingDegrees(tt.a, tt.b)
			assert.GreaterOrEqual(t, brng, 0.0)
			assert.Less(t, brng, 360.0)
		})
	}
}

func TestPointAtBearingDistanceRoundTrip(t *testing.T) {
	origin := Point{Lat: 20, Lon: 30}
	projected := PointAtBearingDistance(origin, 90, 10000)

	// Projecting east then measuring distance back should roughly match.
	d := DistanceMeters(origin, projected)
	assert.InDelta(t, 10000.0, d, 50.0)
}

func TestOceanMaskBoundingBox(t *testing.T) {
	mask := NewOceanMask(-10, 10, -10, 10, nil)

	assert.True(t, mask.IsOcean(Point{Lat: 0, Lon: 0}))
	assert.False(t, mask.IsOcean(Point{Lat: 20, Lon: 0}))
	assert.False(t, mask.IsOcean(Point{Lat: 0, Lon: 20}))
}

func TestOceanMaskLandExclusion(t *testing.T) {
	square := []Point{
		{Lat: -1, Lon: -1},
		{Lat: -1, Lon: 1},
		{Lat: 1, Lon: 1},
		{Lat: 1, Lon: -1},
	}
	mask := NewOceanMask(-10, 10, -10, 10, [][]Point{square})

	assert.False(t, mask.IsOcean(Point{Lat: 0, Lon: 0}), "center of the land square should not be ocean")
	assert.True(t, mask.IsOcean(Point{Lat: 5, Lon: 5}), "outside the land square but inside the bbox should be ocean")
}

func TestInBoundsWithMargin(t *testing.T) {
	mask := NewOceanMask(-10, 10, -10, 10, nil)

	require.True(t, mask.InBoundsWithMargin(Point{Lat: 0, Lon: 0}, 0.5))
	require.False(t, mask.InBoundsWithMargin(Point{Lat: 9.8, Lon: 0}, 0.5))
}

func TestDeepOceanFallbackIsBoxCenter(t *testing.T) {
	mask := NewOceanMask(-10, 10, -20, 20, nil)
	center := mask.DeepOceanFallback()
	assert.Equal(t, Point{Lat: 0, Lon: 0}, center)
}

// Distance must never be negative and never exceed half Earth's
// circumference, for any pair of valid lat/lon inputs.
func TestDistanceMetersBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat1 := rapid.Float64Range(-89, 89).Draw(t, "lat1")
		lon1 := rapid.Float64Range(-179, 179).Draw(t, "lon1")
		lat2 := rapid.Float64Range(-89, 89).Draw(t, "lat2")
		lon2 := rapid.Float64Range(-179, 179).Draw(t, "lon2")

		d := DistanceMeters(Point{Lat: lat1, Lon: lon1}, Point{Lat: lat2, Lon: lon2})
		const halfCircumferenceM = 20038000.0

		if d < 0 || d > halfCircumferenceM {
			t.Fatalf("distance %f out of bounds", d)
		}
	})
}
