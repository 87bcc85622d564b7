package geo_test

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/geo"
	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		latA, lonA, latB, lonB float64
		want                   float64
		delta                  float64
	}{
		{name: "same point", latA: 23.81, lonA: 90.41, latB: 23.81, lonB: 90.41, want: 0, delta: 0},
		{name: "one degree of latitude", latA: 0, lonA: 0, latB: 1, lonB: 0, want: 111194.93, delta: 0.5},
		{name: "dhaka hotspot offset", latA: 23.81, lonA: 90.41, latB: 23.8105, lonB: 90.4105, want: 75.5, delta: 2},
		{name: "antipodal", latA: 0, lonA: 0, latB: 0, lonB: 180, want: 20015086.8, delta: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := geo.DistanceMeters(tt.latA, tt.lonA, tt.latB, tt.lonB)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	t.Parallel()

	points := [][2]float64{
		{23.8103, 90.4125},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{89.9, 179.9},
		{-89.9, -179.9},
	}

	for _, a := range points {
		assert.Zero(t, geo.DistanceMeters(a[0], a[1], a[0], a[1]))
		for _, b := range points {
			assert.Equal(t,
				geo.DistanceMeters(a[0], a[1], b[0], b[1]),
				geo.DistanceMeters(b[0], b[1], a[0], a[1]),
			)
		}
	}
}

func TestLatitudeBandContainsRadius(t *testing.T) {
	t.Parallel()

	minLat, maxLat := geo.LatitudeBand(23.81, 500)
	assert.Less(t, minLat, 23.81)
	assert.Greater(t, maxLat, 23.81)

	// a point exactly on the band edge sits at the radius distance
	assert.InDelta(t, 500, geo.DistanceMeters(23.81, 90.41, maxLat, 90.41), 0.01)

	minLat, maxLat = geo.LatitudeBand(89.999, 5000)
	assert.Equal(t, 90.0, maxLat)
	assert.Less(t, minLat, 89.999)
}

func TestValidCoordinate(t *testing.T) {
	t.Parallel()

	assert.True(t, geo.ValidCoordinate(23.81, 90.41))
	assert.True(t, geo.ValidCoordinate(-90, 180))
	assert.False(t, geo.ValidCoordinate(91, 0))
	assert.False(t, geo.ValidCoordinate(0, -181))
}
