package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHaversineDistance(t *testing.T) {
	testCases := []struct {
		name                   string
		latA, lonA, latB, lonB float64
		want                   float64 // km
		delta                  float64
	}{
		{name: "same point", latA: -7.78, lonA: 110.37, latB: -7.78, lonB: 110.37, want: 0, delta: 1e-9},
		{name: "one degree of latitude", latA: 0, lonA: 0, latB: 1, lonB: 0, want: 111.19, delta: 0.01},
		{name: "yogyakarta to solo", latA: -7.7956, lonA: 110.3695, latB: -7.5755, lonB: 110.8243, want: 55.8, delta: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CalculateHaversineDistance(tc.latA, tc.lonA, tc.latB, tc.lonB), tc.delta)
		})
	}
}

func TestGetDestinationPoint(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 225, 315} {
		lat, lon := GetDestinationPoint(-7.78, 110.37, bearing, 2.5)
		assert.InDelta(t, 2.5, CalculateHaversineDistance(-7.78, 110.37, lat, lon), 1e-6)
	}
}

func TestProjectPointToSegment(t *testing.T) {
	a := NewCoordinate(-7.0, 110.0)
	b := NewCoordinate(-7.0, 110.02)

	projected, dist := ProjectPointToSegment(a, b, NewCoordinate(-7.001, 110.01))
	assert.InDelta(t, -7.0, projected.Lat, 1e-4)
	assert.InDelta(t, 110.01, projected.Lon, 1e-6)
	assert.InDelta(t, 111.2, dist, 1)

	// beyond the segment end the projection clamps to b
	projected, _ = ProjectPointToSegment(a, b, NewCoordinate(-7.0, 110.05))
	assert.InDelta(t, b.Lon, projected.Lon, 1e-9)
}
