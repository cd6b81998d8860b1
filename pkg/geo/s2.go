package geo

import (
	"github.com/golang/geo/s2"
)

// ProjectPointToSegment returns the point of segment a-b closest to p and its distance to p in meters.
func ProjectPointToSegment(a, b, p Coordinate) (Coordinate, float64) {
	pointA := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	pointB := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon))
	point := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))

	projection := s2.LatLngFromPoint(s2.Project(point, pointA, pointB))
	projected := NewCoordinate(projection.Lat.Degrees(), projection.Lng.Degrees())
	return projected, CalculateHaversineDistance(p.Lat, p.Lon, projected.Lat, projected.Lon) * 1000
}
