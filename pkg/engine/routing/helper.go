package routing

import (
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

func (e *CoreRoutingEngine) GetHaversineDistanceFromUtoV(u, v da.Index) float64 {
	return e.graph.HaversineMeters(u, v)
}

// PathGeometry returns the nodes of a path as a line string, orb points are (lon, lat).
func (e *CoreRoutingEngine) PathGeometry(nodes []da.Index) orb.LineString {
	ls := make(orb.LineString, 0, len(nodes))
	for _, v := range nodes {
		vertex := e.graph.GetVertex(v)
		ls = append(ls, orb.Point{vertex.GetLon(), vertex.GetLat()})
	}
	return ls
}

// PathPolyline encodes the nodes of a path with the google polyline algorithm, precision 5.
func (e *CoreRoutingEngine) PathPolyline(nodes []da.Index) string {
	coords := make([][]float64, 0, len(nodes))
	for _, v := range nodes {
		vertex := e.graph.GetVertex(v)
		coords = append(coords, []float64{vertex.GetLat(), vertex.GetLon()})
	}
	return string(polyline.EncodeCoords(coords))
}
