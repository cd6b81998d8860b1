package datastructure

import (
	"math"

	"github.com/lintang-b-s/corerouter/pkg"
	"golang.org/x/exp/rand"
)

// GenerateRandomGraph builds a strongly connected road-like graph: a bidirectional random spanning tree plus
// extraEdges random one-way edges. Coordinates lie inside a ~10km box around (lat, lon) and every edge is at
// least as long as the great-circle distance between its endpoints. Edges crossing lon are border crossings
// between country 1 and country 2. The same seed always yields the same graph.
func GenerateRandomGraph(n, extraEdges int, seed uint64, lat, lon float64) *Graph {
	rng := rand.New(rand.NewSource(seed))
	g := NewGraph()
	for i := 0; i < n; i++ {
		g.AddVertex(lat+(rng.Float64()-0.5)*0.1, lon+(rng.Float64()-0.5)*0.1)
	}

	country := func(v Index) uint16 {
		if g.vertices[v].lon < lon {
			return 1
		}
		return 2
	}

	randomAttr := func(u, v Index) EdgeAttributes {
		hw := pkg.OsmHighwayType(rng.Intn(int(pkg.UNKNOWN)))
		surface := SURFACE_ASPHALT
		if rng.Intn(10) == 0 {
			surface = SURFACE_GRAVEL
		}
		attr := NewEdgeAttributes(hw, surface, 0).WithCountries(country(u), country(v))
		if rng.Intn(15) == 0 {
			attr = attr.WithLimits(3.5, 0, 7.5)
		}
		return attr
	}

	edgeDist := func(u, v Index) float64 {
		return math.Ceil(g.HaversineMeters(u, v)*(1+rng.Float64()*0.4)) + 1
	}

	for v := 1; v < n; v++ {
		u := Index(rng.Intn(v))
		g.AddBidirectionalEdge(u, Index(v), edgeDist(u, Index(v)), randomAttr(u, Index(v)))
	}

	for i := 0; i < extraEdges && n > 1; i++ {
		u := Index(rng.Intn(n))
		v := Index(rng.Intn(n))
		if u == v {
			continue
		}
		g.AddEdge(u, v, edgeDist(u, v), randomAttr(u, v))
	}
	return g
}
