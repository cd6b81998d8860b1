package spatialindex

import (
	"math"

	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/geo"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Rtree indexes the original edges of a graph by their bounding box, so a query coordinate can be snapped
// to the nearest road and from there to a graph node.
type Rtree struct {
	tr    *rtree.RTreeG[da.Index]
	graph *da.Graph
}

// Snap is a query coordinate matched to the graph. Node is the endpoint of the matched edge nearest to the
// projected point.
type Snap struct {
	Node      da.Index
	EdgeId    da.Index
	Projected geo.Coordinate
	Distance  float64 // meters from the query point to the projected point
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[da.Index]
	return &Rtree{
		tr: &tr,
	}
}

// Build. build r-tree, with each leaf having bounding box with radius boundingBoxRadius (in km) around both
// endpoints of an edge. shortcuts are skipped.
func (rt *Rtree) Build(graph *da.Graph, boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	rt.graph = graph

	n := graph.NumberOfVertices()
	for u := da.Index(0); u < da.Index(n); u++ {
		graph.ForOutEdgesOf(u, func(e *da.Edge) {
			if e.IsShortcut() {
				return
			}
			from := graph.GetVertex(e.GetTail())
			to := graph.GetVertex(e.GetHead())

			lowerFromLat, lowerFromLon := geo.GetDestinationPoint(from.GetLat(), from.GetLon(), 225, boundingBoxRadius)
			upperFromLat, upperFromLon := geo.GetDestinationPoint(from.GetLat(), from.GetLon(), 45, boundingBoxRadius)

			lowerToLat, lowerToLon := geo.GetDestinationPoint(to.GetLat(), to.GetLon(), 225, boundingBoxRadius)
			upperToLat, upperToLon := geo.GetDestinationPoint(to.GetLat(), to.GetLon(), 45, boundingBoxRadius)

			minLat := math.Min(lowerFromLat, lowerToLat)
			minLon := math.Min(lowerFromLon, lowerToLon)
			maxLat := math.Max(upperFromLat, upperToLat)
			maxLon := math.Max(upperFromLon, upperToLon)

			rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, e.GetEdgeId())
		})
	}

	log.Info("R-tree spatial index built.", zap.Int("edges", rt.tr.Len()))
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius returns every edge whose box intersects the box of radius (in km) around (qLat, qLon).
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []da.Index {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]da.Index, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data da.Index) bool {
			results = append(results, data)
			return true
		})
	return results
}

// Snap returns the node nearest to (qLat, qLon) reached through the closest edge within radius km.
func (rt *Rtree) Snap(qLat, qLon, radius float64) (Snap, error) {
	if rt.graph == nil {
		return Snap{}, util.WrapErrorf(nil, util.ErrInternalServerError, "r-tree not built")
	}
	query := geo.NewCoordinate(qLat, qLon)

	best := Snap{Node: da.INVALID_NODE_ID, EdgeId: da.INVALID_EDGE_ID, Distance: math.Inf(1)}
	for _, eId := range rt.SearchWithinRadius(qLat, qLon, radius) {
		e := rt.graph.GetEdge(eId)
		tail := rt.graph.GetVertex(e.GetTail())
		head := rt.graph.GetVertex(e.GetHead())

		projected, dist := geo.ProjectPointToSegment(geo.NewCoordinate(tail.GetLat(), tail.GetLon()),
			geo.NewCoordinate(head.GetLat(), head.GetLon()), query)
		if dist >= best.Distance {
			continue
		}

		node := e.GetTail()
		toTail := geo.CalculateHaversineDistance(projected.Lat, projected.Lon, tail.GetLat(), tail.GetLon())
		toHead := geo.CalculateHaversineDistance(projected.Lat, projected.Lon, head.GetLat(), head.GetLon())
		if toHead < toTail {
			node = e.GetHead()
		}
		best = Snap{Node: node, EdgeId: eId, Projected: projected, Distance: dist}
	}

	if best.Node == da.INVALID_NODE_ID {
		return Snap{}, util.WrapErrorf(nil, util.ErrNotFound, "no road within %.3f km of (%f, %f)", radius, qLat, qLon)
	}
	return best, nil
}
