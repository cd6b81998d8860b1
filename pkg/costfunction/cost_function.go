package costfunction

import (
	"github.com/lintang-b-s/corerouter/pkg"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

// Weighting turns edges into non negative costs. A prepared graph belongs to exactly one Weighting:
// shortcut weights are computed with it and GetWeight returns them unchanged.
type Weighting interface {
	Name() string
	// GetWeight returns the cost of traversing e; reverse is set when a backward search relaxes e,
	// prevEdgeId is the edge the search arrived on (INVALID_EDGE_ID at the root).
	GetWeight(e *da.Edge, reverse bool, prevEdgeId da.Index) float64
	// GetMinWeightPerMeter is a lower bound of weight/meter over all edges, used for beeline estimates.
	GetMinWeightPerMeter() float64
}

// ShortestWeighting weights edges by length in meters.
type ShortestWeighting struct{}

func NewShortestWeighting() *ShortestWeighting {
	return &ShortestWeighting{}
}

func (sw *ShortestWeighting) Name() string {
	return "shortest"
}

func (sw *ShortestWeighting) GetWeight(e *da.Edge, reverse bool, prevEdgeId da.Index) float64 {
	if e.IsShortcut() {
		return e.GetWeight()
	}
	return e.GetLength()
}

func (sw *ShortestWeighting) GetMinWeightPerMeter() float64 {
	return 1
}

// FastestWeighting weights edges by travel time in seconds.
type FastestWeighting struct {
	graph    *da.Graph
	maxSpeed float64 // km/h
}

func NewFastestWeighting(graph *da.Graph) *FastestWeighting {
	maxSpeed := 0.0
	for eId := 0; eId < graph.NumberOfOriginalEdges(); eId++ {
		speed := graph.GetEdgeAttributes(da.Index(eId)).GetSpeed()
		if speed > maxSpeed {
			maxSpeed = speed
		}
	}
	if maxSpeed == 0 {
		maxSpeed = pkg.DefaultSpeed(pkg.MOTORWAY)
	}
	return &FastestWeighting{graph: graph, maxSpeed: maxSpeed}
}

func (fw *FastestWeighting) Name() string {
	return "fastest"
}

func (fw *FastestWeighting) GetWeight(e *da.Edge, reverse bool, prevEdgeId da.Index) float64 {
	if e.IsShortcut() {
		return e.GetWeight()
	}
	speed := fw.graph.GetEdgeAttributes(e.GetEdgeId()).GetSpeed()
	if speed <= 0 {
		return pkg.INF_WEIGHT
	}
	return e.GetLength() / (speed / 3.6)
}

func (fw *FastestWeighting) GetMinWeightPerMeter() float64 {
	return 1 / (fw.maxSpeed / 3.6)
}

// NewWeighting resolves a weighting by name.
func NewWeighting(name string, graph *da.Graph) (Weighting, bool) {
	switch name {
	case "shortest":
		return NewShortestWeighting(), true
	case "fastest":
		return NewFastestWeighting(graph), true
	default:
		return nil, false
	}
}
