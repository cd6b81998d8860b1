package routing

import (
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

type searchPhase uint8

const (
	PHASE1_RUNNING searchPhase = iota
	PHASE1_DONE
	PHASE2_RUNNING
	FINISHED
)

func (p searchPhase) String() string {
	switch p {
	case PHASE1_RUNNING:
		return "phase1_running"
	case PHASE1_DONE:
		return "phase1_done"
	case PHASE2_RUNNING:
		return "phase2_running"
	default:
		return "finished"
	}
}

type Algorithm uint8

const (
	CORE_DIJKSTRA Algorithm = iota
	CORE_ALT
)

func (a Algorithm) String() string {
	if a == CORE_ALT {
		return "core_alt"
	}
	return "core_dijkstra"
}

func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "core_dijkstra", "dijkstra":
		return CORE_DIJKSTRA, true
	case "core_alt", "alt":
		return CORE_ALT, true
	}
	return CORE_DIJKSTRA, false
}

type QueryOptions struct {
	Algorithm   Algorithm
	LandmarkSet string // name of the landmark table used by CORE_ALT
}

// PathResult is the unpacked shortest path. Edges are original edge ids in travel order, Nodes has one more
// element than Edges.
type PathResult struct {
	TotalWeight  float64
	Distance     float64 // meter
	Edges        []da.Index
	Nodes        []da.Index
	VisitedNodes int
	CoreEdges    int // core edges shown to the restriction predicate
	Approximator string
	Uncontracted bool // the predicate was not covered by the preparation, the hierarchy was bypassed
}

// MatrixResult holds the weights from every source to every target, pkg.INF_WEIGHT where no route exists.
type MatrixResult struct {
	Weights      [][]float64
	VisitedNodes int
	CoreEdges    int
	Uncontracted bool // answered by single uncontracted queries
}

func newEmptyPathResult(node da.Index) *PathResult {
	return &PathResult{
		Edges: make([]da.Index, 0),
		Nodes: []da.Index{node},
	}
}

// labelKey identifies a search label. edge is the turn relevant edge the label was reached over, INVALID_EDGE_ID
// when the turn taken at node does not matter.
type labelKey struct {
	node, edge da.Index
}

// frontier is one direction of the bidirectional search.
type frontier struct {
	reverse  bool
	chPq     *da.MinHeap[da.EntryHandle]
	corePq   *da.MinHeap[da.EntryHandle]
	labels   map[labelKey]da.EntryHandle
	atNode   map[da.Index][]da.EntryHandle
	finished bool
}

func newFrontier(reverse bool) *frontier {
	return &frontier{
		reverse: reverse,
		chPq:    da.NewFourAryHeap[da.EntryHandle](),
		corePq:  da.NewFourAryHeap[da.EntryHandle](),
		labels:  make(map[labelKey]da.EntryHandle),
		atNode:  make(map[da.Index][]da.EntryHandle),
	}
}
