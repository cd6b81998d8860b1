package datastructure

import (
	"fmt"
	"math"
	"sort"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/geo"
)

type Index uint32

const (
	INVALID_EDGE_ID Index = math.MaxUint32
	INVALID_NODE_ID Index = math.MaxUint32
)

type Vertex struct {
	lat float64
	lon float64
	id  Index
}

func NewVertex(lat, lon float64, id Index) *Vertex {
	return &Vertex{
		lat: lat,
		lon: lon,
		id:  id,
	}
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetLat() float64 {
	return v.lat
}

func (v *Vertex) GetLon() float64 {
	return v.lon
}

// Edge is a directed edge tail->head. Shortcuts bypass exactly one contracted node:
// skipped1 is the edge tail->via and skipped2 the edge via->head.
type Edge struct {
	id       Index
	tail     Index
	head     Index
	weight   float64 // shortcut weight under the weighting that created it
	dist     float64 // meter
	shortcut bool
	skipped1 Index
	skipped2 Index

	originalEdgeCount int
}

func (e *Edge) GetEdgeId() Index {
	return e.id
}

func (e *Edge) GetTail() Index {
	return e.tail
}

func (e *Edge) GetHead() Index {
	return e.head
}

// GetAdjacent returns the node reached when traversing e out of its base: head for forward searches, tail for backward ones.
func (e *Edge) GetAdjacent(reverse bool) Index {
	if reverse {
		return e.tail
	}
	return e.head
}

func (e *Edge) GetBase(reverse bool) Index {
	if reverse {
		return e.head
	}
	return e.tail
}

func (e *Edge) GetWeight() float64 {
	return e.weight
}

func (e *Edge) GetLength() float64 {
	return e.dist
}

func (e *Edge) IsShortcut() bool {
	return e.shortcut
}

func (e *Edge) GetSkippedEdges() (Index, Index) {
	return e.skipped1, e.skipped2
}

func (e *Edge) GetOriginalEdgeCount() int {
	return e.originalEdgeCount
}

// Graph is a directed road graph plus the shortcuts and node levels added by core contraction.
// A Graph is mutated only while it is being built or prepared. After that it is shared read-only between queries.
type Graph struct {
	vertices []*Vertex
	edges    []*Edge
	outEdges [][]Index // adjacency list
	inEdges  [][]Index

	attributes []EdgeAttributes // indexed by original edge id

	levels           []uint32
	coreLevel        uint32
	coreNodeCount    int
	numOriginalEdges int
	prepared         bool

	turnCosts    map[turnKey]float64 // between original edges, pkg.INF_WEIGHT forbids the turn
	turnRelevant map[Index]struct{}  // original edges taking part in a turn cost entry
}

type turnKey struct {
	from, via, to Index
}

func NewGraph() *Graph {
	return &Graph{
		vertices:   make([]*Vertex, 0),
		edges:      make([]*Edge, 0),
		outEdges:   make([][]Index, 0),
		inEdges:    make([][]Index, 0),
		attributes: make([]EdgeAttributes, 0),
		levels:     make([]uint32, 0),

		turnCosts:    make(map[turnKey]float64),
		turnRelevant: make(map[Index]struct{}),
	}
}

func (g *Graph) AddVertex(lat, lon float64) Index {
	id := Index(len(g.vertices))
	g.vertices = append(g.vertices, NewVertex(lat, lon, id))
	g.outEdges = append(g.outEdges, make([]Index, 0, 2))
	g.inEdges = append(g.inEdges, make([]Index, 0, 2))
	g.levels = append(g.levels, pkg.LEVEL_UNASSIGNED)
	return id
}

// AddEdge adds an original directed edge. Original edges must all be added before the first shortcut.
func (g *Graph) AddEdge(tail, head Index, dist float64, attr EdgeAttributes) Index {
	id := Index(len(g.edges))
	g.edges = append(g.edges, &Edge{
		id:                id,
		tail:              tail,
		head:              head,
		dist:              dist,
		skipped1:          INVALID_EDGE_ID,
		skipped2:          INVALID_EDGE_ID,
		originalEdgeCount: 1,
	})
	g.attributes = append(g.attributes, attr)
	g.outEdges[tail] = append(g.outEdges[tail], id)
	g.inEdges[head] = append(g.inEdges[head], id)
	g.numOriginalEdges++
	return id
}

// AddBidirectionalEdge adds tail->head and head->tail with the same attributes.
func (g *Graph) AddBidirectionalEdge(u, v Index, dist float64, attr EdgeAttributes) (Index, Index) {
	return g.AddEdge(u, v, dist, attr), g.AddEdge(v, u, dist, attr)
}

func (g *Graph) AddShortcut(tail, head Index, weight, dist float64, skipped1, skipped2 Index, originalEdgeCount int) Index {
	id := Index(len(g.edges))
	g.edges = append(g.edges, &Edge{
		id:                id,
		tail:              tail,
		head:              head,
		weight:            weight,
		dist:              dist,
		shortcut:          true,
		skipped1:          skipped1,
		skipped2:          skipped2,
		originalEdgeCount: originalEdgeCount,
	})
	g.outEdges[tail] = append(g.outEdges[tail], id)
	g.inEdges[head] = append(g.inEdges[head], id)
	return id
}

// Clone copies the topology, levels and turn costs. Vertices and edge attributes are immutable and shared.
func (g *Graph) Clone() *Graph {
	ng := &Graph{
		vertices:         g.vertices,
		attributes:       g.attributes,
		edges:            make([]*Edge, len(g.edges)),
		outEdges:         make([][]Index, len(g.outEdges)),
		inEdges:          make([][]Index, len(g.inEdges)),
		levels:           make([]uint32, len(g.levels)),
		coreLevel:        g.coreLevel,
		coreNodeCount:    g.coreNodeCount,
		numOriginalEdges: g.numOriginalEdges,
		prepared:         g.prepared,
		turnCosts:        make(map[turnKey]float64, len(g.turnCosts)),
		turnRelevant:     make(map[Index]struct{}, len(g.turnRelevant)),
	}
	for i, e := range g.edges {
		ce := *e
		ng.edges[i] = &ce
	}
	for v := range g.outEdges {
		ng.outEdges[v] = append(make([]Index, 0, len(g.outEdges[v])), g.outEdges[v]...)
		ng.inEdges[v] = append(make([]Index, 0, len(g.inEdges[v])), g.inEdges[v]...)
	}
	copy(ng.levels, g.levels)
	for k, cost := range g.turnCosts {
		ng.turnCosts[k] = cost
	}
	for eId := range g.turnRelevant {
		ng.turnRelevant[eId] = struct{}{}
	}
	return ng
}

func (g *Graph) ForOutEdgesOf(u Index, handle func(e *Edge)) {
	for _, eId := range g.outEdges[u] {
		handle(g.edges[eId])
	}
}

func (g *Graph) ForInEdgesOf(u Index, handle func(e *Edge)) {
	for _, eId := range g.inEdges[u] {
		handle(g.edges[eId])
	}
}

// ForEdgesOf iterates the out edges of u, or its in edges when reverse is set.
func (g *Graph) ForEdgesOf(u Index, reverse bool, handle func(e *Edge)) {
	if reverse {
		g.ForInEdgesOf(u, handle)
		return
	}
	g.ForOutEdgesOf(u, handle)
}

func (g *Graph) GetEdge(eId Index) *Edge {
	return g.edges[eId]
}

func (g *Graph) GetEdgeAttributes(eId Index) EdgeAttributes {
	return g.attributes[eId]
}

func (g *Graph) GetVertex(v Index) *Vertex {
	return g.vertices[v]
}

func (g *Graph) GetVertices() []*Vertex {
	return g.vertices
}

func (g *Graph) GetOutDegree(u Index) int {
	return len(g.outEdges[u])
}

func (g *Graph) GetInDegree(u Index) int {
	return len(g.inEdges[u])
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) NumberOfOriginalEdges() int {
	return g.numOriginalEdges
}

func (g *Graph) NumberOfShortcuts() int {
	return len(g.edges) - g.numOriginalEdges
}

func (g *Graph) IsValidNode(v Index) bool {
	return int(v) < len(g.vertices)
}

func (g *Graph) GetLevel(v Index) uint32 {
	if int(v) >= len(g.levels) {
		return pkg.LEVEL_UNASSIGNED
	}
	return g.levels[v]
}

func (g *Graph) SetLevel(v Index, level uint32) {
	g.levels[v] = level
}

// GetCoreLevel is NumberOfVertices()+1 once the graph is prepared.
func (g *Graph) GetCoreLevel() uint32 {
	return g.coreLevel
}

func (g *Graph) IsCoreNode(v Index) bool {
	return g.prepared && g.GetLevel(v) == g.coreLevel
}

func (g *Graph) GetCoreNodeCount() int {
	return g.coreNodeCount
}

func (g *Graph) IsPrepared() bool {
	return g.prepared
}

// MarkPrepared assigns coreLevel to every node that did not receive a contraction level.
func (g *Graph) MarkPrepared() {
	g.coreLevel = uint32(len(g.vertices)) + 1
	g.coreNodeCount = 0
	for v := range g.levels {
		if g.levels[v] == pkg.LEVEL_UNASSIGNED {
			g.levels[v] = g.coreLevel
		}
		if g.levels[v] == g.coreLevel {
			g.coreNodeCount++
		}
	}
	g.prepared = true
}

// SetTurnCost sets the cost of turning from original edge from into original edge to at their common node.
// Turn costs must be set before the graph is prepared.
func (g *Graph) SetTurnCost(from, to Index, cost float64) error {
	if int(from) >= g.numOriginalEdges || int(to) >= g.numOriginalEdges {
		return fmt.Errorf("turn %d -> %d: turn costs are only defined between original edges", from, to)
	}
	via := g.edges[from].head
	if g.edges[to].tail != via {
		return fmt.Errorf("turn %d -> %d: edges do not share node %d", from, to, via)
	}
	if g.prepared {
		return fmt.Errorf("turn %d -> %d: graph is already prepared", from, to)
	}
	g.turnCosts[turnKey{from: from, via: via, to: to}] = cost
	g.turnRelevant[from] = struct{}{}
	g.turnRelevant[to] = struct{}{}
	return nil
}

// AddTurnRestriction forbids turning from original edge from into original edge to.
func (g *Graph) AddTurnRestriction(from, to Index) error {
	return g.SetTurnCost(from, to, pkg.INF_WEIGHT)
}

// GetTurnCost returns the cost of turning from edge from into edge to at via. Shortcuts are resolved to the
// original edges at via. A missing edge, e.g. at the start of a search, costs nothing.
func (g *Graph) GetTurnCost(from, via, to Index) float64 {
	if len(g.turnCosts) == 0 || from == INVALID_EDGE_ID || to == INVALID_EDGE_ID {
		return 0
	}
	return g.turnCosts[turnKey{from: g.LastOriginalEdge(from), via: via, to: g.FirstOriginalEdge(to)}]
}

func (g *Graph) HasTurnCosts() bool {
	return len(g.turnCosts) > 0
}

func (g *Graph) NumberOfTurnCosts() int {
	return len(g.turnCosts)
}

// IsTurnRelevant reports whether original edge eId takes part in a turn cost entry.
func (g *Graph) IsTurnRelevant(eId Index) bool {
	_, ok := g.turnRelevant[eId]
	return ok
}

// ForEachTurnCost visits the turn cost entries ordered by (from, to).
func (g *Graph) ForEachTurnCost(handle func(from, via, to Index, cost float64)) {
	keys := make([]turnKey, 0, len(g.turnCosts))
	for k := range g.turnCosts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	for _, k := range keys {
		handle(k.from, k.via, k.to, g.turnCosts[k])
	}
}

// FirstOriginalEdge returns the first original edge a shortcut unpacks to, or eId itself.
func (g *Graph) FirstOriginalEdge(eId Index) Index {
	for g.edges[eId].shortcut {
		eId = g.edges[eId].skipped1
	}
	return eId
}

// LastOriginalEdge returns the last original edge a shortcut unpacks to, or eId itself.
func (g *Graph) LastOriginalEdge(eId Index) Index {
	for g.edges[eId].shortcut {
		eId = g.edges[eId].skipped2
	}
	return eId
}

// HaversineMeters returns the great-circle distance between two nodes in meters.
func (g *Graph) HaversineMeters(u, v Index) float64 {
	a, b := g.vertices[u], g.vertices[v]
	return geo.CalculateHaversineDistance(a.lat, a.lon, b.lat, b.lon) * 1000
}
