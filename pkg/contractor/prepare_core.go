package contractor

import (
	"math"
	"time"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type Config struct {
	PeriodicUpdatesPercentage int
	LazyUpdatesPercentage     int
	NeighborUpdatesPercentage int
	NodesContractedPercentage float64
	LogMessagesPercentage     float64

	WitnessMaxSettledNodes int
	WitnessMaxHops         int

	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		PeriodicUpdatesPercentage: 10,
		LazyUpdatesPercentage:     10,
		NeighborUpdatesPercentage: 90,
		NodesContractedPercentage: 99.75,
		LogMessagesPercentage:     20,
		WitnessMaxSettledNodes:    pkg.DEFAULT_WITNESS_MAX_SETTLED,
		WitnessMaxHops:            pkg.DEFAULT_WITNESS_MAX_HOPS,
		Seed:                      1,
	}
}

// PreparedGraph is a graph whose non core nodes carry contraction levels, plus the shortcuts added while
// contracting them. It is read-only and safe to share between queries.
type PreparedGraph struct {
	graph     *da.Graph
	weighting costfunction.Weighting
	coreNodes []da.Index
	shortcuts int
	coverage  filter.Coverage
}

func (pg *PreparedGraph) GetGraph() *da.Graph {
	return pg.graph
}

func (pg *PreparedGraph) GetWeighting() costfunction.Weighting {
	return pg.weighting
}

func (pg *PreparedGraph) GetCoreNodes() []da.Index {
	return pg.coreNodes
}

func (pg *PreparedGraph) NumberOfShortcuts() int {
	return pg.shortcuts
}

func (pg *PreparedGraph) GetLevel(v da.Index) uint32 {
	return pg.graph.GetLevel(v)
}

// GetCoverage returns the restrictions the structural filter of this preparation anticipated.
func (pg *PreparedGraph) GetCoverage() filter.Coverage {
	return pg.coverage
}

// NewPreparedGraph wraps a graph that was prepared earlier, e.g. one read back with da.ReadGraph. coverage must
// describe the structural filter the graph was prepared with.
func NewPreparedGraph(graph *da.Graph, weighting costfunction.Weighting, coverage filter.Coverage) (*PreparedGraph, error) {
	if !graph.IsPrepared() {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "graph for weighting %s has no contraction levels", weighting.Name())
	}
	coreNodes := make([]da.Index, 0, graph.GetCoreNodeCount())
	for v := 0; v < graph.NumberOfVertices(); v++ {
		if graph.IsCoreNode(da.Index(v)) {
			coreNodes = append(coreNodes, da.Index(v))
		}
	}
	return &PreparedGraph{
		graph:     graph,
		weighting: weighting,
		coreNodes: coreNodes,
		shortcuts: graph.NumberOfShortcuts(),
		coverage:  coverage,
	}, nil
}

/*
[1] Geisberger, R. et al. (2008) ‘Contraction Hierarchies: Faster and Simpler Hierarchical Routing in Road Networks’, in C.C. McGeoch (ed.) Experimental Algorithms. Berlin, Heidelberg: Springer, pp. 319–333.
[2] Delling, D. et al. (2009) ‘Engineering Route Planning Algorithms’, in J. Lerner, D. Wagner, and K.A. Zweig (eds) Algorithmics of Large and Complex Networks. Berlin, Heidelberg: Springer, pp. 117–139. (core-based routing, section 3.3)

PrepareCore contracts every node that does not touch an edge rejected by the structural filter or an edge that takes
part in a turn cost. the remaining nodes form the core, which is searched at query time with the per query
restriction predicate and the turn costs.
all working state lives in the PrepareCore value and is dropped after Prepare returns.
*/
type PrepareCore struct {
	graph            *da.Graph
	weighting        costfunction.Weighting
	structuralFilter filter.Predicate
	cfg              Config
	logger           *zap.Logger
	rng              *rand.Rand

	weights             []float64 // per edge id
	acceptedEdges       []bool    // structural filter result per original edge
	restricted          []bool
	contracted          []bool
	contractedNeighbors []int
	oldPriorities       []int
	heapNodes           []*da.PriorityQueueNode[da.Index]
	sortedNodes         *da.MinHeap[da.Index]
	witness             *witnessSearch

	neighborStamp []int
	stamp         int
}

// NewPrepareCore works on a clone of graph, so several weightings can be prepared from the same graph concurrently.
func NewPrepareCore(graph *da.Graph, weighting costfunction.Weighting, structuralFilter filter.Predicate,
	cfg Config, logger *zap.Logger) *PrepareCore {
	if structuralFilter == nil {
		structuralFilter = filter.AcceptAll
	}
	return &PrepareCore{
		graph:            graph.Clone(),
		weighting:        weighting,
		structuralFilter: structuralFilter,
		cfg:              cfg,
		logger:           logger,
		rng:              rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Prepare contracts graph for weighting. Nodes touching an edge rejected by structuralFilter stay in the core.
func Prepare(graph *da.Graph, weighting costfunction.Weighting, structuralFilter filter.Predicate, cfg Config,
	logger *zap.Logger) (*PreparedGraph, error) {
	return NewPrepareCore(graph, weighting, structuralFilter, cfg, logger).Prepare()
}

func (pc *PrepareCore) initFromGraph() {
	n := pc.graph.NumberOfVertices()
	m := pc.graph.NumberOfEdges()

	pc.weights = make([]float64, m)
	pc.acceptedEdges = make([]bool, m)
	pc.restricted = make([]bool, n)
	pc.contracted = make([]bool, n)
	pc.contractedNeighbors = make([]int, n)
	pc.oldPriorities = make([]int, n)
	pc.heapNodes = make([]*da.PriorityQueueNode[da.Index], n)
	pc.sortedNodes = da.NewFourAryHeap[da.Index]()
	pc.sortedNodes.Preallocate(n)
	pc.witness = newWitnessSearch(n, pc.cfg.WitnessMaxSettledNodes, pc.cfg.WitnessMaxHops)
	pc.neighborStamp = make([]int, n)

	for eId := 0; eId < m; eId++ {
		e := pc.graph.GetEdge(da.Index(eId))
		pc.weights[eId] = pc.weighting.GetWeight(e, false, da.INVALID_EDGE_ID)
		pc.acceptedEdges[eId] = e.IsShortcut() || (pc.structuralFilter.Accept(e) && !pc.graph.IsTurnRelevant(e.GetEdgeId()))
		if !pc.acceptedEdges[eId] {
			pc.restricted[e.GetTail()] = true
			pc.restricted[e.GetHead()] = true
		}
	}
}

func (pc *PrepareCore) edgeWeight(e *da.Edge) float64 {
	return pc.weights[e.GetEdgeId()]
}

func (pc *PrepareCore) isUnrestricted(e *da.Edge) bool {
	return pc.acceptedEdges[e.GetEdgeId()]
}

// Prepare runs the contraction and returns the prepared graph.
func (pc *PrepareCore) Prepare() (*PreparedGraph, error) {
	start := time.Now()
	n := pc.graph.NumberOfVertices()
	if n == 0 {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparation, "graph for weighting %s is empty", pc.weighting.Name())
	}
	if pc.graph.IsPrepared() {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparation, "graph for weighting %s is already prepared", pc.weighting.Name())
	}

	pc.initFromGraph()

	contractible := 0
	for v := da.Index(0); int(v) < n; v++ {
		if pc.restricted[v] {
			pc.oldPriorities[v] = pkg.RESTRICTION_PRIORITY
		} else {
			pc.oldPriorities[v] = pc.calculatePriority(v)
			contractible++
		}
		pc.heapNodes[v] = da.NewPriorityQueueNode(float64(pc.oldPriorities[v]), v)
		pc.sortedNodes.Insert(pc.heapNodes[v])
	}
	if contractible == 0 {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparation,
			"no contractible nodes for weighting %s: all %d nodes touch a restricted edge", pc.weighting.Name(), n)
	}

	pc.logger.Info("contracting graph",
		zap.String("weighting", pc.weighting.Name()),
		zap.Int("nodes", n),
		zap.Int("restrictedNodes", n-contractible))

	pc.contractNodes()
	pc.graph.MarkPrepared()

	prepared, err := NewPreparedGraph(pc.graph, pc.weighting, filter.CoverageOf(pc.structuralFilter))
	if err != nil {
		return nil, err
	}

	pc.logger.Info("done contracting graph",
		zap.String("weighting", pc.weighting.Name()),
		zap.Int("coreNodes", len(prepared.coreNodes)),
		zap.Int("shortcuts", prepared.shortcuts),
		zap.Duration("took", time.Since(start)))
	return prepared, nil
}

func percentageOf(size int, percentage float64) int {
	return int(math.Round(float64(size) / 100.0 * percentage))
}

func (pc *PrepareCore) contractNodes() {
	initSize := pc.sortedNodes.Size()

	periodicUpdatesCount := 0
	if pc.cfg.PeriodicUpdatesPercentage > 0 {
		periodicUpdatesCount = util.MaxInt(10, percentageOf(initSize, float64(pc.cfg.PeriodicUpdatesPercentage)))
	}
	lastNodesLazyUpdates := percentageOf(initSize, float64(pc.cfg.LazyUpdatesPercentage))
	nodesToAvoidContract := percentageOf(initSize, 100-pc.cfg.NodesContractedPercentage)
	logSize := percentageOf(initSize, pc.cfg.LogMessagesPercentage)

	level := uint32(1)
	counter := 0
	for !pc.sortedNodes.IsEmpty() {
		if periodicUpdatesCount > 0 && counter > 0 && counter%periodicUpdatesCount == 0 {
			pc.updateAllPriorities()
		}

		if logSize > 0 && counter > 0 && counter%logSize == 0 {
			pc.logger.Info("contraction progress",
				zap.String("weighting", pc.weighting.Name()),
				zap.Int("contracted", int(level-1)),
				zap.Int("remaining", pc.sortedNodes.Size()))
		}

		counter++
		polled, _ := pc.sortedNodes.ExtractMin()
		v := polled.GetItem()

		if pc.oldPriorities[v] == pkg.RESTRICTION_PRIORITY {
			// every node still queued touches a restricted edge or sits behind one in priority
			break
		}

		if pc.sortedNodes.Size() < lastNodesLazyUpdates {
			priority := pc.calculatePriority(v)
			pc.oldPriorities[v] = priority
			if !pc.sortedNodes.IsEmpty() && float64(priority) > pc.sortedNodes.GetMinrank() {
				pc.heapNodes[v] = da.NewPriorityQueueNode(float64(priority), v)
				pc.sortedNodes.Insert(pc.heapNodes[v])
				continue
			}
		}

		neighbors := pc.uncontractedNeighbors(v)
		pc.contractNode(v, level)
		level++

		if pc.sortedNodes.Size() < nodesToAvoidContract {
			break
		}

		for _, nn := range neighbors {
			pc.contractedNeighbors[nn]++
			if pc.restricted[nn] || pc.rng.Intn(100) >= pc.cfg.NeighborUpdatesPercentage {
				continue
			}
			priority := pc.calculatePriority(nn)
			if priority != pc.oldPriorities[nn] {
				pc.oldPriorities[nn] = priority
				_ = pc.sortedNodes.Update(pc.heapNodes[nn], float64(priority))
			}
		}
	}
}

func (pc *PrepareCore) updateAllPriorities() {
	for _, node := range pc.sortedNodes.Items() {
		v := node.GetItem()
		if pc.restricted[v] {
			continue
		}
		pc.oldPriorities[v] = pc.calculatePriority(v)
	}
	// ranks change in both directions, rebuild instead of sifting one by one
	queued := append([]*da.PriorityQueueNode[da.Index](nil), pc.sortedNodes.Items()...)
	pc.sortedNodes.Clear()
	for _, node := range queued {
		v := node.GetItem()
		node.SetRank(float64(pc.oldPriorities[v]))
		pc.sortedNodes.Insert(node)
	}
}

// uncontractedNeighbors lists every distinct uncontracted node adjacent to v, in adjacency order.
func (pc *PrepareCore) uncontractedNeighbors(v da.Index) []da.Index {
	pc.stamp++
	neighbors := make([]da.Index, 0, pc.graph.GetOutDegree(v)+pc.graph.GetInDegree(v))
	visit := func(nn da.Index) {
		if nn == v || pc.contracted[nn] || pc.neighborStamp[nn] == pc.stamp {
			return
		}
		pc.neighborStamp[nn] = pc.stamp
		neighbors = append(neighbors, nn)
	}
	pc.graph.ForOutEdgesOf(v, func(e *da.Edge) { visit(e.GetHead()) })
	pc.graph.ForInEdgesOf(v, func(e *da.Edge) { visit(e.GetTail()) })
	return neighbors
}

// priority = 10*edgeDifference + originalEdgesCount + contractedNeighbors
func (pc *PrepareCore) calculatePriority(v da.Index) int {
	shortcuts, originalEdgesCount := pc.findShortcuts(v, false)

	degree := 0
	countEdge := func(nn da.Index, e *da.Edge) {
		if nn != v && !pc.contracted[nn] && pc.edgeWeight(e) < pkg.INF_WEIGHT {
			degree++
		}
	}
	pc.graph.ForOutEdgesOf(v, func(e *da.Edge) { countEdge(e.GetHead(), e) })
	pc.graph.ForInEdgesOf(v, func(e *da.Edge) { countEdge(e.GetTail(), e) })

	edgeDifference := shortcuts - degree
	return 10*edgeDifference + originalEdgesCount + pc.contractedNeighbors[v]
}

type adjacentEdge struct {
	node   da.Index
	edge   *da.Edge
	weight float64
}

// cheapestEdges keeps the lightest edge per uncontracted neighbor; parallel edges would otherwise yield
// duplicate shortcuts.
func (pc *PrepareCore) cheapestEdges(v da.Index, reverse bool) []adjacentEdge {
	edges := make([]adjacentEdge, 0, 4)
	pos := make(map[da.Index]int, 4)
	pc.graph.ForEdgesOf(v, reverse, func(e *da.Edge) {
		nn := e.GetAdjacent(reverse)
		w := pc.edgeWeight(e)
		if nn == v || pc.contracted[nn] || w >= pkg.INF_WEIGHT {
			return
		}
		if i, ok := pos[nn]; ok {
			if w < edges[i].weight {
				edges[i] = adjacentEdge{node: nn, edge: e, weight: w}
			}
			return
		}
		pos[nn] = len(edges)
		edges = append(edges, adjacentEdge{node: nn, edge: e, weight: w})
	})
	return edges
}

// findShortcuts counts (and adds, when add is set) the shortcuts needed to contract v.
// returns the number of shortcuts and the sum of original edges they replace.
func (pc *PrepareCore) findShortcuts(v da.Index, add bool) (int, int) {
	inEdges := pc.cheapestEdges(v, true)
	outEdges := pc.cheapestEdges(v, false)
	if len(inEdges) == 0 || len(outEdges) == 0 {
		return 0, 0
	}

	maxOut := 0.0
	for _, out := range outEdges {
		maxOut = math.Max(maxOut, out.weight)
	}

	shortcuts, originalEdgesCount := 0, 0
	for _, in := range inEdges {
		pc.witness.run(pc, in.node, v, in.weight+maxOut)

		for _, out := range outEdges {
			if out.node == in.node {
				continue
			}
			scWeight := in.weight + out.weight
			if pc.witness.getDist(out.node) <= scWeight {
				continue
			}

			shortcuts++
			originalEdgesCount += in.edge.GetOriginalEdgeCount() + out.edge.GetOriginalEdgeCount()
			if add {
				pc.addShortcut(in.node, out.node, scWeight, in.edge, out.edge)
			}
		}
	}
	return shortcuts, originalEdgesCount
}

func (pc *PrepareCore) addShortcut(u, w da.Index, weight float64, inEdge, outEdge *da.Edge) {
	pc.graph.AddShortcut(u, w, weight, inEdge.GetLength()+outEdge.GetLength(),
		inEdge.GetEdgeId(), outEdge.GetEdgeId(),
		inEdge.GetOriginalEdgeCount()+outEdge.GetOriginalEdgeCount())
	pc.weights = append(pc.weights, weight)
	pc.acceptedEdges = append(pc.acceptedEdges, true)
}

func (pc *PrepareCore) contractNode(v da.Index, level uint32) {
	pc.findShortcuts(v, true)
	pc.graph.SetLevel(v, level)
	pc.contracted[v] = true
}
