package routing

import (
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
)

type bucketEntry struct {
	target int
	weight float64
}

// upwardSpace is everything an upward search from one root settled. core holds the core nodes it parked.
type upwardSpace struct {
	weights map[da.Index]float64
	core    []da.Index
}

/*
[1] Knopp, S. et al. (2007) ‘Computing many-to-many shortest paths using highway hierarchies’, in Proceedings of the Ninth Workshop on Algorithm Engineering and Experiments (ALENEX). pp. 36–45.

CoreMatrix computes the weights between many sources and many targets with the two phases of the core search.

phase 1: one backward upward search per target leaves a bucket entry at every node it settles [1], core nodes
included. one forward upward search per source scans the buckets of the nodes it settles, that finds every path
meeting outside the core or on a core entry point.

phase 2: per source a multi source dijkstra inside the core starts from the core nodes its upward search parked
and combines every settled core node with the backward weights of the targets that parked there. the restriction
predicate is only evaluated here. a row is done once the queue minimum reaches the largest weight of the row.
*/
type CoreMatrix struct {
	graph           *da.Graph
	weighting       costfunction.Weighting
	predicate       filter.Predicate
	maxVisitedNodes int

	visitedNodes int
	coreEdges    int
}

// NewCoreMatrix builds a matrix search. The predicate must be covered by the preparation of graph and graph must
// not carry turn costs, the routing engine falls back to single queries otherwise. maxVisitedNodes bounds the nodes
// settled over the whole matrix.
func NewCoreMatrix(graph *da.Graph, weighting costfunction.Weighting, predicate filter.Predicate,
	maxVisitedNodes int) *CoreMatrix {
	if predicate == nil {
		predicate = filter.AcceptAll
	}
	return &CoreMatrix{
		graph:           graph,
		weighting:       weighting,
		predicate:       predicate,
		maxVisitedNodes: maxVisitedNodes,
	}
}

func (cm *CoreMatrix) GetVisitedNodes() int {
	return cm.visitedNodes
}

func (cm *CoreMatrix) GetCoreEdges() int {
	return cm.coreEdges
}

// Compute returns weights[i][j] from sources[i] to targets[j], pkg.INF_WEIGHT when there is no route.
func (cm *CoreMatrix) Compute(sources, targets []da.Index) ([][]float64, error) {
	weights := make([][]float64, len(sources))
	for i := range weights {
		weights[i] = make([]float64, len(targets))
		for j := range weights[i] {
			weights[i][j] = pkg.INF_WEIGHT
		}
	}

	buckets := make(map[da.Index][]bucketEntry)
	coreBuckets := make(map[da.Index][]bucketEntry)
	for j, target := range targets {
		space, err := cm.upward(target, true)
		if err != nil {
			return nil, err
		}
		for v, w := range space.weights {
			buckets[v] = append(buckets[v], bucketEntry{target: j, weight: w})
		}
		for _, c := range space.core {
			coreBuckets[c] = append(coreBuckets[c], bucketEntry{target: j, weight: space.weights[c]})
		}
	}

	for i, source := range sources {
		space, err := cm.upward(source, false)
		if err != nil {
			return nil, err
		}
		row := weights[i]
		for v, w := range space.weights {
			for _, b := range buckets[v] {
				if w+b.weight < row[b.target] {
					row[b.target] = w + b.weight
				}
			}
		}
		if len(space.core) == 0 || len(coreBuckets) == 0 {
			continue
		}
		if err := cm.searchCore(space, coreBuckets, row); err != nil {
			return nil, err
		}
	}
	return weights, nil
}

func (cm *CoreMatrix) budgetExceeded() error {
	if cm.visitedNodes >= cm.maxVisitedNodes {
		return util.WrapErrorf(nil, util.ErrSearchBudgetExceeded, "matrix settled %d nodes", cm.visitedNodes)
	}
	return nil
}

// upward runs a complete upward search from root. core nodes are settled but not expanded.
func (cm *CoreMatrix) upward(root da.Index, reverse bool) (upwardSpace, error) {
	space := upwardSpace{weights: make(map[da.Index]float64)}
	heapNodes := make(map[da.Index]*da.PriorityQueueNode[da.Index])
	pq := da.NewFourAryHeap[da.Index]()

	heapNodes[root] = da.NewPriorityQueueNode(0, root)
	pq.Insert(heapNodes[root])

	for !pq.IsEmpty() {
		item, _ := pq.ExtractMin()
		u, base := item.GetItem(), item.GetRank()
		space.weights[u] = base
		if cm.graph.IsCoreNode(u) {
			space.core = append(space.core, u)
			continue
		}

		if err := cm.budgetExceeded(); err != nil {
			return space, err
		}
		cm.visitedNodes++

		cm.graph.ForEdgesOf(u, reverse, func(e *da.Edge) {
			adj := e.GetAdjacent(reverse)
			if adj == u || !isUpward(cm.graph, u, adj) {
				return
			}
			if _, settled := space.weights[adj]; settled {
				return
			}
			w := cm.weighting.GetWeight(e, reverse, da.INVALID_EDGE_ID)
			if w >= pkg.INF_WEIGHT {
				return
			}
			cm.push(pq, heapNodes, adj, base+w)
		})
	}
	return space, nil
}

func (cm *CoreMatrix) push(pq *da.MinHeap[da.Index], heapNodes map[da.Index]*da.PriorityQueueNode[da.Index],
	v da.Index, weight float64) {
	node, ok := heapNodes[v]
	if !ok {
		node = da.NewPriorityQueueNode(weight, v)
		heapNodes[v] = node
		pq.Insert(node)
		return
	}
	if weight < node.GetRank() && pq.Contains(node) {
		_ = pq.DecreaseKey(node, weight)
	}
}

// rowBound is the largest weight of row, no core path of at least this weight can improve it.
func rowBound(row []float64) float64 {
	bound := 0.0
	for _, w := range row {
		if w > bound {
			bound = w
		}
	}
	return bound
}

func (cm *CoreMatrix) searchCore(space upwardSpace, coreBuckets map[da.Index][]bucketEntry, row []float64) error {
	heapNodes := make(map[da.Index]*da.PriorityQueueNode[da.Index])
	settled := make(map[da.Index]struct{})
	pq := da.NewFourAryHeap[da.Index]()
	for _, c := range space.core {
		cm.push(pq, heapNodes, c, space.weights[c])
	}

	for !pq.IsEmpty() && pq.GetMinrank() < rowBound(row) {
		if err := cm.budgetExceeded(); err != nil {
			return err
		}
		item, _ := pq.ExtractMin()
		u, base := item.GetItem(), item.GetRank()
		settled[u] = struct{}{}
		cm.visitedNodes++

		for _, b := range coreBuckets[u] {
			if base+b.weight < row[b.target] {
				row[b.target] = base + b.weight
			}
		}

		cm.graph.ForOutEdgesOf(u, func(e *da.Edge) {
			adj := e.GetHead()
			if adj == u || !cm.graph.IsCoreNode(adj) {
				return
			}
			if _, ok := settled[adj]; ok {
				return
			}
			cm.coreEdges++
			if !cm.predicate.Accept(e) {
				return
			}
			w := cm.weighting.GetWeight(e, false, da.INVALID_EDGE_ID)
			if w >= pkg.INF_WEIGHT {
				return
			}
			cm.push(pq, heapNodes, adj, base+w)
		})
	}
	return nil
}
