package landmark

import (
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
)

// coreDijkstra is a one-to-all search over the core subgraph: both endpoints of every relaxed edge are core
// nodes and the edge passes the filter. distances are indexed by core index.
type coreDijkstra struct {
	graph     *da.Graph
	weighting costfunction.Weighting
	accept    filter.Predicate
	coreIndex []int32

	// when subnetwork >= 0 the search never leaves that component
	partition  *da.CorePartition
	subnetwork int32

	dist      []float64
	heapNodes []*da.PriorityQueueNode[da.Index]
	pq        *da.MinHeap[da.Index]

	numSettledNodes int
}

func newCoreDijkstra(graph *da.Graph, weighting costfunction.Weighting, accept filter.Predicate,
	coreIndex []int32, coreSize int) *coreDijkstra {
	return &coreDijkstra{
		graph:      graph,
		weighting:  weighting,
		accept:     accept,
		coreIndex:  coreIndex,
		subnetwork: -1,
		dist:       make([]float64, coreSize),
		heapNodes:  make([]*da.PriorityQueueNode[da.Index], coreSize),
		pq:         da.NewFourAryHeap[da.Index](),
	}
}

func (cd *coreDijkstra) restrictTo(partition *da.CorePartition, subnetwork int32) {
	cd.partition = partition
	cd.subnetwork = subnetwork
}

// shortestPaths returns the distance from the nearest source to every core node, or to the nearest source
// when reverse is set. unreachable nodes get 2*INF_WEIGHT. The returned slice is reused by the next call.
func (cd *coreDijkstra) shortestPaths(sources []da.Index, reverse bool) []float64 {
	for i := range cd.dist {
		cd.dist[i] = 2 * pkg.INF_WEIGHT
		cd.heapNodes[i] = nil
	}
	cd.pq.Clear()
	cd.numSettledNodes = 0

	for _, s := range sources {
		si := cd.coreIndex[s]
		if si < 0 || cd.heapNodes[si] != nil {
			continue
		}
		cd.dist[si] = 0
		cd.heapNodes[si] = da.NewPriorityQueueNode(0, s)
		cd.pq.Insert(cd.heapNodes[si])
	}

	for !cd.pq.IsEmpty() {
		item, _ := cd.pq.ExtractMin()
		u := item.GetItem()
		du := item.GetRank()
		cd.numSettledNodes++

		cd.graph.ForEdgesOf(u, reverse, func(e *da.Edge) {
			v := e.GetAdjacent(reverse)
			vi := cd.coreIndex[v]
			if vi < 0 {
				return
			}
			if cd.subnetwork >= 0 && cd.partition.GetComponentOf(v) != cd.subnetwork {
				return
			}
			if !cd.accept.Accept(e) {
				return
			}
			w := cd.weighting.GetWeight(e, reverse, da.INVALID_EDGE_ID)
			if w >= pkg.INF_WEIGHT {
				return
			}

			newDist := du + w
			if newDist >= cd.dist[vi] {
				return
			}
			cd.dist[vi] = newDist
			if cd.heapNodes[vi] == nil || !cd.pq.Contains(cd.heapNodes[vi]) {
				cd.heapNodes[vi] = da.NewPriorityQueueNode(newDist, v)
				cd.pq.Insert(cd.heapNodes[vi])
			} else {
				_ = cd.pq.DecreaseKey(cd.heapNodes[vi], newDist)
			}
		})
	}
	return cd.dist
}
