package routing

import (
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

// ProxyNodeFinder looks for the nearest core node of a node, in travel direction or against it when reverse is set.
type ProxyNodeFinder struct {
	graph      *da.Graph
	weighting  costfunction.Weighting
	maxVisited int
}

func NewProxyNodeFinder(graph *da.Graph, weighting costfunction.Weighting, maxVisited int) *ProxyNodeFinder {
	if maxVisited <= 0 {
		maxVisited = pkg.DEFAULT_PROXY_MAX_VISITED
	}
	return &ProxyNodeFinder{
		graph:      graph,
		weighting:  weighting,
		maxVisited: maxVisited,
	}
}

// FindProxy runs a dijkstra from node that stops at the first settled core node. ok is false when no core node
// is settled within maxVisited nodes. Only edges leaving non core nodes are scanned, none of them is restricted,
// so no predicate is needed.
func (pf *ProxyNodeFinder) FindProxy(node da.Index, reverse bool) (da.Index, float64, bool) {
	if !pf.graph.IsValidNode(node) {
		return da.INVALID_NODE_ID, 0, false
	}
	if pf.graph.IsCoreNode(node) {
		return node, 0, true
	}
	dist := map[da.Index]float64{node: 0}
	heapNodes := map[da.Index]*da.PriorityQueueNode[da.Index]{}
	pq := da.NewBinaryHeap[da.Index]()
	heapNodes[node] = da.NewPriorityQueueNode(0, node)
	pq.Insert(heapNodes[node])

	visited := 0
	for !pq.IsEmpty() && visited < pf.maxVisited {
		item, _ := pq.ExtractMin()
		u := item.GetItem()
		visited++
		if pf.graph.IsCoreNode(u) {
			return u, item.GetRank(), true
		}

		pf.graph.ForEdgesOf(u, reverse, func(e *da.Edge) {
			w := pf.weighting.GetWeight(e, reverse, da.INVALID_EDGE_ID)
			if w >= pkg.INF_WEIGHT {
				return
			}
			v := e.GetAdjacent(reverse)
			nd := item.GetRank() + w
			old, seen := dist[v]
			if seen && nd >= old {
				return
			}
			dist[v] = nd
			if hn, ok := heapNodes[v]; ok && pq.Contains(hn) {
				_ = pq.DecreaseKey(hn, nd)
				return
			}
			heapNodes[v] = da.NewPriorityQueueNode(nd, v)
			pq.Insert(heapNodes[v])
		})
	}
	return da.INVALID_NODE_ID, 0, false
}
