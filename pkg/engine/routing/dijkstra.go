package routing

import (
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
)

// Dijkstra is a unidirectional search over the original edges only, every edge is shown to the predicate.
// It ignores levels and shortcuts, so it works on prepared and unprepared graphs alike.
type Dijkstra struct {
	graph     *da.Graph
	weighting costfunction.Weighting
	predicate filter.Predicate

	dist       []float64
	parentEdge []da.Index
	heapNodes  []*da.PriorityQueueNode[da.Index]
	pq         *da.MinHeap[da.Index]

	numSettledNodes int
}

func NewDijkstra(graph *da.Graph, weighting costfunction.Weighting, predicate filter.Predicate) *Dijkstra {
	if predicate == nil {
		predicate = filter.AcceptAll
	}
	return &Dijkstra{
		graph:     graph,
		weighting: weighting,
		predicate: predicate,
		pq:        da.NewFourAryHeap[da.Index](),
	}
}

func (us *Dijkstra) Preallocate() {
	n := us.graph.NumberOfVertices()
	us.dist = make([]float64, n)
	us.parentEdge = make([]da.Index, n)
	us.heapNodes = make([]*da.PriorityQueueNode[da.Index], n)
	for v := 0; v < n; v++ {
		us.dist[v] = pkg.INF_WEIGHT
		us.parentEdge[v] = da.INVALID_EDGE_ID
	}
	us.pq.Clear()
	us.pq.Preallocate(n)
	us.numSettledNodes = 0
}

// ShortestPath returns the weights from s to all vertices, INF_WEIGHT when unreachable.
func (us *Dijkstra) ShortestPath(s da.Index) []float64 {
	us.Preallocate()

	us.dist[s] = 0
	us.heapNodes[s] = da.NewPriorityQueueNode(0, s)
	us.pq.Insert(us.heapNodes[s])

	for !us.pq.IsEmpty() {
		us.graphSearchUni()
		us.numSettledNodes++
	}
	return us.dist
}

func (us *Dijkstra) graphSearchUni() {
	item, _ := us.pq.ExtractMin()
	uId := item.GetItem()

	us.graph.ForOutEdgesOf(uId, func(e *da.Edge) {
		if e.IsShortcut() || !us.predicate.Accept(e) {
			return
		}
		edgeWeight := us.weighting.GetWeight(e, false, us.parentEdge[uId])
		newWeight := us.dist[uId] + edgeWeight
		if newWeight >= pkg.INF_WEIGHT {
			return
		}

		vId := e.GetHead()
		if newWeight >= us.dist[vId] {
			return
		}
		us.dist[vId] = newWeight
		us.parentEdge[vId] = e.GetEdgeId()

		if us.heapNodes[vId] != nil && us.pq.Contains(us.heapNodes[vId]) {
			_ = us.pq.DecreaseKey(us.heapNodes[vId], newWeight)
			return
		}
		us.heapNodes[vId] = da.NewPriorityQueueNode(newWeight, vId)
		us.pq.Insert(us.heapNodes[vId])
	})
}

// PathTo returns the original edges of the shortest path to t found by the last ShortestPath call.
func (us *Dijkstra) PathTo(t da.Index) []da.Index {
	if us.dist[t] >= pkg.INF_WEIGHT {
		return nil
	}
	edges := make([]da.Index, 0)
	for v := t; us.parentEdge[v] != da.INVALID_EDGE_ID; {
		eId := us.parentEdge[v]
		edges = append(edges, eId)
		v = us.graph.GetEdge(eId).GetTail()
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges
}

func (us *Dijkstra) GetNumSettledNodes() int {
	return us.numSettledNodes
}
