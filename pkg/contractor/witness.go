package contractor

import (
	"github.com/lintang-b-s/corerouter/pkg"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

type witnessKey struct {
	node da.Index
	hops int
}

// witnessSearch holds reusable state for the bounded witness searches of one preparation.
// dist is reset through the touched list instead of a full clear.
type witnessSearch struct {
	dist    []float64
	touched []da.Index
	pq      *da.MinHeap[witnessKey]

	maxSettled int
	maxHops    int
}

func newWitnessSearch(numNodes, maxSettled, maxHops int) *witnessSearch {
	dist := make([]float64, numNodes)
	for i := range dist {
		dist[i] = pkg.INF_WEIGHT
	}
	return &witnessSearch{
		dist:       dist,
		touched:    make([]da.Index, 0, 64),
		pq:         da.NewFourAryHeap[witnessKey](),
		maxSettled: maxSettled,
		maxHops:    maxHops,
	}
}

func (ws *witnessSearch) reset() {
	for _, v := range ws.touched {
		ws.dist[v] = pkg.INF_WEIGHT
	}
	ws.touched = ws.touched[:0]
	ws.pq.Clear()
}

func (ws *witnessSearch) getDist(v da.Index) float64 {
	return ws.dist[v]
}

// run is a single Dijkstra from source that never enters excluded or an already contracted node and only
// follows edges the structural filter accepts, so every witness it finds survives any query predicate.
// one run per in-neighbor replaces a search per (in, out) pair. Distances above maxWeight are not explored.
func (ws *witnessSearch) run(pc *PrepareCore, source, excluded da.Index, maxWeight float64) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.pq.Insert(da.NewPriorityQueueNode(0, witnessKey{node: source, hops: 0}))

	settled := 0
	for !ws.pq.IsEmpty() {
		item, _ := ws.pq.ExtractMin()
		cur := item.GetItem()
		curDist := item.GetRank()

		// stale
		if curDist > ws.dist[cur.node] {
			continue
		}

		settled++
		if settled >= ws.maxSettled {
			break
		}

		if curDist > maxWeight || cur.hops >= ws.maxHops {
			continue
		}

		pc.graph.ForOutEdgesOf(cur.node, func(e *da.Edge) {
			to := e.GetHead()
			if to == excluded || pc.contracted[to] || !pc.isUnrestricted(e) {
				return
			}

			newDist := curDist + pc.edgeWeight(e)
			if newDist > maxWeight || newDist >= ws.dist[to] {
				return
			}

			if ws.dist[to] >= pkg.INF_WEIGHT {
				ws.touched = append(ws.touched, to)
			}
			ws.dist[to] = newDist
			ws.pq.Insert(da.NewPriorityQueueNode(newDist, witnessKey{node: to, hops: cur.hops + 1}))
		})
	}
}
