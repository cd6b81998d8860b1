package routing

import (
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
)

// CoreDijkstra runs phase 2 as a plain bidirectional dijkstra inside the core.
type CoreDijkstra struct {
	*AbstractCoreSearch
}

func NewCoreDijkstra(graph *da.Graph, weighting costfunction.Weighting, predicate filter.Predicate,
	maxVisitedNodes int, arena *da.SearchArena) *CoreDijkstra {
	cd := &CoreDijkstra{
		AbstractCoreSearch: newAbstractCoreSearch(graph, weighting, predicate, maxVisitedNodes, arena),
	}
	cd.policy = cd
	return cd
}

func (cd *CoreDijkstra) prepareCore(source, target da.Index) {}

func (cd *CoreDijkstra) potential(v da.Index, reverse bool) float64 {
	return 0
}

func (cd *CoreDijkstra) terminationOffset() float64 {
	return 0
}

func (cd *CoreDijkstra) name() string {
	return "none"
}
