package routing

import (
	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

type PUCacheKey = da.Index

type PathUnpacker struct {
	graph   *da.Graph
	puCache *lru.Cache[PUCacheKey, []da.Index]
}

// NewPathUnpacker shares puCache across queries of one prepared graph. puCache may be nil.
func NewPathUnpacker(graph *da.Graph, puCache *lru.Cache[PUCacheKey, []da.Index]) *PathUnpacker {
	return &PathUnpacker{
		graph:   graph,
		puCache: puCache,
	}
}

/*
[1] Geisberger, R. et al. (2008) ‘Contraction Hierarchies: Faster and Simpler Hierarchical Routing in Road Networks’, in C.C. McGeoch (ed.) Experimental Algorithms. Berlin, Heidelberg: Springer, pp. 319–333.

unpackPath replaces every shortcut of packedPath by its two skipped edges until only original edges remain
(section 4.3 in [1]). the unpacked edges of a shortcut are cached by shortcut id.

time complexity: O(p), p = number of original edges of the unpacked path.
*/
func (pu *PathUnpacker) unpackPath(packedPath []da.Index) ([]da.Index, []da.Index, float64) {
	edges := make([]da.Index, 0, len(packedPath))
	for _, eId := range packedPath {
		edges = pu.unpackEdge(eId, edges)
	}

	nodes := make([]da.Index, 0, len(edges)+1)
	distance := 0.0
	for i, eId := range edges {
		e := pu.graph.GetEdge(eId)
		if i == 0 {
			nodes = append(nodes, e.GetTail())
		}
		nodes = append(nodes, e.GetHead())
		distance += e.GetLength()
	}
	return edges, nodes, distance
}

func (pu *PathUnpacker) unpackEdge(eId da.Index, out []da.Index) []da.Index {
	e := pu.graph.GetEdge(eId)
	if !e.IsShortcut() {
		return append(out, eId)
	}
	if pu.puCache != nil {
		if cached, ok := pu.puCache.Get(eId); ok {
			return append(out, cached...)
		}
	}

	start := len(out)
	skipped1, skipped2 := e.GetSkippedEdges()
	out = pu.unpackEdge(skipped1, out)
	out = pu.unpackEdge(skipped2, out)

	if pu.puCache != nil {
		pu.puCache.Add(eId, append([]da.Index(nil), out[start:]...))
	}
	return out
}
