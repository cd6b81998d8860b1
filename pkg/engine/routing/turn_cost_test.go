package routing

import (
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0 - 1 - 2 turning left at 1, or around the block 1 - 3 - 4 - 2. returns the graph, the edge 0->1 and
// the edge 1->2.
func buildJunctionGraph() (*da.Graph, da.Index, da.Index) {
	g := da.NewGraph()
	g.AddVertex(-7.0, 110.0)
	g.AddVertex(-7.0, 110.01)
	g.AddVertex(-6.99, 110.01)
	g.AddVertex(-7.0, 110.014)
	g.AddVertex(-6.995, 110.014)
	attr := da.NewEdgeAttributes(pkg.RESIDENTIAL, da.SURFACE_ASPHALT, 0)
	e01, _ := g.AddBidirectionalEdge(0, 1, 1200, attr)
	e12, _ := g.AddBidirectionalEdge(1, 2, 1200, attr)
	g.AddBidirectionalEdge(1, 3, 1200, attr)
	g.AddBidirectionalEdge(3, 4, 700, attr)
	g.AddBidirectionalEdge(4, 2, 800, attr)
	return g, e01, e12
}

func containsTurn(edges []da.Index, from, to da.Index) bool {
	for i := 0; i+1 < len(edges); i++ {
		if edges[i] == from && edges[i+1] == to {
			return true
		}
	}
	return false
}

func TestTurnCostsInCore(t *testing.T) {
	testCases := []struct {
		name       string
		turnCost   float64
		wantWeight float64
		wantTurn   bool
	}{
		{name: "no turn cost", turnCost: 0, wantWeight: 2400, wantTurn: true},
		{name: "cheap turn", turnCost: 500, wantWeight: 2900, wantTurn: true},
		{name: "expensive turn", turnCost: 2000, wantWeight: 3900, wantTurn: false},
		{name: "restricted turn", turnCost: pkg.INF_WEIGHT, wantWeight: 3900, wantTurn: false},
	}

	for _, tc := range testCases {
		for _, algorithm := range []Algorithm{CORE_DIJKSTRA, CORE_ALT} {
			t.Run(tc.name+"/"+algorithm.String(), func(t *testing.T) {
				g, e01, e12 := buildJunctionGraph()
				require.NoError(t, g.SetTurnCost(e01, e12, tc.turnCost))
				engine := newTestEngine(t, g, costfunction.NewShortestWeighting(), filter.AcceptAll, contractor.DefaultConfig())
				pg := engine.GetGraph()
				require.True(t, pg.IsCoreNode(1))

				res, err := engine.ShortestPath(0, 2, filter.AcceptAll, testBudget, QueryOptions{Algorithm: algorithm})
				require.NoError(t, err)
				assert.InDelta(t, tc.wantWeight, res.TotalWeight, 1e-6)
				assert.Equal(t, tc.wantTurn, containsTurn(res.Edges, e01, e12))
				assert.Equal(t, da.Index(0), res.Nodes[0])
				assert.Equal(t, da.Index(2), res.Nodes[len(res.Nodes)-1])

				// the turn does not apply when starting at 1
				direct, err := engine.ShortestPath(1, 2, filter.AcceptAll, testBudget, QueryOptions{Algorithm: algorithm})
				require.NoError(t, err)
				assert.Equal(t, 1200.0, direct.TotalWeight)
				assert.Equal(t, []da.Index{e12}, direct.Edges)
			})
		}
	}
}

func TestTurnCostPathCountsEachEdgeOnce(t *testing.T) {
	g, e01, e12 := buildJunctionGraph()
	require.NoError(t, g.SetTurnCost(e01, e12, 300))
	engine := newTestEngine(t, g, costfunction.NewShortestWeighting(), filter.AcceptAll, contractor.DefaultConfig())
	pg := engine.GetGraph()

	search := NewCoreDijkstra(pg, engine.GetWeighting(), filter.AcceptAll, testBudget, da.NewSearchArena(64)).AbstractCoreSearch
	require.True(t, search.edgeBased)
	require.NoError(t, search.ShortestPathSearch(0, 2))
	assert.InDelta(t, 2700.0, search.bestWeight, 1e-6)

	// every edge of the packed path is counted once
	packed := search.packedPath()
	assert.Equal(t, []da.Index{e01, e12}, packed)
}
