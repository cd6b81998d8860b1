package routing

import (
	"testing"

	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMatrixMatchesDijkstra(t *testing.T, engine *CoreRoutingEngine, predicate filter.Predicate,
	sources, targets []da.Index, res *MatrixResult) {
	t.Helper()
	require.Len(t, res.Weights, len(sources))
	oracle := NewDijkstra(engine.GetGraph(), engine.GetWeighting(), predicate)
	for i, s := range sources {
		want := oracle.ShortestPath(s)
		require.Len(t, res.Weights[i], len(targets))
		for j, target := range targets {
			assert.InDelta(t, want[target], res.Weights[i][j], 1e-6, "%d -> %d", s, target)
		}
	}
}

func TestLadderMatrix(t *testing.T) {
	g, fwd, bwd := buildLadderGraph()
	structural := filter.NewStructuralFilter(g, filter.NewEdgeSetFilter(fwd, bwd))
	engine := newTestEngine(t, g, costfunction.NewShortestWeighting(), structural, contractor.DefaultConfig())
	pg := engine.GetGraph()

	all := []da.Index{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	testCases := []struct {
		name      string
		predicate filter.Predicate
		sources   []da.Index
		targets   []da.Index
	}{
		{name: "one to many", predicate: filter.AcceptAll, sources: []da.Index{2}, targets: all},
		{name: "many to many", predicate: filter.AcceptAll, sources: all, targets: all},
		{name: "many to many without 2-7", predicate: filter.Compose(pg, filter.NewEdgeSetFilter(fwd, bwd)), sources: all, targets: all},
		{name: "core nodes only", predicate: filter.AcceptAll, sources: []da.Index{2, 7}, targets: []da.Index{7, 2}},
		{name: "repeated nodes", predicate: filter.AcceptAll, sources: []da.Index{0, 0, 9}, targets: []da.Index{9, 9, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.ShortestPathMatrix(tc.sources, tc.targets, tc.predicate, testBudget)
			require.NoError(t, err)
			assert.False(t, res.Uncontracted)
			assertMatrixMatchesDijkstra(t, engine, tc.predicate, tc.sources, tc.targets, res)
		})
	}

	res, err := engine.ShortestPathMatrix([]da.Index{2}, []da.Index{7}, filter.Compose(pg, filter.NewEdgeSetFilter(fwd, bwd)), testBudget)
	require.NoError(t, err)
	assert.Equal(t, 3600.0, res.Weights[0][0])
}

func TestCoreMatrixOptimality(t *testing.T) {
	g := da.GenerateRandomGraph(300, 250, 43, -7.78, 110.37)
	structural := filter.NewStructuralFilter(g, filter.NewAvoidBordersFilter(), filter.NewSurfaceFilter(da.SURFACE_GRAVEL))
	engine := newTestEngine(t, g, costfunction.NewFastestWeighting(g), structural, contractor.DefaultConfig())
	pg := engine.GetGraph()

	sources := []da.Index{3, 17, 42, 99, 150, 201, 299}
	targets := []da.Index{0, 8, 64, 128, 180, 256, 3}
	area := orb.MultiPolygon{{{{110.36, -7.79}, {110.38, -7.79}, {110.38, -7.77}, {110.36, -7.77}, {110.36, -7.79}}}}

	testCases := []struct {
		name             string
		predicate        filter.Predicate
		wantUncontracted bool
	}{
		{name: "accept all", predicate: filter.AcceptAll},
		{name: "avoid borders", predicate: filter.Compose(pg, filter.NewAvoidBordersFilter())},
		{name: "avoid gravel and borders", predicate: filter.Compose(pg, filter.NewAvoidBordersFilter(),
			filter.NewSurfaceFilter(da.SURFACE_GRAVEL))},
		{name: "avoid area", predicate: filter.Compose(pg, filter.NewAvoidAreaFilter(area)), wantUncontracted: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.ShortestPathMatrix(sources, targets, tc.predicate, testBudget)
			require.NoError(t, err)
			assert.Equal(t, tc.wantUncontracted, res.Uncontracted)
			assertMatrixMatchesDijkstra(t, engine, tc.predicate, sources, targets, res)
		})
	}
}

func TestCoreMatrixPredicateOnlySeesCoreEdges(t *testing.T) {
	g := da.GenerateRandomGraph(300, 200, 47, -7.78, 110.37)
	structural := filter.NewStructuralFilter(g, filter.NewAvoidBordersFilter())
	engine := newTestEngine(t, g, costfunction.NewShortestWeighting(), structural, contractor.DefaultConfig())
	pg := engine.GetGraph()

	outside := 0
	counting := filter.NewCountingPredicate(filter.PredicateFunc(func(e *da.Edge) bool {
		if !pg.IsCoreNode(e.GetTail()) || !pg.IsCoreNode(e.GetHead()) {
			outside++
		}
		return e.IsShortcut() || !pg.GetEdgeAttributes(e.GetEdgeId()).IsBorderCrossing()
	}))

	nodes := []da.Index{1, 50, 100, 150, 200, 250}
	res, err := engine.ShortestPathMatrix(nodes, nodes, counting, testBudget)
	require.NoError(t, err)
	assert.Equal(t, 0, outside)
	assert.Equal(t, int64(res.CoreEdges), counting.Calls())
}

func TestMatrixErrors(t *testing.T) {
	g := da.GenerateRandomGraph(120, 60, 53, -7.78, 110.37)
	structural := filter.NewStructuralFilter(g, filter.NewAvoidBordersFilter())
	engine := newTestEngine(t, g, costfunction.NewShortestWeighting(), structural, contractor.DefaultConfig())

	testCases := []struct {
		name    string
		sources []da.Index
		budget  int
		wantErr error
	}{
		{name: "unknown node", sources: []da.Index{0, 500}, budget: testBudget, wantErr: util.ErrBadParamInput},
		{name: "no budget", sources: []da.Index{0}, budget: 0, wantErr: util.ErrBadParamInput},
		{name: "budget exceeded", sources: []da.Index{0, 30, 60, 90}, budget: 1, wantErr: util.ErrSearchBudgetExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ShortestPathMatrix(tc.sources, []da.Index{5, 119}, filter.AcceptAll, tc.budget)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	res, err := engine.ShortestPathMatrix(nil, []da.Index{5}, filter.AcceptAll, testBudget)
	require.NoError(t, err)
	assert.Empty(t, res.Weights)
}
