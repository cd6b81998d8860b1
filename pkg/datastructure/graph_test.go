package datastructure

import (
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0 -> 1 -> 2 plus 3 -> 1, a shortcut 0 -> 2 over the first two edges.
func buildTurnTestGraph() (*Graph, [3]Index, Index) {
	g := NewGraph()
	for i := 0; i < 4; i++ {
		g.AddVertex(-7.0, 110.0+float64(i)*0.01)
	}
	attr := NewEdgeAttributes(pkg.RESIDENTIAL, SURFACE_ASPHALT, 0)
	e01 := g.AddEdge(0, 1, 1200, attr)
	e12 := g.AddEdge(1, 2, 1200, attr)
	e31 := g.AddEdge(3, 1, 1200, attr)
	sc := g.AddShortcut(0, 2, 2400, 2400, e01, e12, 2)
	return g, [3]Index{e01, e12, e31}, sc
}

func TestTurnCosts(t *testing.T) {
	g, edges, sc := buildTurnTestGraph()
	e01, e12, e31 := edges[0], edges[1], edges[2]

	require.NoError(t, g.SetTurnCost(e31, e12, 30))
	require.NoError(t, g.AddTurnRestriction(e01, e12))

	testCases := []struct {
		name     string
		from, to Index
		wantErr  bool
	}{
		{name: "edges do not meet", from: e12, to: e01, wantErr: true},
		{name: "shortcut", from: sc, to: e12, wantErr: true},
		{name: "meeting edges", from: e31, to: e12},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.SetTurnCost(tc.from, tc.to, 30)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.True(t, g.HasTurnCosts())
	assert.Equal(t, 2, g.NumberOfTurnCosts())
	assert.Equal(t, 30.0, g.GetTurnCost(e31, 1, e12))
	assert.Equal(t, pkg.INF_WEIGHT, g.GetTurnCost(e01, 1, e12))
	assert.Equal(t, 0.0, g.GetTurnCost(INVALID_EDGE_ID, 1, e12))
	assert.True(t, g.IsTurnRelevant(e01))
	assert.False(t, g.IsTurnRelevant(sc))

	assert.Equal(t, e01, g.FirstOriginalEdge(sc))
	assert.Equal(t, e12, g.LastOriginalEdge(sc))

	g.MarkPrepared()
	assert.Error(t, g.SetTurnCost(e31, e12, 10))
}

func TestGraphRoundTripKeepsTurnCosts(t *testing.T) {
	g, edges, _ := buildTurnTestGraph()
	require.NoError(t, g.SetTurnCost(edges[2], edges[1], 12.5))
	require.NoError(t, g.AddTurnRestriction(edges[0], edges[1]))
	g.SetLevel(0, 1)
	g.SetLevel(3, 2)
	g.MarkPrepared()

	filename := filepath.Join(t.TempDir(), "graph.bz2")
	require.NoError(t, g.WriteGraph(filename))
	read, err := ReadGraph(filename)
	require.NoError(t, err)

	assert.True(t, read.IsPrepared())
	assert.Equal(t, g.NumberOfEdges(), read.NumberOfEdges())
	assert.Equal(t, g.NumberOfShortcuts(), read.NumberOfShortcuts())
	assert.Equal(t, g.GetCoreNodeCount(), read.GetCoreNodeCount())

	type turn struct {
		from, via, to Index
		cost          float64
	}
	collect := func(g *Graph) []turn {
		turns := make([]turn, 0)
		g.ForEachTurnCost(func(from, via, to Index, cost float64) {
			turns = append(turns, turn{from: from, via: via, to: to, cost: cost})
		})
		return turns
	}
	assert.Equal(t, collect(g), collect(read))
	assert.Equal(t, pkg.INF_WEIGHT, read.GetTurnCost(edges[0], 1, edges[1]))
}
