package spatialindex

import (
	"testing"

	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// three nodes on a horizontal line, about 1.1 km apart, plus one node far north.
func buildLineGraph() *da.Graph {
	g := da.NewGraph()
	a := g.AddVertex(-7.0, 110.00)
	b := g.AddVertex(-7.0, 110.01)
	c := g.AddVertex(-7.0, 110.02)
	d := g.AddVertex(-6.9, 110.01)
	g.AddBidirectionalEdge(a, b, 1104, da.EdgeAttributes{})
	g.AddBidirectionalEdge(b, c, 1104, da.EdgeAttributes{})
	g.AddBidirectionalEdge(b, d, 11119, da.EdgeAttributes{})
	return g
}

func TestRtreeSnap(t *testing.T) {
	g := buildLineGraph()
	rt := NewRtree()
	rt.Build(g, 0.05, zaptest.NewLogger(t))
	assert.Equal(t, 6, rt.Len())

	testCases := []struct {
		name     string
		lat, lon float64
		wantNode da.Index
	}{
		{name: "near a", lat: -7.0005, lon: 110.001, wantNode: 0},
		{name: "near b from below", lat: -7.0005, lon: 110.0098, wantNode: 1},
		{name: "near c", lat: -6.9995, lon: 110.019, wantNode: 2},
		{name: "on the north road near d", lat: -6.901, lon: 110.0101, wantNode: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := rt.Snap(tc.lat, tc.lon, 0.5)
			require.NoError(t, err)
			assert.Equal(t, tc.wantNode, snap.Node)
			assert.Less(t, snap.Distance, 500.0)
		})
	}
}

func TestRtreeSnapNoRoad(t *testing.T) {
	rt := NewRtree()
	rt.Build(buildLineGraph(), 0.05, zaptest.NewLogger(t))

	_, err := rt.Snap(10.0, 10.0, 0.5)
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = NewRtree().Snap(-7.0, 110.0, 0.5)
	assert.ErrorIs(t, err, util.ErrInternalServerError)
}

func TestRtreeSnapsEveryNodeToItself(t *testing.T) {
	g := da.GenerateRandomGraph(200, 80, 9, -7.78, 110.37)
	rt := NewRtree()
	rt.Build(g, 0.05, zaptest.NewLogger(t))

	for v := da.Index(0); v < da.Index(g.NumberOfVertices()); v++ {
		vertex := g.GetVertex(v)
		snap, err := rt.Snap(vertex.GetLat(), vertex.GetLon(), 0.5)
		require.NoError(t, err, "node %d", v)
		assert.Less(t, snap.Distance, 1.0, "node %d", v)
		assert.Equal(t, v, snap.Node)
	}
}

func TestSearchWithinRadiusReturnsAllEdges(t *testing.T) {
	g := da.NewGraph()
	hub := g.AddVertex(-7.0, 110.0)
	for i := 0; i < 30; i++ {
		v := g.AddVertex(-7.0+float64(i)*0.0001, 110.001)
		g.AddEdge(hub, v, 120, da.EdgeAttributes{})
	}
	rt := NewRtree()
	rt.Build(g, 0.05, zaptest.NewLogger(t))

	assert.Len(t, rt.SearchWithinRadius(-7.0, 110.0, 0.5), 30)
}
