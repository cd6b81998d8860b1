package costfunction

import (
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
)

func TestWeightings(t *testing.T) {
	g := da.NewGraph()
	g.AddVertex(0, 0)
	g.AddVertex(0, 0.01)
	slow := g.AddEdge(0, 1, 1000, da.NewEdgeAttributes(pkg.RESIDENTIAL, da.SURFACE_ASPHALT, 36))
	fast := g.AddEdge(1, 0, 1000, da.NewEdgeAttributes(pkg.MOTORWAY, da.SURFACE_ASPHALT, 0))
	sc := g.AddShortcut(0, 0, 42, 2000, slow, fast, 2)

	fastest := NewFastestWeighting(g)
	shortest := NewShortestWeighting()

	testCases := []struct {
		name      string
		weighting Weighting
		edge      da.Index
		want      float64
	}{
		{name: "shortest original", weighting: shortest, edge: slow, want: 1000},
		{name: "shortest shortcut keeps stored weight", weighting: shortest, edge: sc, want: 42},
		{name: "fastest maxspeed", weighting: fastest, edge: slow, want: 100},
		{name: "fastest highway default", weighting: fastest, edge: fast, want: 36},
		{name: "fastest shortcut keeps stored weight", weighting: fastest, edge: sc, want: 42},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.weighting.GetWeight(g.GetEdge(tt.edge), false, da.INVALID_EDGE_ID)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	assert.InDelta(t, 0.036, fastest.GetMinWeightPerMeter(), 1e-9)
	assert.Equal(t, 1.0, shortest.GetMinWeightPerMeter())

	w, ok := NewWeighting("fastest", g)
	assert.True(t, ok)
	assert.Equal(t, "fastest", w.Name())
	_, ok = NewWeighting("bike", g)
	assert.False(t, ok)
}
