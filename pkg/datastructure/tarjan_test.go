package datastructure

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildSCCTestGraph() *Graph {
	g := NewGraph()
	for i := 0; i < 7; i++ {
		g.AddVertex(0, float64(i)*0.001)
	}
	attr := NewEdgeAttributes(0, SURFACE_ASPHALT, 50)
	g.AddEdge(0, 1, 10, attr)
	g.AddEdge(1, 2, 10, attr)
	g.AddEdge(2, 0, 10, attr)
	g.AddEdge(2, 3, 10, attr)
	g.AddEdge(3, 4, 10, attr)
	g.AddEdge(4, 3, 10, attr) // edge id 5
	g.AddEdge(6, 0, 10, attr)
	g.MarkPrepared()
	return g
}

func sortedComponents(p *CorePartition) [][]Index {
	comps := make([][]Index, 0, p.NumberOfComponents())
	for _, c := range p.GetComponents() {
		cc := append([]Index(nil), c...)
		sort.Slice(cc, func(i, j int) bool { return cc[i] < cc[j] })
		comps = append(comps, cc)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

func TestFindCoreComponents(t *testing.T) {
	acceptAll := func(e *Edge) bool { return true }

	testCases := []struct {
		name                string
		accept              func(e *Edge) bool
		ignoreSingleEntries bool
		wantComponents      [][]Index
		wantSingles         int
	}{
		{
			name:                "single entries ignored",
			accept:              acceptAll,
			ignoreSingleEntries: true,
			wantComponents:      [][]Index{{0, 1, 2}, {3, 4}},
			wantSingles:         2,
		},
		{
			name:                "single entries kept as own components",
			accept:              acceptAll,
			ignoreSingleEntries: false,
			wantComponents:      [][]Index{{0, 1, 2}, {3, 4}, {5}, {6}},
			wantSingles:         0,
		},
		{
			name:                "rejected edge splits a component",
			accept:              func(e *Edge) bool { return e.GetEdgeId() != 5 },
			ignoreSingleEntries: true,
			wantComponents:      [][]Index{{0, 1, 2}, {3}},
			wantSingles:         3,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			g := buildSCCTestGraph()
			p := FindCoreComponents(g, tt.accept, tt.ignoreSingleEntries)

			assert.Equal(t, tt.wantComponents, sortedComponents(p))
			assert.Equal(t, tt.wantSingles, p.NumberOfSingleEntries())
			for compId, comp := range p.GetComponents() {
				for _, v := range comp {
					assert.Equal(t, int32(compId), p.GetComponentOf(v))
				}
			}
		})
	}
}

func TestFindCoreComponentsLongChain(t *testing.T) {
	// a long cycle would overflow a recursive implementation with a small stack budget
	n := 200000
	g := NewGraph()
	for i := 0; i < n; i++ {
		g.AddVertex(0, 0)
	}
	for i := 0; i < n; i++ {
		g.AddEdge(Index(i), Index((i+1)%n), 1, EdgeAttributes{})
	}
	g.MarkPrepared()

	p := FindCoreComponents(g, func(e *Edge) bool { return true }, true)
	assert.Equal(t, 1, p.NumberOfComponents())
	assert.Len(t, p.GetComponents()[0], n)
}

func TestFindCoreComponentsSkipsNonCore(t *testing.T) {
	g := buildSCCTestGraph()
	g.levels[1] = 1 // contracted before preparation finished
	g.MarkPrepared()

	p := FindCoreComponents(g, func(e *Edge) bool { return true }, true)
	assert.Equal(t, int32(-1), p.GetComponentOf(1))
	assert.Equal(t, [][]Index{{3, 4}}, sortedComponents(p))
}
