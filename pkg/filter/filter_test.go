package filter

import (
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterFixture struct {
	g        *da.Graph
	plain    da.Index
	border   da.Index
	gravel   da.Index
	limited  da.Index
	inArea   da.Index
	shortcut da.Index
}

func newFilterFixture() filterFixture {
	g := da.NewGraph()
	g.AddVertex(-7.0, 110.0)
	g.AddVertex(-7.0, 110.01)
	g.AddVertex(-7.5, 110.5) // inside the avoid area
	asphalt := da.NewEdgeAttributes(pkg.PRIMARY, da.SURFACE_ASPHALT, 0)

	f := filterFixture{g: g}
	f.plain = g.AddEdge(0, 1, 100, asphalt.WithCountries(1, 1))
	f.border = g.AddEdge(1, 0, 100, asphalt.WithCountries(2, 1))
	f.gravel = g.AddEdge(0, 1, 100, da.NewEdgeAttributes(pkg.TRACK, da.SURFACE_GRAVEL, 0))
	f.limited = g.AddEdge(1, 0, 100, asphalt.WithLimits(3.0, 0, 0))
	f.inArea = g.AddEdge(1, 2, 100, asphalt)
	f.shortcut = g.AddShortcut(0, 0, 200, 200, f.plain, f.border, 2)
	return f
}

const avoidAreaGeoJSON = `{"type":"Polygon","coordinates":[[[110.4,-7.6],[110.6,-7.6],[110.6,-7.4],[110.4,-7.4],[110.4,-7.6]]]}`

func TestCompose(t *testing.T) {
	fx := newFilterFixture()
	areas, err := ParseAvoidAreas([]byte(avoidAreaGeoJSON))
	require.NoError(t, err)

	testCases := []struct {
		name     string
		filters  []Filter
		rejected []da.Index
	}{
		{name: "no filters", filters: nil, rejected: nil},
		{name: "avoid borders", filters: []Filter{NewAvoidBordersFilter()}, rejected: []da.Index{fx.border}},
		{name: "avoid other country", filters: []Filter{NewAvoidCountriesFilter(3)}, rejected: nil},
		{name: "avoid country", filters: []Filter{NewAvoidCountriesFilter(2)}, rejected: []da.Index{fx.border}},
		{name: "surface", filters: []Filter{NewSurfaceFilter(da.SURFACE_GRAVEL)}, rejected: []da.Index{fx.gravel}},
		{name: "low vehicle fits", filters: []Filter{NewVehicleFilter(VehicleDimensions{Height: 2.5})}, rejected: nil},
		{name: "tall vehicle", filters: []Filter{NewVehicleFilter(VehicleDimensions{Height: 4})}, rejected: []da.Index{fx.limited}},
		{name: "edge set", filters: []Filter{NewEdgeSetFilter(fx.plain)}, rejected: []da.Index{fx.plain}},
		{name: "avoid area", filters: []Filter{NewAvoidAreaFilter(areas)}, rejected: []da.Index{fx.inArea}},
		{
			name:     "composed",
			filters:  []Filter{NewAvoidBordersFilter(), NewSurfaceFilter(da.SURFACE_GRAVEL)},
			rejected: []da.Index{fx.border, fx.gravel},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			p := Compose(fx.g, tt.filters...)
			rejected := make([]da.Index, 0)
			for eId := 0; eId < fx.g.NumberOfEdges(); eId++ {
				if !p.Accept(fx.g.GetEdge(da.Index(eId))) {
					rejected = append(rejected, da.Index(eId))
				}
			}
			assert.ElementsMatch(t, tt.rejected, rejected)
			assert.True(t, p.Accept(fx.g.GetEdge(fx.shortcut)))
		})
	}
}

func TestStructuralFilterCoversQueryFilters(t *testing.T) {
	fx := newFilterFixture()
	filters := []Filter{
		NewAvoidBordersFilter(),
		NewSurfaceFilter(da.SURFACE_GRAVEL),
		NewVehicleFilter(VehicleDimensions{Height: 4}),
		NewEdgeSetFilter(fx.plain),
	}
	structural := NewStructuralFilter(fx.g, filters...)
	query := Compose(fx.g, filters...)

	for eId := 0; eId < fx.g.NumberOfEdges(); eId++ {
		e := fx.g.GetEdge(da.Index(eId))
		if !query.Accept(e) {
			assert.False(t, structural.Accept(e), "edge %d rejected by query but not restricted", eId)
		}
	}
	assert.True(t, structural.Accept(fx.g.GetEdge(fx.inArea)))
}

func TestCountingPredicate(t *testing.T) {
	fx := newFilterFixture()
	c := NewCountingPredicate(AcceptAll)
	for i := 0; i < 3; i++ {
		assert.True(t, c.Accept(fx.g.GetEdge(fx.plain)))
	}
	assert.Equal(t, int64(3), c.Calls())
	c.Reset()
	assert.Equal(t, int64(0), c.Calls())
}

func TestCoverageCovers(t *testing.T) {
	fx := newFilterFixture()
	areas, err := ParseAvoidAreas([]byte(avoidAreaGeoJSON))
	require.NoError(t, err)
	coverage := NewStructuralFilter(fx.g, NewAvoidBordersFilter(), NewSurfaceFilter(da.SURFACE_GRAVEL),
		NewEdgeSetFilter(fx.plain)).Coverage()

	testCases := []struct {
		name      string
		predicate Predicate
		want      bool
	}{
		{name: "accept all", predicate: AcceptAll, want: true},
		{name: "nil", predicate: nil, want: true},
		{name: "empty composite", predicate: Compose(fx.g), want: true},
		{name: "avoid borders", predicate: Compose(fx.g, NewAvoidBordersFilter()), want: true},
		{name: "avoid countries", predicate: Compose(fx.g, NewAvoidCountriesFilter(2, 3)), want: true},
		{name: "unpaved surfaces", predicate: Compose(fx.g, NewSurfaceFilter(da.SURFACE_GRAVEL, da.SURFACE_DIRT)), want: true},
		{name: "paved surface", predicate: Compose(fx.g, NewSurfaceFilter(da.SURFACE_ASPHALT)), want: false},
		{name: "vehicle not prepared", predicate: Compose(fx.g, NewVehicleFilter(VehicleDimensions{Height: 4})), want: false},
		{name: "known edge", predicate: Compose(fx.g, NewEdgeSetFilter(fx.plain)), want: true},
		{name: "unknown edge", predicate: Compose(fx.g, NewEdgeSetFilter(fx.plain, fx.gravel)), want: false},
		{name: "avoid area", predicate: Compose(fx.g, NewAvoidAreaFilter(areas)), want: false},
		{name: "avoid area counted", predicate: NewCountingPredicate(Compose(fx.g, NewAvoidAreaFilter(areas))), want: false},
		{name: "opaque", predicate: PredicateFunc(func(e *da.Edge) bool { return true }), want: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coverage.Covers(tt.predicate))
		})
	}

	assert.False(t, CoverageOf(AcceptAll).Covers(Compose(fx.g, NewAvoidBordersFilter())))
}

func TestImplies(t *testing.T) {
	fx := newFilterFixture()
	opaque := PredicateFunc(func(e *da.Edge) bool { return true })

	testCases := []struct {
		name  string
		query Predicate
		base  Predicate
		want  bool
	}{
		{name: "unfiltered base", query: AcceptAll, base: AcceptAll, want: true},
		{name: "unfiltered base opaque query", query: opaque, base: Compose(fx.g), want: true},
		{name: "filtered base unfiltered query", query: AcceptAll, base: Compose(fx.g, NewAvoidBordersFilter()), want: false},
		{name: "same filter", query: Compose(fx.g, NewAvoidBordersFilter()), base: Compose(fx.g, NewAvoidBordersFilter()), want: true},
		{
			name:  "borders imply countries",
			query: Compose(fx.g, NewAvoidBordersFilter()),
			base:  Compose(fx.g, NewAvoidCountriesFilter(2)),
			want:  true,
		},
		{
			name:  "countries do not imply borders",
			query: Compose(fx.g, NewAvoidCountriesFilter(2)),
			base:  Compose(fx.g, NewAvoidBordersFilter()),
			want:  false,
		},
		{
			name:  "country superset",
			query: Compose(fx.g, NewAvoidCountriesFilter(2, 3)),
			base:  Compose(fx.g, NewAvoidCountriesFilter(3)),
			want:  true,
		},
		{
			name:  "taller vehicle",
			query: Compose(fx.g, NewVehicleFilter(VehicleDimensions{Height: 4, Weight: 20})),
			base:  Compose(fx.g, NewVehicleFilter(VehicleDimensions{Height: 3.5})),
			want:  true,
		},
		{
			name:  "lower vehicle",
			query: Compose(fx.g, NewVehicleFilter(VehicleDimensions{Height: 3})),
			base:  Compose(fx.g, NewVehicleFilter(VehicleDimensions{Height: 3.5})),
			want:  false,
		},
		{
			name:  "edge sets split over filters",
			query: Compose(fx.g, NewEdgeSetFilter(fx.plain), NewEdgeSetFilter(fx.gravel)),
			base:  Compose(fx.g, NewEdgeSetFilter(fx.plain, fx.gravel)),
			want:  true,
		},
		{
			name:  "missing surface",
			query: Compose(fx.g, NewSurfaceFilter(da.SURFACE_GRAVEL)),
			base:  Compose(fx.g, NewSurfaceFilter(da.SURFACE_GRAVEL, da.SURFACE_DIRT)),
			want:  false,
		},
		{name: "opaque base", query: AcceptAll, base: opaque, want: false},
		{name: "opaque query", query: opaque, base: Compose(fx.g, NewAvoidBordersFilter()), want: false},
		{
			name:  "counted query",
			query: NewCountingPredicate(Compose(fx.g, NewAvoidBordersFilter())),
			base:  Compose(fx.g, NewAvoidBordersFilter()),
			want:  true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Implies(tt.query, tt.base))
		})
	}
}

func TestParseAvoidAreasRejectsPoints(t *testing.T) {
	_, err := ParseAvoidAreas([]byte(`{"type":"Point","coordinates":[110.0,-7.0]}`))
	assert.Error(t, err)
}
