package filter

import (
	"fmt"
	"sync/atomic"

	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Predicate decides whether a search may traverse an edge. Implementations must be safe for concurrent use
// and must not allocate per call.
type Predicate interface {
	Accept(e *da.Edge) bool
}

type PredicateFunc func(e *da.Edge) bool

func (f PredicateFunc) Accept(e *da.Edge) bool {
	return f(e)
}

type acceptAll struct{}

func (acceptAll) Accept(e *da.Edge) bool {
	return true
}

// AcceptAll is the predicate of an unrestricted query.
var AcceptAll Predicate = acceptAll{}

type FilterKind uint8

const (
	AVOID_AREA FilterKind = iota
	AVOID_COUNTRIES
	AVOID_BORDERS
	VEHICLE
	SURFACE
	EDGE_SET
)

func (k FilterKind) String() string {
	switch k {
	case AVOID_AREA:
		return "avoid_area"
	case AVOID_COUNTRIES:
		return "avoid_countries"
	case AVOID_BORDERS:
		return "avoid_borders"
	case VEHICLE:
		return "vehicle"
	case SURFACE:
		return "surface"
	case EDGE_SET:
		return "edge_set"
	default:
		return fmt.Sprintf("filter_kind(%d)", uint8(k))
	}
}

type VehicleDimensions struct {
	Height float64 // meter
	Width  float64 // meter
	Weight float64 // tonne
}

// Filter is one restriction of a query. Only the fields of its Kind are read.
type Filter struct {
	Kind      FilterKind
	Areas     orb.MultiPolygon
	Countries []uint16
	Vehicle   VehicleDimensions
	Surfaces  []da.SurfaceType
	Edges     []da.Index // original edge ids
}

func NewAvoidAreaFilter(areas orb.MultiPolygon) Filter {
	return Filter{Kind: AVOID_AREA, Areas: areas}
}

func NewAvoidCountriesFilter(countries ...uint16) Filter {
	return Filter{Kind: AVOID_COUNTRIES, Countries: countries}
}

func NewAvoidBordersFilter() Filter {
	return Filter{Kind: AVOID_BORDERS}
}

func NewVehicleFilter(dim VehicleDimensions) Filter {
	return Filter{Kind: VEHICLE, Vehicle: dim}
}

func NewSurfaceFilter(avoid ...da.SurfaceType) Filter {
	return Filter{Kind: SURFACE, Surfaces: avoid}
}

func NewEdgeSetFilter(edges ...da.Index) Filter {
	return Filter{Kind: EDGE_SET, Edges: edges}
}

// ParseAvoidAreas reads a GeoJSON Polygon or MultiPolygon geometry.
func ParseAvoidAreas(data []byte) (orb.MultiPolygon, error) {
	geom, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	switch g := geom.Geometry().(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	default:
		return nil, fmt.Errorf("avoid area must be a Polygon or MultiPolygon, got %s", g.GeoJSONType())
	}
}

type rejectFunc func(e *da.Edge, attr da.EdgeAttributes) bool

func (f Filter) rejector(g *da.Graph) rejectFunc {
	switch f.Kind {
	case AVOID_AREA:
		areas := f.Areas
		bound := areas.Bound()
		inside := func(v da.Index) bool {
			vert := g.GetVertex(v)
			p := orb.Point{vert.GetLon(), vert.GetLat()}
			return bound.Contains(p) && planar.MultiPolygonContains(areas, p)
		}
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			return inside(e.GetTail()) || inside(e.GetHead())
		}
	case AVOID_COUNTRIES:
		avoid := make(map[uint16]struct{}, len(f.Countries))
		for _, c := range f.Countries {
			avoid[c] = struct{}{}
		}
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			if !attr.IsBorderCrossing() {
				return false
			}
			_, base := avoid[attr.BaseCountry]
			_, adj := avoid[attr.AdjCountry]
			return base || adj
		}
	case AVOID_BORDERS:
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			return attr.IsBorderCrossing()
		}
	case VEHICLE:
		dim := f.Vehicle
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			return (attr.MaxHeight > 0 && dim.Height > attr.MaxHeight) ||
				(attr.MaxWidth > 0 && dim.Width > attr.MaxWidth) ||
				(attr.MaxWeight > 0 && dim.Weight > attr.MaxWeight)
		}
	case SURFACE:
		var avoid [da.SURFACE_UNKNOWN + 1]bool
		for _, s := range f.Surfaces {
			if s <= da.SURFACE_UNKNOWN {
				avoid[s] = true
			}
		}
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			return attr.Surface <= da.SURFACE_UNKNOWN && avoid[attr.Surface]
		}
	case EDGE_SET:
		set := make(map[da.Index]struct{}, len(f.Edges))
		for _, eId := range f.Edges {
			set[eId] = struct{}{}
		}
		return func(e *da.Edge, attr da.EdgeAttributes) bool {
			_, ok := set[e.GetEdgeId()]
			return ok
		}
	default:
		return func(e *da.Edge, attr da.EdgeAttributes) bool { return false }
	}
}

// Composite is the predicate of a query built from tagged filters. It keeps the filters so a router can
// check them against what a preparation or a landmark table was built for.
type Composite struct {
	g         *da.Graph
	filters   []Filter
	rejectors []rejectFunc
}

// Compose builds one predicate that rejects an original edge if any filter rejects it. Shortcuts are
// always accepted: they only ever bypass nodes that no restricted edge touches.
func Compose(g *da.Graph, filters ...Filter) *Composite {
	rejectors := make([]rejectFunc, len(filters))
	for i, f := range filters {
		rejectors[i] = f.rejector(g)
	}
	return &Composite{
		g:         g,
		filters:   append([]Filter(nil), filters...),
		rejectors: rejectors,
	}
}

func (c *Composite) Accept(e *da.Edge) bool {
	if e.IsShortcut() || len(c.rejectors) == 0 {
		return true
	}
	attr := c.g.GetEdgeAttributes(e.GetEdgeId())
	for _, reject := range c.rejectors {
		if reject(e, attr) {
			return false
		}
	}
	return true
}

func (c *Composite) Filters() []Filter {
	return c.filters
}

// FiltersOf returns the filters p was composed from. ok is false for predicates that cannot be inspected,
// e.g. a PredicateFunc.
func FiltersOf(p Predicate) (filters []Filter, ok bool) {
	switch q := p.(type) {
	case nil, acceptAll:
		return nil, true
	case *Composite:
		return q.filters, true
	case *CountingPredicate:
		return FiltersOf(q.inner)
	default:
		return nil, false
	}
}

// Implies reports whether query rejects every edge that base rejects. A landmark table built under base
// gives admissible bounds for query only then.
func Implies(query, base Predicate) bool {
	baseFilters, ok := FiltersOf(base)
	if !ok {
		return false
	}
	if len(baseFilters) == 0 {
		return true
	}
	queryFilters, ok := FiltersOf(query)
	if !ok {
		return false
	}

	queryEdges := make(map[da.Index]struct{})
	for _, q := range queryFilters {
		if q.Kind == EDGE_SET {
			for _, eId := range q.Edges {
				queryEdges[eId] = struct{}{}
			}
		}
	}

	for _, b := range baseFilters {
		if b.Kind == EDGE_SET {
			if !containsAll(queryEdges, b.Edges) {
				return false
			}
			continue
		}
		implied := false
		for _, q := range queryFilters {
			if q.implies(b) {
				implied = true
				break
			}
		}
		if !implied {
			return false
		}
	}
	return true
}

// implies reports whether f rejects every edge that b rejects. Both must not be edge sets.
func (f Filter) implies(b Filter) bool {
	switch b.Kind {
	case AVOID_BORDERS:
		return f.Kind == AVOID_BORDERS
	case AVOID_COUNTRIES:
		if f.Kind == AVOID_BORDERS {
			return true
		}
		return f.Kind == AVOID_COUNTRIES && containsAllOf(f.Countries, b.Countries)
	case VEHICLE:
		return f.Kind == VEHICLE && f.Vehicle.Height >= b.Vehicle.Height &&
			f.Vehicle.Width >= b.Vehicle.Width && f.Vehicle.Weight >= b.Vehicle.Weight
	case SURFACE:
		return f.Kind == SURFACE && containsAllOf(f.Surfaces, b.Surfaces)
	default:
		// avoid areas are compared by geometry nowhere, a table built with one never serves a query
		return false
	}
}

func containsAll(set map[da.Index]struct{}, vals []da.Index) bool {
	for _, v := range vals {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func containsAllOf[T comparable](have, want []T) bool {
	set := make(map[T]struct{}, len(have))
	for _, v := range have {
		set[v] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// Coverage is the set of restrictions a core contraction anticipated. Queries whose filters it covers can be
// answered by the core search, the periphery never holds an edge they reject.
type Coverage struct {
	vehicle bool
	surface bool
	borders bool
	edges   map[da.Index]struct{}
}

func NewCoverage(filters ...Filter) Coverage {
	c := Coverage{edges: make(map[da.Index]struct{})}
	for _, f := range filters {
		switch f.Kind {
		case VEHICLE:
			c.vehicle = true
		case SURFACE:
			c.surface = true
		case AVOID_BORDERS, AVOID_COUNTRIES:
			c.borders = true
		case EDGE_SET:
			for _, eId := range f.Edges {
				c.edges[eId] = struct{}{}
			}
		}
	}
	return c
}

// CoverageOf returns the coverage of a structural filter. Any other predicate covers nothing.
func CoverageOf(structural Predicate) Coverage {
	if sf, ok := structural.(*StructuralFilter); ok {
		return sf.coverage
	}
	return NewCoverage()
}

func (c Coverage) coversFilter(f Filter) bool {
	switch f.Kind {
	case VEHICLE:
		return c.vehicle
	case SURFACE:
		if !c.surface {
			return false
		}
		for _, s := range f.Surfaces {
			if s.IsPaved() {
				return false
			}
		}
		return true
	case AVOID_BORDERS, AVOID_COUNTRIES:
		return c.borders
	case EDGE_SET:
		return containsAll(c.edges, f.Edges)
	default:
		return false
	}
}

// Covers reports whether every filter of p is anticipated by c. Predicates that cannot be inspected are
// trusted to reject only restricted edges.
func (c Coverage) Covers(p Predicate) bool {
	filters, ok := FiltersOf(p)
	if !ok {
		return true
	}
	for _, f := range filters {
		if !c.coversFilter(f) {
			return false
		}
	}
	return true
}

func (c Coverage) restricts(g *da.Graph, e *da.Edge) bool {
	if _, ok := c.edges[e.GetEdgeId()]; ok {
		return true
	}
	attr := g.GetEdgeAttributes(e.GetEdgeId())
	return (c.vehicle && attr.HasVehicleLimits()) ||
		(c.surface && !attr.Surface.IsPaved()) ||
		(c.borders && attr.IsBorderCrossing())
}

// StructuralFilter is the predicate handed to core contraction. Nodes touching an edge it rejects stay in the core.
type StructuralFilter struct {
	g        *da.Graph
	coverage Coverage
}

// NewStructuralFilter rejects every original edge that a query composed from filters of the same kinds could
// reject. Vehicle and surface filters restrict every edge carrying a limit or an unpaved surface, border filters
// restrict every border crossing and edge set filters restrict exactly their edges. Avoid-area filters are not
// known before query time and restrict nothing, queries with one are answered without the hierarchy.
func NewStructuralFilter(g *da.Graph, filters ...Filter) *StructuralFilter {
	return &StructuralFilter{g: g, coverage: NewCoverage(filters...)}
}

func (sf *StructuralFilter) Accept(e *da.Edge) bool {
	return e.IsShortcut() || !sf.coverage.restricts(sf.g, e)
}

func (sf *StructuralFilter) Coverage() Coverage {
	return sf.coverage
}

// CountingPredicate counts how often the wrapped predicate is evaluated.
type CountingPredicate struct {
	inner Predicate
	calls atomic.Int64
}

func NewCountingPredicate(inner Predicate) *CountingPredicate {
	return &CountingPredicate{inner: inner}
}

func (c *CountingPredicate) Accept(e *da.Edge) bool {
	c.calls.Add(1)
	return c.inner.Accept(e)
}

func (c *CountingPredicate) Calls() int64 {
	return c.calls.Load()
}

func (c *CountingPredicate) Reset() {
	c.calls.Store(0)
}
