package landmark

import (
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	LandmarkCount       int // landmarks per subnetwork
	ActiveLandmarkCount int
	// subnetworks with fewer core nodes get no landmarks, queries inside them use the beeline estimate
	MinimumNodes int
}

func DefaultConfig() Config {
	return Config{
		LandmarkCount:       pkg.DEFAULT_LANDMARK_COUNT,
		ActiveLandmarkCount: pkg.DEFAULT_ACTIVE_LANDMARK_COUNT,
		MinimumNodes:        pkg.DEFAULT_MIN_SUBNETWORK_SIZE,
	}
}

// CoreLandmarkStorage holds quantized landmark distances for the core nodes of one prepared graph under one
// filter set. Landmarks are chosen per strongly connected subnetwork of the core. Every landmark row covers
// the whole core so that bounds stay consistent along paths leaving a subnetwork.
// Once CreateLandmarks returns the storage is read-only.
type CoreLandmarkStorage struct {
	name      string
	graph     *da.Graph
	weighting costfunction.Weighting
	filter    filter.Predicate
	cfg       Config
	logger    *zap.Logger

	coreIndex []int32 // core index per node, -1 for contracted nodes
	coreNodes []da.Index

	subnetworks         []int32    // landmark subnetwork per core index, -1 when it has no landmarks
	landmarks           []da.Index // all landmarks, row i of the weight tables belongs to landmarks[i]
	subnetworkLandmarks [][]int    // landmark rows per landmark subnetwork
	fromWeights         [][]int16  // fromWeights[i][c] ~ d(landmarks[i], coreNodes[c]) / factor
	toWeights           [][]int16  // toWeights[i][c] ~ d(coreNodes[c], landmarks[i]) / factor
	factor              float64
}

func NewCoreLandmarkStorage(prepared *contractor.PreparedGraph, name string, restrictionFilter filter.Predicate,
	cfg Config, logger *zap.Logger) *CoreLandmarkStorage {
	if restrictionFilter == nil {
		restrictionFilter = filter.AcceptAll
	}
	graph := prepared.GetGraph()
	coreNodes := prepared.GetCoreNodes()
	coreIndex := make([]int32, graph.NumberOfVertices())
	for v := range coreIndex {
		coreIndex[v] = -1
	}
	for i, v := range coreNodes {
		coreIndex[v] = int32(i)
	}

	return &CoreLandmarkStorage{
		name:      name,
		graph:     graph,
		weighting: prepared.GetWeighting(),
		filter:    restrictionFilter,
		cfg:       cfg,
		logger:    logger,
		coreIndex: coreIndex,
		coreNodes: coreNodes,
	}
}

// BuildLandmarks creates the landmark table of prepared for one named filter set.
func BuildLandmarks(prepared *contractor.PreparedGraph, name string, restrictionFilter filter.Predicate,
	landmarkCount, activeCount int, logger *zap.Logger) (*CoreLandmarkStorage, error) {
	cfg := DefaultConfig()
	cfg.LandmarkCount = landmarkCount
	cfg.ActiveLandmarkCount = activeCount
	lms := NewCoreLandmarkStorage(prepared, name, restrictionFilter, cfg, logger)
	if err := lms.CreateLandmarks(); err != nil {
		return nil, err
	}
	return lms, nil
}

func (lms *CoreLandmarkStorage) acceptEdge() filter.Predicate {
	return filter.PredicateFunc(func(e *da.Edge) bool {
		return lms.filter.Accept(e) && lms.weighting.GetWeight(e, false, da.INVALID_EDGE_ID) < pkg.INF_WEIGHT
	})
}

/*
[1] Goldberg, A.V. and Harrelson, C. (2005) ‘Computing the shortest path: A search meets graph theory’, in Proceedings of the Sixteenth Annual ACM-SIAM Symposium on Discrete Algorithms. USA: Society for Industrial and Applied Mathematics (SODA ’05), pp. 156–165.

CreateLandmarks partitions the core into strongly connected subnetworks under the filter, selects LandmarkCount
landmarks in every subnetwork with at least MinimumNodes nodes using farthest landmark selection (section 7 of [1]),
then stores forward and backward core distances of each landmark as int16 multiples of factor.

time complexity: O(L * (n+m) log n), L = total number of landmarks, n,m = core size.
*/
func (lms *CoreLandmarkStorage) CreateLandmarks() error {
	start := time.Now()
	if lms.cfg.LandmarkCount <= 0 {
		return util.WrapErrorf(nil, util.ErrInvalidPreparation, "landmark count must be positive, got %d", lms.cfg.LandmarkCount)
	}
	if len(lms.coreNodes) == 0 {
		return util.WrapErrorf(nil, util.ErrInvalidPreparation, "landmarks %s: prepared graph has no core", lms.name)
	}

	accept := lms.acceptEdge()
	partition := da.FindCoreComponents(lms.graph, accept.Accept, true)

	lms.subnetworks = make([]int32, len(lms.coreNodes))
	for i := range lms.subnetworks {
		lms.subnetworks[i] = -1
	}
	lms.landmarks = make([]da.Index, 0)
	lms.subnetworkLandmarks = make([][]int, 0)

	small := 0
	selector := newCoreDijkstra(lms.graph, lms.weighting, accept, lms.coreIndex, len(lms.coreNodes))
	for compId, component := range partition.GetComponents() {
		if len(component) < lms.cfg.MinimumNodes {
			small++
			continue
		}
		subnetwork := int32(len(lms.subnetworkLandmarks))
		selector.restrictTo(partition, int32(compId))
		selected := lms.selectLandmarks(selector, component)

		rows := make([]int, len(selected))
		for i, l := range selected {
			rows[i] = len(lms.landmarks)
			lms.landmarks = append(lms.landmarks, l)
		}
		lms.subnetworkLandmarks = append(lms.subnetworkLandmarks, rows)
		for _, v := range component {
			lms.subnetworks[lms.coreIndex[v]] = subnetwork
		}
	}

	if partition.NumberOfSingleEntries() > 0 || small > 0 {
		lms.logger.Warn("core nodes without landmarks",
			zap.String("landmarks", lms.name),
			zap.Int("singleEntries", partition.NumberOfSingleEntries()),
			zap.Int("smallSubnetworks", small))
	}
	if len(lms.landmarks) == 0 {
		return util.WrapErrorf(nil, util.ErrInvalidPreparation,
			"landmarks %s: no core subnetwork has at least %d nodes", lms.name, lms.cfg.MinimumNodes)
	}

	fromDist, toDist, err := lms.computeLandmarkDistances(accept)
	if err != nil {
		return err
	}

	maxWeight := 0.0
	for i := range lms.landmarks {
		for c := range lms.coreNodes {
			if fromDist[i][c] < pkg.INF_WEIGHT {
				maxWeight = math.Max(maxWeight, fromDist[i][c])
			}
			if toDist[i][c] < pkg.INF_WEIGHT {
				maxWeight = math.Max(maxWeight, toDist[i][c])
			}
		}
	}
	lms.factor = maxWeight / pkg.SHORT_MAX
	if maxWeight == 0 {
		lms.factor = 1
	}
	if lms.factor <= 0 || math.IsNaN(lms.factor) || math.IsInf(lms.factor, 0) {
		return util.WrapErrorf(nil, util.ErrInvalidPreparation, "landmarks %s: invalid factor %f", lms.name, lms.factor)
	}

	lms.fromWeights = make([][]int16, len(lms.landmarks))
	lms.toWeights = make([][]int16, len(lms.landmarks))
	for i := range lms.landmarks {
		lms.fromWeights[i] = lms.quantize(fromDist[i])
		lms.toWeights[i] = lms.quantize(toDist[i])
	}

	lms.logger.Info("done computing core landmarks",
		zap.String("landmarks", lms.name),
		zap.String("weighting", lms.weighting.Name()),
		zap.Int("subnetworks", len(lms.subnetworkLandmarks)),
		zap.Int("landmarkCount", len(lms.landmarks)),
		zap.Float64("factor", lms.factor),
		zap.Duration("took", time.Since(start)))
	return nil
}

// selectLandmarks picks LandmarkCount landmarks of one subnetwork. the first one is the node farthest from the
// smallest node id of the component, every next one the node farthest from all landmarks chosen so far.
// components with fewer nodes than LandmarkCount repeat their landmarks.
func (lms *CoreLandmarkStorage) selectLandmarks(cd *coreDijkstra, component []da.Index) []da.Index {
	seed := component[0]
	for _, v := range component {
		if v < seed {
			seed = v
		}
	}

	farthest := func(sources []da.Index) (da.Index, float64) {
		dist := cd.shortestPaths(sources, false)
		best, bestDist := sources[0], -1.0
		for _, v := range component {
			d := dist[lms.coreIndex[v]]
			if d >= pkg.INF_WEIGHT {
				continue
			}
			if d > bestDist || (d == bestDist && v < best) {
				best, bestDist = v, d
			}
		}
		return best, bestDist
	}

	first, _ := farthest([]da.Index{seed})
	selected := []da.Index{first}
	for len(selected) < lms.cfg.LandmarkCount {
		next, d := farthest(selected)
		if d <= 0 {
			selected = append(selected, selected[0])
			continue
		}
		selected = append(selected, next)
	}
	return selected
}

func (lms *CoreLandmarkStorage) computeLandmarkDistances(accept filter.Predicate) ([][]float64, [][]float64, error) {
	fromDist := make([][]float64, len(lms.landmarks))
	toDist := make([][]float64, len(lms.landmarks))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, l := range lms.landmarks {
		g.Go(func() error {
			cd := newCoreDijkstra(lms.graph, lms.weighting, accept, lms.coreIndex, len(lms.coreNodes))
			fromDist[i] = append([]float64(nil), cd.shortestPaths([]da.Index{l}, false)...)
			toDist[i] = append([]float64(nil), cd.shortestPaths([]da.Index{l}, true)...)
			if fromDist[i][lms.coreIndex[l]] != 0 {
				return util.WrapErrorf(nil, util.ErrInvalidPreparation, "landmark %d is not a core node", l)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return fromDist, toDist, nil
}

// quantize rounds down, so stored*factor <= d < (stored+1)*factor.
func (lms *CoreLandmarkStorage) quantize(dist []float64) []int16 {
	row := make([]int16, len(dist))
	for c, d := range dist {
		if d >= pkg.INF_WEIGHT {
			row[c] = pkg.SHORT_INFINITY
			continue
		}
		row[c] = int16(util.Clamp(math.Floor(d/lms.factor), 0, pkg.SHORT_MAX))
	}
	return row
}

func (lms *CoreLandmarkStorage) Name() string {
	return lms.name
}

// Serves reports whether the bounds of this table are admissible for a query under predicate: the predicate has to
// reject every edge the table's filter rejected.
func (lms *CoreLandmarkStorage) Serves(predicate filter.Predicate) bool {
	return filter.Implies(predicate, lms.filter)
}

// NumberOfFilters is the number of filters the table was built with, -1 when its filter cannot be inspected.
func (lms *CoreLandmarkStorage) NumberOfFilters() int {
	filters, ok := filter.FiltersOf(lms.filter)
	if !ok {
		return -1
	}
	return len(filters)
}

func (lms *CoreLandmarkStorage) GetFactor() float64 {
	return lms.factor
}

func (lms *CoreLandmarkStorage) GetActiveLandmarkCount() int {
	return lms.cfg.ActiveLandmarkCount
}

func (lms *CoreLandmarkStorage) GetLandmarks() []da.Index {
	return lms.landmarks
}

func (lms *CoreLandmarkStorage) NumberOfSubnetworks() int {
	return len(lms.subnetworkLandmarks)
}

func (lms *CoreLandmarkStorage) GetGraph() *da.Graph {
	return lms.graph
}

// GetSubnetwork returns the landmark subnetwork of v, -1 when v is not a core node or its subnetwork has no landmarks.
func (lms *CoreLandmarkStorage) GetSubnetwork(v da.Index) int32 {
	if !lms.graph.IsValidNode(v) {
		return -1
	}
	c := lms.coreIndex[v]
	if c < 0 {
		return -1
	}
	return lms.subnetworks[c]
}

// GetFromWeight returns the quantized distance from landmark row i to v, SHORT_INFINITY when unknown.
func (lms *CoreLandmarkStorage) GetFromWeight(i int, v da.Index) int16 {
	c := lms.coreIndex[v]
	if c < 0 {
		return pkg.SHORT_INFINITY
	}
	return lms.fromWeights[i][c]
}

// GetToWeight returns the quantized distance from v to landmark row i, SHORT_INFINITY when unknown.
func (lms *CoreLandmarkStorage) GetToWeight(i int, v da.Index) int16 {
	c := lms.coreIndex[v]
	if c < 0 {
		return pkg.SHORT_INFINITY
	}
	return lms.toWeights[i][c]
}

// LowerBound returns an admissible lower bound of d(u,v) computed from the given landmark rows. Both triangle
// inequality terms lose one quantization step, which keeps them below the true distance.
func (lms *CoreLandmarkStorage) LowerBound(rows []int, u, v da.Index) float64 {
	cu, cv := lms.coreIndex[u], lms.coreIndex[v]
	if cu < 0 || cv < 0 {
		return 0
	}
	best := 0
	for _, i := range rows {
		// d(u,v) >= d(L,v) - d(L,u)
		fu, fv := lms.fromWeights[i][cu], lms.fromWeights[i][cv]
		if fu != pkg.SHORT_INFINITY && fv != pkg.SHORT_INFINITY {
			best = util.MaxInt(best, int(fv)-int(fu)-1)
		}
		// d(u,v) >= d(u,L) - d(v,L)
		tu, tv := lms.toWeights[i][cu], lms.toWeights[i][cv]
		if tu != pkg.SHORT_INFINITY && tv != pkg.SHORT_INFINITY {
			best = util.MaxInt(best, int(tu)-int(tv)-1)
		}
	}
	return float64(best) * lms.factor
}

// InitActiveLandmarks picks the ActiveLandmarkCount rows of the proxies' subnetwork that give the tightest bound
// between fromProxy and toProxy. ErrLandmarkUnavailable is returned when the proxies are not core nodes of the
// same landmark subnetwork.
func (lms *CoreLandmarkStorage) InitActiveLandmarks(fromProxy, toProxy da.Index) ([]int, error) {
	subnetwork := lms.GetSubnetwork(fromProxy)
	if subnetwork < 0 {
		return nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable, "node %d has no landmark subnetwork", fromProxy)
	}
	if other := lms.GetSubnetwork(toProxy); other != subnetwork {
		return nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable,
			"nodes %d and %d lie in different landmark subnetworks (%d, %d)", fromProxy, toProxy, subnetwork, other)
	}

	candidates := append([]int(nil), lms.subnetworkLandmarks[subnetwork]...)
	bounds := make(map[int]float64, len(candidates))
	for _, i := range candidates {
		bounds[i] = lms.LowerBound([]int{i}, fromProxy, toProxy)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return bounds[candidates[a]] > bounds[candidates[b]]
	})

	active := lms.cfg.ActiveLandmarkCount
	if active <= 0 || active > len(candidates) {
		active = len(candidates)
	}
	return candidates[:active], nil
}
