package routing

import (
	"errors"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/landmark"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
)

type Config struct {
	PathUnpackCacheSize  int
	ProxyMaxVisitedNodes int
	DefaultLandmarkSet   string
}

func DefaultConfig() Config {
	return Config{
		PathUnpackCacheSize:  pkg.DEFAULT_PU_CACHE_SIZE,
		ProxyMaxVisitedNodes: pkg.DEFAULT_PROXY_MAX_VISITED,
		DefaultLandmarkSet:   "default",
	}
}

// CoreRoutingEngine answers queries on one prepared graph. It is read-only after construction and safe for
// concurrent use, every query owns its search state.
type CoreRoutingEngine struct {
	prepared    *contractor.PreparedGraph
	graph       *da.Graph
	weighting   costfunction.Weighting
	landmarks   map[string]*landmark.CoreLandmarkStorage
	lmNames     []string // sorted
	proxyFinder *ProxyNodeFinder
	puCache     *lru.Cache[PUCacheKey, []da.Index]
	arenaPool   sync.Pool
	cfg         Config
	logger      *zap.Logger
}

func NewCoreRoutingEngine(prepared *contractor.PreparedGraph, landmarks []*landmark.CoreLandmarkStorage,
	cfg Config, logger *zap.Logger) (*CoreRoutingEngine, error) {
	if prepared == nil || !prepared.GetGraph().IsPrepared() {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "routing engine needs a prepared graph")
	}

	var puCache *lru.Cache[PUCacheKey, []da.Index]
	if cfg.PathUnpackCacheSize > 0 {
		var err error
		puCache, err = lru.New[PUCacheKey, []da.Index](cfg.PathUnpackCacheSize)
		if err != nil {
			return nil, err
		}
	}

	lmMap := make(map[string]*landmark.CoreLandmarkStorage, len(landmarks))
	for _, lms := range landmarks {
		if lms.GetGraph() != prepared.GetGraph() {
			return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState,
				"landmark table %s belongs to another prepared graph", lms.Name())
		}
		lmMap[lms.Name()] = lms
	}
	lmNames := make([]string, 0, len(lmMap))
	for name := range lmMap {
		lmNames = append(lmNames, name)
	}
	sort.Strings(lmNames)

	graph := prepared.GetGraph()
	e := &CoreRoutingEngine{
		prepared:    prepared,
		graph:       graph,
		weighting:   prepared.GetWeighting(),
		landmarks:   lmMap,
		lmNames:     lmNames,
		proxyFinder: NewProxyNodeFinder(graph, prepared.GetWeighting(), cfg.ProxyMaxVisitedNodes),
		puCache:     puCache,
		cfg:         cfg,
		logger:      logger,
	}
	e.arenaPool = sync.Pool{
		New: func() any {
			return da.NewSearchArena(1024)
		},
	}
	return e, nil
}

func (e *CoreRoutingEngine) GetGraph() *da.Graph {
	return e.graph
}

func (e *CoreRoutingEngine) GetWeighting() costfunction.Weighting {
	return e.weighting
}

func (e *CoreRoutingEngine) GetLandmarks(name string) (*landmark.CoreLandmarkStorage, bool) {
	lms, ok := e.landmarks[name]
	return lms, ok
}

// SelectLandmarks returns the landmark table CORE_ALT uses for predicate. A named table is only returned when its
// bounds are admissible for predicate. Without a name the admissible table built with the most filters wins, ties go
// to the configured default and then to the lowest name. nil means the query runs with the beeline estimate.
func (e *CoreRoutingEngine) SelectLandmarks(name string, predicate filter.Predicate) *landmark.CoreLandmarkStorage {
	if name != "" {
		lms, ok := e.landmarks[name]
		if !ok {
			e.logger.Debug("unknown landmark table", zap.String("name", name))
			return nil
		}
		if !lms.Serves(predicate) {
			e.logger.Debug("landmark table not admissible for query", zap.String("name", name),
				zap.Error(util.ErrLandmarkUnavailable))
			return nil
		}
		return lms
	}

	var best *landmark.CoreLandmarkStorage
	for _, lmName := range e.lmNames {
		lms := e.landmarks[lmName]
		if !lms.Serves(predicate) {
			continue
		}
		switch {
		case best == nil:
			best = lms
		case lms.NumberOfFilters() > best.NumberOfFilters():
			best = lms
		case lms.NumberOfFilters() == best.NumberOfFilters() && lmName == e.cfg.DefaultLandmarkSet:
			best = lms
		}
	}
	return best
}

// Covers reports whether the preparation can answer predicate over the hierarchy.
func (e *CoreRoutingEngine) Covers(predicate filter.Predicate) bool {
	return e.prepared.GetCoverage().Covers(predicate)
}

// ShortestPath computes the cheapest path from source to target that only uses edges accepted by predicate.
// Predicates that only reject edges the structural filter of the preparation rejected are evaluated on core edges
// alone. Any other predicate, e.g. an avoid area, makes the query bypass the hierarchy.
func (e *CoreRoutingEngine) ShortestPath(source, target da.Index, predicate filter.Predicate, maxVisitedNodes int,
	opts QueryOptions) (*PathResult, error) {
	if !e.graph.IsValidNode(source) || !e.graph.IsValidNode(target) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid node pair %d -> %d", source, target)
	}
	if source == target {
		return newEmptyPathResult(source), nil
	}
	if maxVisitedNodes <= 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "maxVisitedNodes must be positive, got %d", maxVisitedNodes)
	}
	if predicate == nil {
		predicate = filter.AcceptAll
	}

	arena := e.arenaPool.Get().(*da.SearchArena)
	defer e.arenaPool.Put(arena)

	var search *AbstractCoreSearch
	switch opts.Algorithm {
	case CORE_ALT:
		lms := e.SelectLandmarks(opts.LandmarkSet, predicate)
		search = NewCoreALT(e.graph, e.weighting, predicate, maxVisitedNodes, arena, lms, e.proxyFinder, e.logger).AbstractCoreSearch
	default:
		search = NewCoreDijkstra(e.graph, e.weighting, predicate, maxVisitedNodes, arena).AbstractCoreSearch
	}
	search.SetUncontracted(!e.Covers(predicate))

	if err := search.ShortestPathSearch(source, target); err != nil {
		return nil, err
	}

	unpacker := NewPathUnpacker(e.graph, e.puCache)
	edges, nodes, distance := unpacker.unpackPath(search.packedPath())
	return &PathResult{
		TotalWeight:  search.bestWeight,
		Distance:     distance,
		Edges:        edges,
		Nodes:        nodes,
		VisitedNodes: search.visitedNodes,
		CoreEdges:    search.coreEdges,
		Approximator: search.policy.name(),
		Uncontracted: search.uncontracted,
	}, nil
}

// ShortestPathMatrix computes the weights between all sources and targets. Predicates the preparation covers are
// answered by one CoreMatrix, maxVisitedNodes then bounds the whole matrix. Other predicates and graphs with turn
// costs fall back to one ShortestPath per pair, each with its own budget.
func (e *CoreRoutingEngine) ShortestPathMatrix(sources, targets []da.Index, predicate filter.Predicate,
	maxVisitedNodes int) (*MatrixResult, error) {
	for _, v := range append(append([]da.Index(nil), sources...), targets...) {
		if !e.graph.IsValidNode(v) {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid node %d", v)
		}
	}
	if maxVisitedNodes <= 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "maxVisitedNodes must be positive, got %d", maxVisitedNodes)
	}
	if predicate == nil {
		predicate = filter.AcceptAll
	}

	covered := e.Covers(predicate)
	if !covered || e.graph.HasTurnCosts() {
		return e.pairwiseMatrix(sources, targets, predicate, maxVisitedNodes, !covered)
	}

	cm := NewCoreMatrix(e.graph, e.weighting, predicate, maxVisitedNodes)
	weights, err := cm.Compute(sources, targets)
	if err != nil {
		return nil, err
	}
	return &MatrixResult{
		Weights:      weights,
		VisitedNodes: cm.GetVisitedNodes(),
		CoreEdges:    cm.GetCoreEdges(),
	}, nil
}

func (e *CoreRoutingEngine) pairwiseMatrix(sources, targets []da.Index, predicate filter.Predicate,
	maxVisitedNodes int, uncontracted bool) (*MatrixResult, error) {
	res := &MatrixResult{Weights: make([][]float64, len(sources)), Uncontracted: uncontracted}
	for i, s := range sources {
		res.Weights[i] = make([]float64, len(targets))
		for j, t := range targets {
			path, err := e.ShortestPath(s, t, predicate, maxVisitedNodes, QueryOptions{Algorithm: CORE_DIJKSTRA})
			if errors.Is(err, util.ErrRouteNotFound) {
				res.Weights[i][j] = pkg.INF_WEIGHT
				continue
			}
			if err != nil {
				return nil, err
			}
			res.Weights[i][j] = path.TotalWeight
			res.VisitedNodes += path.VisitedNodes
			res.CoreEdges += path.CoreEdges
		}
	}
	return res, nil
}
