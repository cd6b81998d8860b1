package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/corerouter/pkg"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/metrics"
	"github.com/lintang-b-s/corerouter/pkg/spatialindex"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
)

type Config struct {
	SnapRadius             float64 // km
	DefaultMaxVisitedNodes int
	DefaultAlgorithm       routing.Algorithm
}

func DefaultConfig() Config {
	return Config{
		SnapRadius:             pkg.DEFAULT_SNAP_RADIUS,
		DefaultMaxVisitedNodes: pkg.DEFAULT_MAX_VISITED_NODES,
		DefaultAlgorithm:       routing.CORE_ALT,
	}
}

// Snapshot is one published set of prepared weightings. It is never modified after NewSnapshot returns,
// a query keeps using the snapshot it started with even if a newer one is published meanwhile.
type Snapshot struct {
	version   uint64
	createdAt time.Time
	engines   map[string]*routing.CoreRoutingEngine
	rtree     *spatialindex.Rtree
}

// NewSnapshot bundles routing engines by weighting name. rtree may be nil, coordinate queries then fail.
// All engines must be prepared from the same base graph, node ids are shared between them.
func NewSnapshot(engines []*routing.CoreRoutingEngine, rtree *spatialindex.Rtree) (*Snapshot, error) {
	if len(engines) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "snapshot without routing engines")
	}
	byName := make(map[string]*routing.CoreRoutingEngine, len(engines))
	n := engines[0].GetGraph().NumberOfVertices()
	for _, re := range engines {
		name := re.GetWeighting().Name()
		if _, dup := byName[name]; dup {
			return nil, util.WrapErrorf(nil, util.ErrConflict, "weighting %s prepared twice", name)
		}
		if re.GetGraph().NumberOfVertices() != n {
			return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState,
				"weighting %s was prepared from another graph", name)
		}
		byName[name] = re
	}
	return &Snapshot{
		createdAt: time.Now(),
		engines:   byName,
		rtree:     rtree,
	}, nil
}

func (s *Snapshot) GetVersion() uint64 {
	return s.version
}

func (s *Snapshot) GetRoutingEngine(weighting string) (*routing.CoreRoutingEngine, bool) {
	re, ok := s.engines[weighting]
	return re, ok
}

func (s *Snapshot) Weightings() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine serves queries from the current snapshot. Publish replaces the snapshot atomically.
type Engine struct {
	current atomic.Pointer[Snapshot]
	// held for writing while a snapshot is swapped in, queries starting at that moment wait for it.
	rebuild sync.RWMutex
	version atomic.Uint64
	cfg     Config
	logger  *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
	}
}

// Publish makes snapshot the current one and returns the snapshot it replaced, nil for the first publish.
func (e *Engine) Publish(snapshot *Snapshot) *Snapshot {
	e.rebuild.Lock()
	defer e.rebuild.Unlock()

	snapshot.version = e.version.Add(1)
	old := e.current.Swap(snapshot)
	for _, name := range snapshot.Weightings() {
		re := snapshot.engines[name]
		metrics.SetCoreSize(name, re.GetGraph().GetCoreNodeCount())
	}
	e.logger.Info("published routing snapshot", zap.Uint64("version", snapshot.version),
		zap.Strings("weightings", snapshot.Weightings()))
	return old
}

// Snapshot returns the current snapshot, nil before the first Publish.
func (e *Engine) Snapshot() *Snapshot {
	e.rebuild.RLock()
	defer e.rebuild.RUnlock()
	return e.current.Load()
}

type queryOptions struct {
	algorithm   routing.Algorithm
	landmarkSet string
}

type QueryOption func(*queryOptions)

func WithAlgorithm(algorithm routing.Algorithm) QueryOption {
	return func(o *queryOptions) {
		o.algorithm = algorithm
	}
}

func WithLandmarkSet(name string) QueryOption {
	return func(o *queryOptions) {
		o.landmarkSet = name
	}
}

// ComputePath computes the cheapest path from source to target under weighting, using only edges accepted by
// predicate. maxVisitedNodes <= 0 selects the configured default budget.
func (e *Engine) ComputePath(source, target da.Index, weighting string, predicate filter.Predicate,
	maxVisitedNodes int, opts ...QueryOption) (*routing.PathResult, error) {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "no routing snapshot published")
	}
	return e.computePath(snapshot, source, target, weighting, predicate, maxVisitedNodes, opts...)
}

func (e *Engine) computePath(snapshot *Snapshot, source, target da.Index, weighting string,
	predicate filter.Predicate, maxVisitedNodes int, opts ...QueryOption) (*routing.PathResult, error) {
	qo := queryOptions{algorithm: e.cfg.DefaultAlgorithm}
	for _, opt := range opts {
		opt(&qo)
	}
	if maxVisitedNodes <= 0 {
		maxVisitedNodes = e.cfg.DefaultMaxVisitedNodes
	}

	re, ok := snapshot.GetRoutingEngine(weighting)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown weighting %s", weighting)
	}

	queryId := uuid.New()
	start := time.Now()
	result, err := re.ShortestPath(source, target, predicate, maxVisitedNodes, routing.QueryOptions{
		Algorithm:   qo.algorithm,
		LandmarkSet: qo.landmarkSet,
	})
	elapsed := time.Since(start)

	visited := 0
	if result != nil {
		visited = result.VisitedNodes
		if result.Approximator == "beeline" {
			metrics.ObserveBeelineFallback()
		}
	}
	metrics.ObserveQuery(weighting, qo.algorithm.String(), visited, elapsed, err)

	if err != nil {
		e.logger.Debug("query failed", zap.String("query_id", queryId.String()), zap.Uint64("snapshot", snapshot.version),
			zap.Uint32("source", uint32(source)), zap.Uint32("target", uint32(target)), zap.Error(err))
		return nil, err
	}
	e.logger.Debug("query done", zap.String("query_id", queryId.String()), zap.Uint64("snapshot", snapshot.version),
		zap.String("algorithm", qo.algorithm.String()), zap.String("approximator", result.Approximator),
		zap.Bool("uncontracted", result.Uncontracted), zap.Float64("weight", result.TotalWeight), zap.Int("visited", result.VisitedNodes),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// ComputeMatrix computes the weights between all sources and targets under weighting. maxVisitedNodes <= 0 selects
// the configured default budget.
func (e *Engine) ComputeMatrix(sources, targets []da.Index, weighting string, predicate filter.Predicate,
	maxVisitedNodes int) (*routing.MatrixResult, error) {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "no routing snapshot published")
	}
	if maxVisitedNodes <= 0 {
		maxVisitedNodes = e.cfg.DefaultMaxVisitedNodes
	}
	re, ok := snapshot.GetRoutingEngine(weighting)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown weighting %s", weighting)
	}

	start := time.Now()
	result, err := re.ShortestPathMatrix(sources, targets, predicate, maxVisitedNodes)
	elapsed := time.Since(start)

	visited := 0
	if result != nil {
		visited = result.VisitedNodes
	}
	metrics.ObserveQuery(weighting, "core_matrix", visited, elapsed, err)
	if err != nil {
		e.logger.Debug("matrix failed", zap.Uint64("snapshot", snapshot.version), zap.Int("sources", len(sources)),
			zap.Int("targets", len(targets)), zap.Error(err))
		return nil, err
	}
	e.logger.Debug("matrix done", zap.Uint64("snapshot", snapshot.version), zap.Int("sources", len(sources)),
		zap.Int("targets", len(targets)), zap.Bool("uncontracted", result.Uncontracted),
		zap.Int("visited", result.VisitedNodes), zap.Duration("elapsed", elapsed))
	return result, nil
}

// ComputePathFromCoordinates snaps both coordinates to their nearest graph node and routes between them.
func (e *Engine) ComputePathFromCoordinates(srcLat, srcLon, dstLat, dstLon float64, weighting string,
	predicate filter.Predicate, maxVisitedNodes int, opts ...QueryOption) (*routing.PathResult, error) {
	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "no routing snapshot published")
	}
	if snapshot.rtree == nil {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "snapshot has no spatial index")
	}

	src, err := snapshot.rtree.Snap(srcLat, srcLon, e.cfg.SnapRadius)
	if err != nil {
		return nil, err
	}
	dst, err := snapshot.rtree.Snap(dstLat, dstLon, e.cfg.SnapRadius)
	if err != nil {
		return nil, err
	}
	return e.computePath(snapshot, src.Node, dst.Node, weighting, predicate, maxVisitedNodes, opts...)
}
