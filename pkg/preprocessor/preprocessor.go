package preprocessor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/concurrent"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/landmark"
	"github.com/lintang-b-s/corerouter/pkg/metrics"
	"github.com/lintang-b-s/corerouter/pkg/spatialindex"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LandmarkSet names the filters one landmark table is built with. Queries may use the table only with a
// predicate that rejects at least what these filters reject.
type LandmarkSet struct {
	Name    string
	Filters []filter.Filter
}

// WeightingTask describes one preparation: the weighting, the filters that decide which nodes stay in the core
// and the landmark tables to build on that core.
type WeightingTask struct {
	Weighting         string
	StructuralFilters []filter.Filter
	LandmarkSets      []LandmarkSet
}

type PreparedWeighting struct {
	Prepared  *contractor.PreparedGraph
	Landmarks []*landmark.CoreLandmarkStorage
}

type Config struct {
	Contraction contractor.Config
	Landmark    landmark.Config
	Routing     routing.Config
	NumWorkers  int
}

type Preprocessor struct {
	graph  *da.Graph
	cfg    Config
	logger *zap.Logger
}

func NewPreprocessor(graph *da.Graph, cfg Config, logger *zap.Logger) *Preprocessor {
	return &Preprocessor{
		graph:  graph,
		cfg:    cfg,
		logger: logger,
	}
}

type prepareResult struct {
	task     WeightingTask
	prepared *PreparedWeighting
	err      error
}

// PrepareAll prepares every task on the worker pool, one task per worker. A failing task is logged and skipped,
// the returned error joins all task errors and is nil when every task succeeded.
func (p *Preprocessor) PrepareAll(tasks []WeightingTask) ([]*PreparedWeighting, error) {
	p.logger.Info("Starting core preparation...", zap.Int("weightings", len(tasks)),
		zap.Int("workers", p.cfg.NumWorkers))

	results := concurrent.Run(p.cfg.NumWorkers, tasks, func(task WeightingTask) prepareResult {
		prepared, err := p.Prepare(task)
		return prepareResult{task: task, prepared: prepared, err: err}
	})

	byName := make(map[string]*PreparedWeighting, len(results))
	errs := make([]error, 0)
	for _, res := range results {
		if res.err != nil {
			p.logger.Error("preparation failed", zap.String("weighting", res.task.Weighting), zap.Error(res.err))
			errs = append(errs, fmt.Errorf("weighting %s: %w", res.task.Weighting, res.err))
			continue
		}
		byName[res.task.Weighting] = res.prepared
	}

	// task order, independent of completion order
	prepared := make([]*PreparedWeighting, 0, len(byName))
	for _, task := range tasks {
		if pw, ok := byName[task.Weighting]; ok {
			prepared = append(prepared, pw)
		}
	}
	return prepared, errors.Join(errs...)
}

// Prepare contracts the graph for one weighting and builds its landmark tables. The landmark tables of one
// weighting are built concurrently, each owns its storage.
func (p *Preprocessor) Prepare(task WeightingTask) (*PreparedWeighting, error) {
	weighting, ok := costfunction.NewWeighting(task.Weighting, p.graph)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown weighting %s", task.Weighting)
	}

	start := time.Now()
	structural := filter.NewStructuralFilter(p.graph, task.StructuralFilters...)
	prepared, err := contractor.Prepare(p.graph, weighting, structural, p.cfg.Contraction, p.logger)
	if err != nil {
		return nil, err
	}
	metrics.ObservePreparation(task.Weighting, "contraction", time.Since(start))

	start = time.Now()
	storages := make([]*landmark.CoreLandmarkStorage, len(task.LandmarkSets))
	var eg errgroup.Group
	for i, set := range task.LandmarkSets {
		eg.Go(func() error {
			lms := landmark.NewCoreLandmarkStorage(prepared, set.Name, filter.Compose(prepared.GetGraph(), set.Filters...),
				p.cfg.Landmark, p.logger)
			if err := lms.CreateLandmarks(); err != nil {
				return fmt.Errorf("landmark set %s: %w", set.Name, err)
			}
			storages[i] = lms
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	metrics.ObservePreparation(task.Weighting, "landmarks", time.Since(start))

	return &PreparedWeighting{Prepared: prepared, Landmarks: storages}, nil
}

func graphFile(dir, weighting string) string {
	return filepath.Join(dir, weighting+".graph")
}

func landmarkFile(dir, weighting, set string) string {
	return filepath.Join(dir, weighting+"."+set+".landmarks")
}

// Persist writes every prepared graph and its landmark tables into dir.
func Persist(dir string, prepared []*PreparedWeighting, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, pw := range prepared {
		name := pw.Prepared.GetWeighting().Name()
		logger.Info("Writing prepared graph", zap.String("weighting", name))
		if err := pw.Prepared.GetGraph().WriteGraph(graphFile(dir, name)); err != nil {
			return err
		}
		for _, lms := range pw.Landmarks {
			if err := lms.WriteLandmarks(landmarkFile(dir, name, lms.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads back what Persist wrote for tasks. The structural coverage and the landmark filters are rebuilt from
// the task description.
func Load(dir string, tasks []WeightingTask, lmCfg landmark.Config, logger *zap.Logger) ([]*PreparedWeighting, error) {
	prepared := make([]*PreparedWeighting, 0, len(tasks))
	for _, task := range tasks {
		graph, err := da.ReadGraph(graphFile(dir, task.Weighting))
		if err != nil {
			return nil, err
		}
		weighting, ok := costfunction.NewWeighting(task.Weighting, graph)
		if !ok {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown weighting %s", task.Weighting)
		}
		pg, err := contractor.NewPreparedGraph(graph, weighting, filter.NewCoverage(task.StructuralFilters...))
		if err != nil {
			return nil, err
		}

		pw := &PreparedWeighting{Prepared: pg, Landmarks: make([]*landmark.CoreLandmarkStorage, 0, len(task.LandmarkSets))}
		for _, set := range task.LandmarkSets {
			lms, err := landmark.ReadLandmarks(landmarkFile(dir, task.Weighting, set.Name), pg,
				filter.Compose(graph, set.Filters...), lmCfg, logger)
			if err != nil {
				return nil, err
			}
			pw.Landmarks = append(pw.Landmarks, lms)
		}
		logger.Info("Loaded prepared graph", zap.String("weighting", task.Weighting),
			zap.Int("coreNodes", len(pg.GetCoreNodes())), zap.Int("landmarkSets", len(pw.Landmarks)))
		prepared = append(prepared, pw)
	}
	return prepared, nil
}

// BuildSnapshot wraps prepared weightings into routing engines and indexes the graph geometry for coordinate
// snapping.
func BuildSnapshot(prepared []*PreparedWeighting, routingCfg routing.Config, logger *zap.Logger) (*engine.Snapshot, error) {
	engines := make([]*routing.CoreRoutingEngine, 0, len(prepared))
	for _, pw := range prepared {
		re, err := routing.NewCoreRoutingEngine(pw.Prepared, pw.Landmarks, routingCfg, logger)
		if err != nil {
			return nil, err
		}
		engines = append(engines, re)
	}
	if len(engines) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrInvalidPreparedState, "nothing prepared")
	}

	rt := spatialindex.NewRtree()
	rt.Build(engines[0].GetGraph(), pkg.DEFAULT_RTREE_BOX_RADIUS, logger)
	return engine.NewSnapshot(engines, rt)
}
