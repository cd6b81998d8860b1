package main

import (
	"flag"
	"math"
	"os"

	"github.com/lintang-b-s/corerouter/pkg/config"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/logger"
	"github.com/lintang-b-s/corerouter/pkg/preprocessor"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config_path", "", "directory holding config.yaml, defaults are used when empty")
	dataDir     = flag.String("data", "./data/prepared", "directory written by the preprocessor")
	weighting   = flag.String("weighting", "fastest", "weighting to route with")
	algorithm   = flag.String("algorithm", "", "core_dijkstra or core_alt, the configured default when empty")
	landmarkSet = flag.String("landmarks", "", "landmark table used by core_alt")
	srcLat      = flag.Float64("src_lat", -7.7956, "source latitude")
	srcLon      = flag.Float64("src_lon", 110.3695, "source longitude")
	dstLat      = flag.Float64("dst_lat", -7.7700, "target latitude")
	dstLon      = flag.Float64("dst_lon", 110.3900, "target longitude")
	avoidBorder = flag.Bool("avoid_borders", false, "reject border crossings")
	avoidArea   = flag.String("avoid_area", "", "GeoJSON file with a Polygon or MultiPolygon to avoid")
	maxVisited  = flag.Int("max_visited", 0, "search budget, the configured default when 0")
	verify      = flag.Bool("verify", false, "compare the result with a plain dijkstra")
	matrix      = flag.Bool("matrix", false, "also compute the weight matrix between the snapped endpoints")
	output      = flag.String("out", "", "write the path as GeoJSON to this file")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.SetDefaults()
	if *configPath != "" {
		if err := util.ReadConfig(*configPath); err != nil {
			logger.Fatal("reading config", zap.Error(err))
		}
	}
	engineCfg, routingCfg, err := config.LoadQueryConfig()
	if err != nil {
		logger.Fatal("reading query config", zap.Error(err))
	}
	tasks, err := config.LoadWeightingTasks()
	if err != nil {
		logger.Fatal("reading weightings", zap.Error(err))
	}

	prepared, err := preprocessor.Load(*dataDir, tasks, config.LoadLandmarkConfig(), logger)
	if err != nil {
		logger.Fatal("loading prepared graphs", zap.Error(err))
	}
	snapshot, err := preprocessor.BuildSnapshot(prepared, routingCfg, logger)
	if err != nil {
		logger.Fatal("building snapshot", zap.Error(err))
	}
	routingEngine := engine.NewEngine(engineCfg, logger)
	routingEngine.Publish(snapshot)

	re, ok := snapshot.GetRoutingEngine(*weighting)
	if !ok {
		logger.Fatal("weighting not prepared", zap.String("weighting", *weighting))
	}
	graph := re.GetGraph()

	filters := make([]filter.Filter, 0, 2)
	if *avoidBorder {
		filters = append(filters, filter.NewAvoidBordersFilter())
	}
	if *avoidArea != "" {
		data, err := os.ReadFile(*avoidArea)
		if err != nil {
			logger.Fatal("reading avoid area", zap.Error(err))
		}
		areas, err := filter.ParseAvoidAreas(data)
		if err != nil {
			logger.Fatal("parsing avoid area", zap.Error(err))
		}
		filters = append(filters, filter.NewAvoidAreaFilter(areas))
	}
	predicate := filter.Compose(graph, filters...)

	opts := make([]engine.QueryOption, 0, 2)
	if *algorithm != "" {
		algo, ok := routing.ParseAlgorithm(*algorithm)
		if !ok {
			logger.Fatal("unknown algorithm", zap.String("algorithm", *algorithm))
		}
		opts = append(opts, engine.WithAlgorithm(algo))
	}
	if *landmarkSet != "" {
		opts = append(opts, engine.WithLandmarkSet(*landmarkSet))
	}

	res, err := routingEngine.ComputePathFromCoordinates(*srcLat, *srcLon, *dstLat, *dstLon, *weighting, predicate,
		*maxVisited, opts...)
	if err != nil {
		logger.Fatal("query failed", zap.Error(err))
	}
	logger.Info("route found",
		zap.Float64("weight", res.TotalWeight),
		zap.Float64("distance", res.Distance),
		zap.Int("edges", len(res.Edges)),
		zap.Int("visited", res.VisitedNodes),
		zap.Int("coreEdges", res.CoreEdges),
		zap.String("approximator", res.Approximator),
		zap.Bool("uncontracted", res.Uncontracted),
		zap.String("polyline", re.PathPolyline(res.Nodes)))

	if *verify {
		source, target := res.Nodes[0], res.Nodes[len(res.Nodes)-1]
		dist := routing.NewDijkstra(graph, re.GetWeighting(), predicate).ShortestPath(source)
		logger.Info("dijkstra", zap.Float64("weight", dist[target]),
			zap.Bool("equal", math.Abs(dist[target]-res.TotalWeight) < 1e-6))
	}

	if *matrix {
		endpoints := []da.Index{res.Nodes[0], res.Nodes[len(res.Nodes)-1]}
		mat, err := routingEngine.ComputeMatrix(endpoints, endpoints, *weighting, predicate, *maxVisited)
		if err != nil {
			logger.Fatal("matrix failed", zap.Error(err))
		}
		logger.Info("matrix", zap.Any("weights", mat.Weights), zap.Int("visited", mat.VisitedNodes),
			zap.Int("coreEdges", mat.CoreEdges), zap.Bool("uncontracted", mat.Uncontracted))
	}

	if *output != "" {
		fc := geojson.NewFeatureCollection()
		feature := geojson.NewFeature(re.PathGeometry(res.Nodes))
		feature.Properties["weighting"] = *weighting
		feature.Properties["weight"] = res.TotalWeight
		feature.Properties["distance"] = res.Distance
		feature.Properties["approximator"] = res.Approximator
		fc.Append(feature)

		data, err := fc.MarshalJSON()
		if err != nil {
			logger.Fatal("encoding geojson", zap.Error(err))
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			logger.Fatal("writing geojson", zap.Error(err))
		}
		logger.Info("route written", zap.String("file", *output))
	}
}
