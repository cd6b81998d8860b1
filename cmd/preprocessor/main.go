package main

import (
	"flag"

	"github.com/lintang-b-s/corerouter/pkg/config"
	"github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/logger"
	"github.com/lintang-b-s/corerouter/pkg/preprocessor"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config_path", "", "directory holding config.yaml, defaults are used when empty")
	graphPath  = flag.String("graph", "", "unprepared graph written by WriteGraph, a random graph is generated when empty")
	outputDir  = flag.String("out", "./data/prepared", "output directory of prepared graphs and landmark tables")
	numNodes   = flag.Int("nodes", 5000, "nodes of the generated graph")
	extraEdges = flag.Int("extra_edges", 2500, "one-way edges added to the generated spanning tree")
	seed       = flag.Uint64("seed", 1, "seed of the generated graph")
	centerLat  = flag.Float64("lat", -7.7956, "center latitude of the generated graph")
	centerLon  = flag.Float64("lon", 110.3695, "center longitude of the generated graph")
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

	var graph *datastructure.Graph
	if *graphPath != "" {
		logger.Info("Reading graph", zap.String("graph", *graphPath))
		graph, err = datastructure.ReadGraph(*graphPath)
		if err != nil {
			logger.Fatal("reading graph", zap.Error(err))
		}
	} else {
		logger.Info("Generating random graph", zap.Int("nodes", *numNodes), zap.Uint64("seed", *seed))
		graph = datastructure.GenerateRandomGraph(*numNodes, *extraEdges, *seed, *centerLat, *centerLon)
	}

	tasks, err := config.LoadWeightingTasks()
	if err != nil {
		logger.Fatal("reading weightings", zap.Error(err))
	}

	prep := preprocessor.NewPreprocessor(graph, config.LoadPreparationConfig(), logger)
	prepared, err := prep.PrepareAll(tasks)
	if err != nil {
		logger.Error("some weightings were not prepared", zap.Error(err))
	}
	if len(prepared) == 0 {
		logger.Fatal("nothing prepared")
	}

	if err := preprocessor.Persist(*outputDir, prepared, logger); err != nil {
		logger.Fatal("writing prepared graphs", zap.Error(err))
	}
	logger.Sugar().Infof("Preprocessing completed successfully, %d weightings written to %s.", len(prepared), *outputDir)
}
