package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/lintang-b-s/corerouter/pkg/concurrent"
	"github.com/lintang-b-s/corerouter/pkg/config"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	log "github.com/lintang-b-s/corerouter/pkg/logger"
	"github.com/lintang-b-s/corerouter/pkg/metrics"
	"github.com/lintang-b-s/corerouter/pkg/preprocessor"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/time/rate"
)

var (
	configPath   = flag.String("config_path", "", "directory holding config.yaml, defaults are used when empty")
	dataDir      = flag.String("data", "./data/prepared", "directory written by the preprocessor")
	weighting    = flag.String("weighting", "fastest", "weighting to route with")
	numQueries   = flag.Int("queries", 1000, "number of random queries")
	seed         = flag.Uint64("seed", 42, "seed of the random queries")
	numWorkers   = flag.Int("workers", 4, "concurrent queries")
	verify       = flag.Bool("verify", true, "compare every result with a plain dijkstra")
	output       = flag.String("out", "rand_queries_result.txt", "result file")
	metricsAddr  = flag.String("metrics_addr", "localhost:6060", "prometheus endpoint, disabled when empty")
	avoidBorders = flag.Bool("avoid_borders", false, "reject border crossings")
	qps          = flag.Float64("qps", 0, "query pairs per second over all workers, unlimited when 0")
)

type spParam struct {
	row int
	s   da.Index
	t   da.Index
}

type spResult struct {
	row       int
	algorithm routing.Algorithm
	weight    float64
	visited   int
	duration  time.Duration
	mismatch  bool
	err       error
}

func main() {
	flag.Parse()
	logger, err := log.New()
	if err != nil {
		panic(err)
	}

	config.SetDefaults()
	if *configPath != "" {
		if err := util.ReadConfig(*configPath); err != nil {
			panic(err)
		}
	}
	engineCfg, routingCfg, err := config.LoadQueryConfig()
	if err != nil {
		panic(err)
	}
	tasks, err := config.LoadWeightingTasks()
	if err != nil {
		panic(err)
	}
	prepared, err := preprocessor.Load(*dataDir, tasks, config.LoadLandmarkConfig(), logger)
	if err != nil {
		panic(err)
	}
	snapshot, err := preprocessor.BuildSnapshot(prepared, routingCfg, logger)
	if err != nil {
		panic(err)
	}
	re := engine.NewEngine(engineCfg, logger)
	re.Publish(snapshot)

	routingEngine, ok := snapshot.GetRoutingEngine(*weighting)
	if !ok {
		panic(fmt.Sprintf("weighting %s is not prepared", *weighting))
	}
	g := routingEngine.GetGraph()

	predicate := filter.AcceptAll
	if *avoidBorders {
		predicate = filter.Compose(g, filter.NewAvoidBordersFilter())
	}

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Error("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	rng := rand.New(rand.NewSource(*seed))
	n := g.NumberOfVertices()
	queries := make([]spParam, *numQueries)
	for i := range queries {
		queries[i] = spParam{row: i, s: da.Index(rng.Intn(n)), t: da.Index(rng.Intn(n))}
	}

	oracles := sync.Pool{
		New: func() any {
			return routing.NewDijkstra(g, routingEngine.GetWeighting(), predicate)
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if *qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*qps), 1)
	}

	calcSP := func(p spParam) []spResult {
		if err := limiter.Wait(context.Background()); err != nil {
			logger.Error("rate limiter", zap.Error(err))
		}
		want := math.NaN()
		if *verify {
			oracle := oracles.Get().(*routing.Dijkstra)
			want = oracle.ShortestPath(p.s)[p.t]
			oracles.Put(oracle)
		}

		results := make([]spResult, 0, 2)
		for _, algo := range []routing.Algorithm{routing.CORE_DIJKSTRA, routing.CORE_ALT} {
			before := time.Now()
			res, err := re.ComputePath(p.s, p.t, *weighting, predicate, 0, engine.WithAlgorithm(algo))
			r := spResult{row: p.row, algorithm: algo, duration: time.Since(before), err: err, weight: math.Inf(1)}
			if err == nil {
				r.weight = res.TotalWeight
				r.visited = res.VisitedNodes
			}
			if *verify {
				reachable := want < 1e15
				r.mismatch = (err == nil) != reachable || (err == nil && math.Abs(want-r.weight) > 1e-6)
			}
			results = append(results, r)
		}
		if (p.row+1)%1000 == 0 {
			logger.Sugar().Infof("done query %v", p.row+1)
		}
		return results
	}

	start := time.Now()
	all := concurrent.Run(*numWorkers, queries, calcSP)
	logger.Info("random queries done", zap.Int("queries", len(queries)), zap.Duration("took", time.Since(start)))

	fout, err := os.Create(*output)
	if err != nil {
		panic(err)
	}
	defer fout.Close()
	w := bufio.NewWriter(fout)
	defer w.Flush()

	mismatches := 0
	totals := map[routing.Algorithm]time.Duration{}
	for _, results := range all {
		for _, r := range results {
			status := "ok"
			if r.err != nil {
				status = metrics.ResultLabel(r.err)
			}
			if r.mismatch {
				mismatches++
				status = "mismatch"
			}
			totals[r.algorithm] += r.duration
			fmt.Fprintf(w, "%d %s %s %d %d %s\n", r.row, r.algorithm, strconv.FormatFloat(r.weight, 'f', -1, 64), r.visited,
				r.duration.Microseconds(), status)
		}
	}

	for algo, total := range totals {
		logger.Info("average query time", zap.String("algorithm", algo.String()),
			zap.Duration("avg", total/time.Duration(util.MaxInt(len(queries), 1))))
	}
	if mismatches > 0 {
		logger.Error("results differ from dijkstra", zap.Int("mismatches", mismatches))
		return
	}
	logger.Info("all results match dijkstra")
}
