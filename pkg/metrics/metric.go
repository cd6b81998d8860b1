package metrics

import (
	"errors"
	"time"

	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RESULT_SUCCESS         = "success"
	RESULT_NOT_FOUND       = "route_not_found"
	RESULT_BUDGET_EXCEEDED = "budget_exceeded"
	RESULT_BAD_INPUT       = "bad_input"
	RESULT_INVALID_STATE   = "invalid_prepared_state"
	RESULT_OTHER           = "other"
)

var (
	// queryTotal counts queries by weighting, algorithm and result
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corerouter_queries_total",
		Help: "Total shortest path queries by result",
	}, []string{"weighting", "algorithm", "result"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corerouter_query_duration_seconds",
		Help:    "Shortest path query duration",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"algorithm"})

	visitedNodes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corerouter_query_visited_nodes",
		Help:    "Settled nodes per successful query",
		Buckets: prometheus.ExponentialBuckets(8, 4, 8),
	}, []string{"algorithm"})

	approximatorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corerouter_beeline_fallbacks_total",
		Help: "Core ALT queries that ran with the beeline estimate",
	})

	preparationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corerouter_preparation_duration_seconds",
		Help:    "Duration of preparation stages",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"weighting", "stage"})

	coreSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "corerouter_core_nodes",
		Help: "Number of core nodes of the published preparation",
	}, []string{"weighting"})
)

// ResultLabel maps a query error to its result label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return RESULT_SUCCESS
	case errors.Is(err, util.ErrRouteNotFound):
		return RESULT_NOT_FOUND
	case errors.Is(err, util.ErrSearchBudgetExceeded):
		return RESULT_BUDGET_EXCEEDED
	case errors.Is(err, util.ErrBadParamInput), errors.Is(err, util.ErrNotFound):
		return RESULT_BAD_INPUT
	case errors.Is(err, util.ErrInvalidPreparedState):
		return RESULT_INVALID_STATE
	default:
		return RESULT_OTHER
	}
}

func ObserveQuery(weighting, algorithm string, visited int, elapsed time.Duration, err error) {
	queryTotal.WithLabelValues(weighting, algorithm, ResultLabel(err)).Inc()
	queryDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
	if err == nil {
		visitedNodes.WithLabelValues(algorithm).Observe(float64(visited))
	}
}

func ObserveBeelineFallback() {
	approximatorFallbacks.Inc()
}

func ObservePreparation(weighting, stage string, elapsed time.Duration) {
	preparationDuration.WithLabelValues(weighting, stage).Observe(elapsed.Seconds())
}

func SetCoreSize(weighting string, nodes int) {
	coreSize.WithLabelValues(weighting).Set(float64(nodes))
}
