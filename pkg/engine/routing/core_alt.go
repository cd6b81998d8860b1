package routing

import (
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/landmark"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"go.uber.org/zap"
)

/*
[1] Goldberg, A.V. and Harrelson, C. (2005) ‘Computing the shortest path: A search meets graph theory’, in Proceedings of the Sixteenth Annual ACM-SIAM Symposium on Discrete Algorithms. USA: Society for Industrial and Applied Mathematics (SODA ’05), pp. 156–165.

CoreALT runs phase 2 as bidirectional A* with the consistent average potential of section 5.2 in [1].
the active landmarks are picked once per query from the proxy nodes, the first core nodes reachable from
source and target. without a usable landmark table the great circle estimate is used instead.

landmark bounds are stored rounded down to multiples of the table factor, an edge may see its reduced cost
drop below zero by up to one factor per direction. the stopping test allows for that with the slack of the
approximator and improved labels of already settled nodes are reopened.
*/
type CoreALT struct {
	*AbstractCoreSearch
	landmarks    *landmark.CoreLandmarkStorage
	proxyFinder  *ProxyNodeFinder
	approximator *landmark.ConsistentApproximator
	approxName   string
	logger       *zap.Logger
}

// NewCoreALT builds a CoreALT search. lms may be nil, the search then falls back to the beeline estimate. So does a
// table built with a filter the restriction predicate does not imply.
func NewCoreALT(graph *da.Graph, weighting costfunction.Weighting, predicate filter.Predicate,
	maxVisitedNodes int, arena *da.SearchArena, lms *landmark.CoreLandmarkStorage,
	proxyFinder *ProxyNodeFinder, logger *zap.Logger) *CoreALT {
	ca := &CoreALT{
		AbstractCoreSearch: newAbstractCoreSearch(graph, weighting, predicate, maxVisitedNodes, arena),
		landmarks:          lms,
		proxyFinder:        proxyFinder,
		logger:             logger,
	}
	ca.policy = ca
	return ca
}

func (ca *CoreALT) prepareCore(source, target da.Index) {
	fwd, bwd, err := ca.landmarkApproximators(source, target)
	if err != nil {
		ca.logger.Debug("falling back to beeline approximation", zap.Error(err))
		fwd = landmark.NewBeelineApproximator(ca.graph, ca.weighting, target)
		bwd = landmark.NewBeelineApproximator(ca.graph, ca.weighting, source)
		ca.approxName = "beeline"
	} else {
		ca.approxName = "landmarks:" + ca.landmarks.Name()
	}
	ca.approximator = landmark.NewConsistentApproximator(fwd, bwd)
}

func (ca *CoreALT) landmarkApproximators(source, target da.Index) (landmark.WeightApproximator,
	landmark.WeightApproximator, error) {
	if ca.landmarks == nil {
		return nil, nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable, "no landmark table")
	}
	if ca.uncontracted {
		return nil, nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable, "landmark table %s only bounds core nodes",
			ca.landmarks.Name())
	}
	if !ca.landmarks.Serves(ca.predicate) {
		return nil, nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable,
			"landmark table %s was built with filters the query does not apply", ca.landmarks.Name())
	}

	fromProxy, _, ok := ca.proxyFinder.FindProxy(source, false)
	if !ok {
		return nil, nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable, "no core node reachable from %d", source)
	}
	toProxy, _, ok := ca.proxyFinder.FindProxy(target, true)
	if !ok {
		return nil, nil, util.WrapErrorf(nil, util.ErrLandmarkUnavailable, "no core node reaches %d", target)
	}

	rows, err := ca.landmarks.InitActiveLandmarks(fromProxy, toProxy)
	if err != nil {
		return nil, nil, err
	}
	return landmark.NewCoreLMApproximator(ca.landmarks, rows, toProxy, false),
		landmark.NewCoreLMApproximator(ca.landmarks, rows, fromProxy, true), nil
}

func (ca *CoreALT) potential(v da.Index, reverse bool) float64 {
	return ca.approximator.Potential(v, reverse)
}

func (ca *CoreALT) terminationOffset() float64 {
	return ca.approximator.GetSlack()
}

func (ca *CoreALT) name() string {
	return ca.approxName
}
