package landmark

import (
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
)

const BEELINE_SLACK = 1e-6

// WeightApproximator estimates the remaining weight between a node and the fixed target of one search direction.
type WeightApproximator interface {
	Approximate(v da.Index) float64
	// GetSlack bounds how far the estimate may overshoot a feasible potential on a single edge.
	GetSlack() float64
}

// CoreLMApproximator bounds the weight between a core node and a core target with the active landmarks.
// a reverse approximator bounds d(target, v) instead of d(v, target).
type CoreLMApproximator struct {
	lms     *CoreLandmarkStorage
	rows    []int
	target  da.Index
	reverse bool
}

func NewCoreLMApproximator(lms *CoreLandmarkStorage, activeRows []int, target da.Index, reverse bool) *CoreLMApproximator {
	return &CoreLMApproximator{
		lms:     lms,
		rows:    activeRows,
		target:  target,
		reverse: reverse,
	}
}

func (a *CoreLMApproximator) Approximate(v da.Index) float64 {
	if a.reverse {
		return a.lms.LowerBound(a.rows, a.target, v)
	}
	return a.lms.LowerBound(a.rows, v, a.target)
}

// GetSlack is one quantization step per triangle term.
func (a *CoreLMApproximator) GetSlack() float64 {
	return 2 * a.lms.GetFactor()
}

// BeelineApproximator is the great-circle distance to the target scaled by the smallest weight per meter
// of the weighting. It needs no preprocessing and works for every node.
type BeelineApproximator struct {
	graph             *da.Graph
	target            da.Index
	minWeightPerMeter float64
}

func NewBeelineApproximator(graph *da.Graph, weighting costfunction.Weighting, target da.Index) *BeelineApproximator {
	return &BeelineApproximator{
		graph:             graph,
		target:            target,
		minWeightPerMeter: weighting.GetMinWeightPerMeter(),
	}
}

func (a *BeelineApproximator) Approximate(v da.Index) float64 {
	return a.graph.HaversineMeters(v, a.target) * a.minWeightPerMeter
}

func (a *BeelineApproximator) GetSlack() float64 {
	return BEELINE_SLACK
}

/*
[1] Goldberg, A.V. and Harrelson, C. (2005) ‘Computing the shortest path: A search meets graph theory’, in Proceedings of the Sixteenth Annual ACM-SIAM Symposium on Discrete Algorithms. USA: Society for Industrial and Applied Mathematics (SODA ’05), pp. 156–165.

average potential of section 5.2 in [1]: pf(v) = (πf(v) - πr(v)) / 2, pr(v) = -pf(v).
with pf + pr = 0 both directions of a bidirectional search see the same reduced edge costs,
so the search may stop as soon as the top keys of both queues sum to the best path weight.
*/
type ConsistentApproximator struct {
	forward  WeightApproximator
	backward WeightApproximator
}

func NewConsistentApproximator(forward, backward WeightApproximator) *ConsistentApproximator {
	return &ConsistentApproximator{forward: forward, backward: backward}
}

func (a *ConsistentApproximator) Potential(v da.Index, reverse bool) float64 {
	pf := (a.forward.Approximate(v) - a.backward.Approximate(v)) / 2
	if reverse {
		return -pf
	}
	return pf
}

func (a *ConsistentApproximator) GetSlack() float64 {
	return max(a.forward.GetSlack(), a.backward.GetSlack())
}
