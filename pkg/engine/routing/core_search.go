package routing

import (
	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
)

// phase2Policy is what distinguishes the core search variants.
type phase2Policy interface {
	// prepareCore runs once both phase 1 frontiers are finished.
	prepareCore(source, target da.Index)
	potential(v da.Index, reverse bool) float64
	// terminationOffset is added to the best weight in the phase 2 stopping test.
	terminationOffset() float64
	name() string
}

/*
[1] Geisberger, R. et al. (2008) ‘Contraction Hierarchies: Faster and Simpler Hierarchical Routing in Road Networks’, in C.C. McGeoch (ed.) Experimental Algorithms. Berlin, Heidelberg: Springer, pp. 319–333.
[2] Bauer, R. et al. (2010) ‘Combining hierarchical and goal-directed speed-up techniques for dijkstra’s algorithm’, ACM J. Exp. Algorithmics, 15. (CHASE / core-ALT)

AbstractCoreSearch is a bidirectional search over a graph prepared with a contracted periphery and an uncontracted core.

phase 1: each frontier runs an upward contraction hierarchies search [1]. core nodes are not expanded, they are parked
in the frontier's core queue. a frontier stops when its queue is empty or its minimum is at least the best meeting weight.

phase 2: both frontiers continue from their parked core nodes inside the core only. only here the per query
restriction predicate is evaluated, so the periphery never needs to be re-contracted for a new restriction.
the policy decides whether phase 2 is plain dijkstra or goal directed with landmarks [2].

a predicate that rejects edges the preparation kept outside the core, e.g. an avoid area, cannot be answered over
the hierarchy. the search then runs uncontracted: every node counts as core, shortcuts are skipped and phase 2
becomes a plain bidirectional search over the original edges.

on a graph with turn costs labels at a node are kept per incoming turn relevant edge. two labels of the same edge
meet by walking the current one back to its parent so the meeting edge is counted once.

one AbstractCoreSearch serves exactly one query.
*/
type AbstractCoreSearch struct {
	graph           *da.Graph
	weighting       costfunction.Weighting
	predicate       filter.Predicate
	maxVisitedNodes int
	policy          phase2Policy
	uncontracted    bool
	edgeBased       bool

	// onRelax, when set, sees every edge a phase relaxes.
	onRelax func(phase searchPhase, u, adj da.Index, e *da.Edge)

	arena *da.SearchArena
	fwd   *frontier
	bwd   *frontier
	phase searchPhase

	bestWeight  float64
	forwardMid  da.EntryHandle
	backwardMid da.EntryHandle

	visitedNodes int
	coreEdges    int
}

func newAbstractCoreSearch(graph *da.Graph, weighting costfunction.Weighting, predicate filter.Predicate,
	maxVisitedNodes int, arena *da.SearchArena) *AbstractCoreSearch {
	if predicate == nil {
		predicate = filter.AcceptAll
	}
	arena.Reset()
	return &AbstractCoreSearch{
		graph:           graph,
		weighting:       weighting,
		predicate:       predicate,
		maxVisitedNodes: maxVisitedNodes,
		edgeBased:       graph.HasTurnCosts(),
		arena:           arena,
		fwd:             newFrontier(false),
		bwd:             newFrontier(true),
		bestWeight:      pkg.INF_WEIGHT,
		forwardMid:      da.NIL_ENTRY,
		backwardMid:     da.NIL_ENTRY,
	}
}

func (s *AbstractCoreSearch) GetPhase() searchPhase {
	return s.phase
}

func (s *AbstractCoreSearch) GetVisitedNodes() int {
	return s.visitedNodes
}

// SetUncontracted makes the search ignore the hierarchy. Required for predicates the preparation does not cover.
func (s *AbstractCoreSearch) SetUncontracted(uncontracted bool) {
	s.uncontracted = uncontracted
}

func (s *AbstractCoreSearch) IsUncontracted() bool {
	return s.uncontracted
}

func (s *AbstractCoreSearch) isCore(v da.Index) bool {
	return s.uncontracted || s.graph.IsCoreNode(v)
}

// ShortestPathSearch returns the packed search result: the meeting entries of both frontiers.
// ErrRouteNotFound when the frontiers never meet, ErrSearchBudgetExceeded when more than maxVisitedNodes
// nodes would have to be settled before optimality is proven.
func (s *AbstractCoreSearch) ShortestPathSearch(source, target da.Index) error {
	s.initFrom(source)
	s.initTo(target)

	s.phase = PHASE1_RUNNING
	if err := s.runPhase1(); err != nil {
		return err
	}
	s.phase = PHASE1_DONE

	s.initPhase2(source, target)
	s.phase = PHASE2_RUNNING
	if err := s.runPhase2(); err != nil {
		return err
	}
	s.phase = FINISHED

	if s.bestWeight >= pkg.INF_WEIGHT || s.forwardMid == da.NIL_ENTRY {
		return util.WrapErrorf(nil, util.ErrRouteNotFound, "no route from %d to %d", source, target)
	}
	return nil
}

func (s *AbstractCoreSearch) initFrom(source da.Index) {
	s.initFrontier(s.fwd, source)
}

func (s *AbstractCoreSearch) initTo(target da.Index) {
	s.initFrontier(s.bwd, target)
}

func (s *AbstractCoreSearch) initFrontier(f *frontier, root da.Index) {
	h := s.arena.New(root, da.INVALID_EDGE_ID, 0, 0, da.NIL_ENTRY)
	f.labels[labelKey{node: root, edge: da.INVALID_EDGE_ID}] = h
	f.atNode[root] = append(f.atNode[root], h)
	node := da.NewPriorityQueueNode(0, h)
	f.chPq.Insert(node)
	s.arena.Get(h).SetHeapNode(node, da.HEAP_CH)
	s.updateBest(f, h)
}

func (s *AbstractCoreSearch) budgetExceeded() error {
	if s.visitedNodes >= s.maxVisitedNodes {
		return util.WrapErrorf(nil, util.ErrSearchBudgetExceeded,
			"settled %d nodes in %s without proving the best path", s.visitedNodes, s.phase)
	}
	return nil
}

func (s *AbstractCoreSearch) finishedPhase1(f *frontier) bool {
	return f.chPq.IsEmpty() || f.chPq.GetMinrank() >= s.bestWeight
}

func (s *AbstractCoreSearch) runPhase1() error {
	for {
		if !s.fwd.finished && s.finishedPhase1(s.fwd) {
			s.fwd.finished = true
		}
		if !s.bwd.finished && s.finishedPhase1(s.bwd) {
			s.bwd.finished = true
		}
		if s.fwd.finished && s.bwd.finished {
			return nil
		}

		f := s.fwd
		if s.fwd.finished || (!s.bwd.finished && s.bwd.chPq.GetMinrank() < s.fwd.chPq.GetMinrank()) {
			f = s.bwd
		}

		item, _ := f.chPq.ExtractMin()
		h := item.GetItem()
		entry := s.arena.Get(h)
		u := entry.GetNode()

		if s.isCore(u) {
			node := da.NewPriorityQueueNode(entry.GetWeightOfVisitedPath(), h)
			f.corePq.Insert(node)
			entry.SetHeapNode(node, da.HEAP_CORE)
			continue
		}
		entry.SetHeapNode(nil, da.HEAP_NONE)

		if err := s.budgetExceeded(); err != nil {
			return err
		}
		s.visitedNodes++

		s.expand(f, h, s.acceptPhase1)
	}
}

func (s *AbstractCoreSearch) acceptPhase1(u, adj da.Index, e *da.Edge) bool {
	return isUpward(s.graph, u, adj)
}

// isUpward reports whether adj is not below u. a node without level is a virtual node and is always reachable.
func isUpward(graph *da.Graph, u, adj da.Index) bool {
	lu, la := graph.GetLevel(u), graph.GetLevel(adj)
	return la >= lu || lu == pkg.LEVEL_UNASSIGNED || la == pkg.LEVEL_UNASSIGNED
}

func (s *AbstractCoreSearch) acceptPhase2(u, adj da.Index, e *da.Edge) bool {
	if !s.isCore(adj) || (s.uncontracted && e.IsShortcut()) {
		return false
	}
	s.coreEdges++
	return s.predicate.Accept(e)
}

func (s *AbstractCoreSearch) initPhase2(source, target da.Index) {
	for _, f := range []*frontier{s.fwd, s.bwd} {
		for _, item := range f.chPq.Items() {
			s.arena.Get(item.GetItem()).SetHeapNode(nil, da.HEAP_NONE)
		}
		f.chPq.Clear()
	}

	s.policy.prepareCore(source, target)

	for _, f := range []*frontier{s.fwd, s.bwd} {
		parked := make([]da.EntryHandle, 0, f.corePq.Size())
		for _, item := range f.corePq.Items() {
			parked = append(parked, item.GetItem())
		}
		f.corePq.Clear()
		for _, h := range parked {
			entry := s.arena.Get(h)
			priority := entry.GetWeightOfVisitedPath() + s.policy.potential(entry.GetNode(), f.reverse)
			entry.SetWeight(priority)
			node := da.NewPriorityQueueNode(priority, h)
			f.corePq.Insert(node)
			entry.SetHeapNode(node, da.HEAP_CORE)
		}
		f.finished = false
	}
}

func (s *AbstractCoreSearch) finishedPhase2() bool {
	if s.fwd.corePq.IsEmpty() || s.bwd.corePq.IsEmpty() {
		return true
	}
	return s.fwd.corePq.GetMinrank()+s.bwd.corePq.GetMinrank() >= s.bestWeight+s.policy.terminationOffset()
}

func (s *AbstractCoreSearch) runPhase2() error {
	for !s.finishedPhase2() {
		f := s.fwd
		if s.bwd.corePq.GetMinrank() < s.fwd.corePq.GetMinrank() {
			f = s.bwd
		}

		if err := s.budgetExceeded(); err != nil {
			return err
		}

		item, _ := f.corePq.ExtractMin()
		h := item.GetItem()
		s.arena.Get(h).SetHeapNode(nil, da.HEAP_NONE)
		s.visitedNodes++

		s.expand(f, h, s.acceptPhase2)
	}
	return nil
}

// expand relaxes the edges of the node of entry h in the direction of f. accept decides which edges
// the current phase may use.
func (s *AbstractCoreSearch) expand(f *frontier, h da.EntryHandle, accept func(u, adj da.Index, e *da.Edge) bool) {
	entry := s.arena.Get(h)
	u := entry.GetNode()
	prevEdge := entry.GetEdge()
	base := entry.GetWeightOfVisitedPath()
	phase := s.phase

	s.graph.ForEdgesOf(u, f.reverse, func(e *da.Edge) {
		adj := e.GetAdjacent(f.reverse)
		if adj == u || !accept(u, adj, e) {
			return
		}
		w := s.weighting.GetWeight(e, f.reverse, prevEdge)
		if f.reverse {
			w += s.graph.GetTurnCost(e.GetEdgeId(), u, prevEdge)
		} else {
			w += s.graph.GetTurnCost(prevEdge, u, e.GetEdgeId())
		}
		if w >= pkg.INF_WEIGHT {
			return
		}
		if s.onRelax != nil {
			s.onRelax(phase, u, adj, e)
		}
		s.relax(f, h, adj, e.GetEdgeId(), base+w)
	})
}

// keyOf keys labels of node v by the edge they were reached over if a turn cost may depend on it.
func (s *AbstractCoreSearch) keyOf(v, edge da.Index) labelKey {
	if s.edgeBased && edge != da.INVALID_EDGE_ID && s.graph.IsTurnRelevant(edge) {
		return labelKey{node: v, edge: edge}
	}
	return labelKey{node: v, edge: da.INVALID_EDGE_ID}
}

func (s *AbstractCoreSearch) relax(f *frontier, parent da.EntryHandle, adj, edge da.Index, weightOfVisitedPath float64) {
	inCore := s.phase == PHASE2_RUNNING
	priority := weightOfVisitedPath
	if inCore {
		priority += s.policy.potential(adj, f.reverse)
	}

	key := s.keyOf(adj, edge)
	adjH, ok := f.labels[key]
	if !ok {
		adjH = s.arena.New(adj, edge, priority, weightOfVisitedPath, parent)
		f.labels[key] = adjH
		f.atNode[adj] = append(f.atNode[adj], adjH)
		s.push(f, adjH, priority, inCore)
		s.updateBest(f, adjH)
		return
	}

	adjEntry := s.arena.Get(adjH)
	if weightOfVisitedPath >= adjEntry.GetWeightOfVisitedPath() {
		return
	}
	adjEntry.Update(edge, weightOfVisitedPath, parent)
	adjEntry.SetWeight(priority)

	heapNode := adjEntry.GetHeapNode()
	switch {
	case heapNode != nil && adjEntry.GetHeapKind() == da.HEAP_CH && f.chPq.Contains(heapNode):
		_ = f.chPq.DecreaseKey(heapNode, priority)
	case heapNode != nil && adjEntry.GetHeapKind() == da.HEAP_CORE && f.corePq.Contains(heapNode):
		if inCore {
			_ = f.corePq.Update(heapNode, priority)
		} else {
			_ = f.corePq.DecreaseKey(heapNode, weightOfVisitedPath)
		}
	default:
		// settled before, reopen
		s.push(f, adjH, priority, inCore)
	}
	s.updateBest(f, adjH)
}

func (s *AbstractCoreSearch) push(f *frontier, h da.EntryHandle, priority float64, inCore bool) {
	node := da.NewPriorityQueueNode(priority, h)
	if inCore {
		f.corePq.Insert(node)
		s.arena.Get(h).SetHeapNode(node, da.HEAP_CORE)
		return
	}
	f.chPq.Insert(node)
	s.arena.Get(h).SetHeapNode(node, da.HEAP_CH)
}

// updateBest checks the labels the other frontier holds at the node of h. ties keep the first meeting found.
func (s *AbstractCoreSearch) updateBest(f *frontier, h da.EntryHandle) {
	other := s.bwd
	if f.reverse {
		other = s.fwd
	}
	entry := s.arena.Get(h)
	v := entry.GetNode()
	weightOfVisitedPath := entry.GetWeightOfVisitedPath()

	for _, otherH := range other.atNode[v] {
		otherEntry := s.arena.Get(otherH)
		turn := s.graph.GetTurnCost(entry.GetEdge(), v, otherEntry.GetEdge())
		if f.reverse {
			turn = s.graph.GetTurnCost(otherEntry.GetEdge(), v, entry.GetEdge())
		}
		if turn >= pkg.INF_WEIGHT {
			continue
		}
		s.meet(f, h, otherH, weightOfVisitedPath+otherEntry.GetWeightOfVisitedPath()+turn)
	}

	if !s.edgeBased || entry.GetEdge() == da.INVALID_EDGE_ID || !s.graph.IsTurnRelevant(entry.GetEdge()) {
		return
	}
	// the other frontier reached the same edge from its far end: both labels contain the edge, so the current
	// one steps back to its parent and the edge weight without turn cost is taken off once.
	e := s.graph.GetEdge(entry.GetEdge())
	otherH, ok := other.labels[labelKey{node: e.GetBase(f.reverse), edge: e.GetEdgeId()}]
	if !ok || entry.GetParent() == da.NIL_ENTRY {
		return
	}
	candidate := weightOfVisitedPath + s.arena.Get(otherH).GetWeightOfVisitedPath() -
		s.weighting.GetWeight(e, f.reverse, da.INVALID_EDGE_ID)
	s.meet(f, entry.GetParent(), otherH, candidate)
}

func (s *AbstractCoreSearch) meet(f *frontier, h, otherH da.EntryHandle, candidate float64) {
	if candidate >= s.bestWeight {
		return
	}
	s.bestWeight = candidate
	if f.reverse {
		s.forwardMid, s.backwardMid = otherH, h
	} else {
		s.forwardMid, s.backwardMid = h, otherH
	}
}

// packedPath returns the edges of the best path in travel order, shortcuts not unpacked.
func (s *AbstractCoreSearch) packedPath() []da.Index {
	edges := make([]da.Index, 0)
	for h := s.forwardMid; h != da.NIL_ENTRY; {
		entry := s.arena.Get(h)
		if entry.GetEdge() != da.INVALID_EDGE_ID {
			edges = append(edges, entry.GetEdge())
		}
		h = entry.GetParent()
	}
	edges = util.ReverseG(edges)

	for h := s.backwardMid; h != da.NIL_ENTRY; {
		entry := s.arena.Get(h)
		if entry.GetEdge() != da.INVALID_EDGE_ID {
			edges = append(edges, entry.GetEdge())
		}
		h = entry.GetParent()
	}
	return edges
}
