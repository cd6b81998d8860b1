package datastructure

// CorePartition groups the core nodes into strongly connected components under an edge filter.
type CorePartition struct {
	components [][]Index
	label      []int32 // component index per node, -1 for non-core or ignored nodes
	singles    int
}

func (p *CorePartition) GetComponents() [][]Index {
	return p.components
}

func (p *CorePartition) NumberOfComponents() int {
	return len(p.components)
}

// GetComponentOf returns -1 when v is not a core node or was excluded as a single entry.
func (p *CorePartition) GetComponentOf(v Index) int32 {
	if int(v) >= len(p.label) {
		return -1
	}
	return p.label[v]
}

// NumberOfSingleEntries counts the core nodes that have no accepted core edge in one of the two directions.
func (p *CorePartition) NumberOfSingleEntries() int {
	return p.singles
}

type tarjanFrame struct {
	node    Index
	edgePos int
}

/*
[1] Tarjan, R. (1972) ‘Depth-First Search and Linear Graph Algorithms’, SIAM Journal on Computing, 1(2), pp. 146–160.

iterative version of tarjan's strongly connected components algorithm restricted to the core of a prepared graph.
an explicit frame stack replaces recursion so that cores with millions of nodes do not overflow the goroutine stack.

only edges between two core nodes that pass accept are followed. when ignoreSingleEntries is set, core nodes without
an accepted core edge in either direction cannot be part of a non trivial component, they are flagged up front and left out.

time complexity: O(n+m) over the core subgraph.
*/
func FindCoreComponents(g *Graph, accept func(e *Edge) bool, ignoreSingleEntries bool) *CorePartition {
	n := g.NumberOfVertices()
	p := &CorePartition{
		components: make([][]Index, 0),
		label:      make([]int32, n),
	}

	index := make([]int32, n)
	lowlink := make([]int32, n)
	onStack := make([]bool, n)
	ignored := make([]bool, n)
	for v := 0; v < n; v++ {
		index[v] = -1
		p.label[v] = -1
	}

	coreEdge := func(e *Edge) bool {
		return g.IsCoreNode(e.tail) && g.IsCoreNode(e.head) && accept(e)
	}

	if ignoreSingleEntries {
		for v := Index(0); int(v) < n; v++ {
			if !g.IsCoreNode(v) {
				continue
			}
			hasOut, hasIn := false, false
			g.ForOutEdgesOf(v, func(e *Edge) {
				if e.head != v && coreEdge(e) {
					hasOut = true
				}
			})
			g.ForInEdgesOf(v, func(e *Edge) {
				if e.tail != v && coreEdge(e) {
					hasIn = true
				}
			})
			if !hasOut || !hasIn {
				ignored[v] = true
				p.singles++
			}
		}
	}

	counter := int32(0)
	stack := make([]Index, 0)
	callStack := make([]tarjanFrame, 0)

	visit := func(v Index) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		callStack = append(callStack, tarjanFrame{node: v})
	}

	for root := Index(0); int(root) < n; root++ {
		if !g.IsCoreNode(root) || ignored[root] || index[root] != -1 {
			continue
		}

		visit(root)
		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			v := top.node
			edges := g.outEdges[v]

			descended := false
			for top.edgePos < len(edges) {
				e := g.edges[edges[top.edgePos]]
				top.edgePos++

				w := e.head
				if ignored[w] || !coreEdge(e) {
					continue
				}
				if index[w] == -1 {
					visit(w)
					descended = true
					break
				} else if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
			if descended {
				continue
			}

			if lowlink[v] == index[v] {
				compId := int32(len(p.components))
				component := make([]Index, 0, 1)
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					p.label[w] = compId
					component = append(component, w)
					if w == v {
						break
					}
				}
				p.components = append(p.components, component)
			}

			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1].node
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
		}
	}

	return p
}
