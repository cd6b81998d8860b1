package datastructure

// EntryHandle addresses a SearchEntry inside a SearchArena. -1 is the nil handle.
type EntryHandle int32

const NIL_ENTRY EntryHandle = -1

type HeapKind uint8

const (
	HEAP_NONE HeapKind = iota
	HEAP_CH
	HEAP_CORE
)

// SearchEntry is one label of a shortest path tree. parent links point at the entry of the previous node.
type SearchEntry struct {
	node                Index
	edge                Index // edge used to reach node, INVALID_EDGE_ID at the root
	weight              float64
	weightOfVisitedPath float64
	parent              EntryHandle

	heapNode *PriorityQueueNode[EntryHandle]
	heapKind HeapKind
}

func (e *SearchEntry) GetNode() Index {
	return e.node
}

func (e *SearchEntry) GetEdge() Index {
	return e.edge
}

// GetWeight is the queue priority of the entry.
func (e *SearchEntry) GetWeight() float64 {
	return e.weight
}

func (e *SearchEntry) GetWeightOfVisitedPath() float64 {
	return e.weightOfVisitedPath
}

func (e *SearchEntry) GetParent() EntryHandle {
	return e.parent
}

func (e *SearchEntry) GetHeapNode() *PriorityQueueNode[EntryHandle] {
	return e.heapNode
}

func (e *SearchEntry) GetHeapKind() HeapKind {
	return e.heapKind
}

func (e *SearchEntry) SetWeight(weight float64) {
	e.weight = weight
}

func (e *SearchEntry) Update(edge Index, weightOfVisitedPath float64, parent EntryHandle) {
	e.edge = edge
	e.weightOfVisitedPath = weightOfVisitedPath
	e.parent = parent
}

func (e *SearchEntry) SetHeapNode(node *PriorityQueueNode[EntryHandle], kind HeapKind) {
	e.heapNode = node
	e.heapKind = kind
}

// SearchArena owns every SearchEntry of one query. Entries are referenced by handle, never by pointer,
// so the backing slice may grow while parents are still being followed.
type SearchArena struct {
	entries []SearchEntry
}

func NewSearchArena(capacity int) *SearchArena {
	return &SearchArena{entries: make([]SearchEntry, 0, capacity)}
}

func (a *SearchArena) New(node, edge Index, weight, weightOfVisitedPath float64, parent EntryHandle) EntryHandle {
	a.entries = append(a.entries, SearchEntry{
		node:                node,
		edge:                edge,
		weight:              weight,
		weightOfVisitedPath: weightOfVisitedPath,
		parent:              parent,
	})
	return EntryHandle(len(a.entries) - 1)
}

// Get returns a pointer that is valid until the next call to New.
func (a *SearchArena) Get(h EntryHandle) *SearchEntry {
	return &a.entries[h]
}

func (a *SearchArena) Size() int {
	return len(a.entries)
}

func (a *SearchArena) Reset() {
	a.entries = a.entries[:0]
}
