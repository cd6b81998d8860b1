package datastructure

import (
	"errors"

	"github.com/lintang-b-s/corerouter/pkg"
)

type PriorityQueueNode[T comparable] struct {
	rank    float64
	seq     uint64 // insertion order, breaks rank ties deterministically
	item    T
	itemPos int
}

func (p *PriorityQueueNode[T]) GetItem() T {
	return p.item
}

func (p *PriorityQueueNode[T]) GetRank() float64 {
	return p.rank
}

func (p *PriorityQueueNode[T]) SetRank(rank float64) {
	p.rank = rank
}
func (p *PriorityQueueNode[T]) SetPos(i int) {
	p.itemPos = i
}

func (p *PriorityQueueNode[T]) GetPos() int {
	return p.itemPos
}

func NewPriorityQueueNode[T comparable](rank float64, item T) *PriorityQueueNode[T] {
	return &PriorityQueueNode[T]{rank: rank, item: item, itemPos: -1}
}

// MinHeap d-ary heap priorityqueue
type MinHeap[T comparable] struct {
	heap []*PriorityQueueNode[T]
	d    int
	seq  uint64
}

func NewBinaryHeap[T comparable]() *MinHeap[T] {
	return NewdAryHeap[T](2)
}

func NewFourAryHeap[T comparable]() *MinHeap[T] {
	return NewdAryHeap[T](4)
}

func NewdAryHeap[T comparable](d int) *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]*PriorityQueueNode[T], 0),
		d:    d,
	}
}

func (h *MinHeap[T]) Preallocate(maxSearchSize int) {
	h.heap = make([]*PriorityQueueNode[T], 0, maxSearchSize)
}

// parent get index dari parent
func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / h.d
}

func (h *MinHeap[T]) less(i, j int) bool {
	a, b := h.heap[i], h.heap[j]
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.seq < b.seq
}

// heapifyUp mempertahankan heap property. check apakah parent dari index lebih besar kalau iya swap, then recursive ke parent.  O(logN) tree height.
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.less(index, h.parent(index)) {
		h.Swap(index, h.parent(index))
		index = h.parent(index)
	}
}

// heapifyDown mempertahankan heap property. check apakah nilai salah satu children dari index lebih kecil kalau iya swap, then recursive ke children yang kecil tadi.  O(logN) tree height.
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		leftMostChild := index*h.d + 1
		if leftMostChild >= len(h.heap) {
			return
		}

		sentinel := leftMostChild + h.d
		if sentinel > len(h.heap) {
			sentinel = len(h.heap)
		}

		smallest := leftMostChild
		for i := leftMostChild + 1; i < sentinel; i++ {
			if h.less(i, smallest) {
				smallest = i
			}
		}

		if !h.less(smallest, index) {
			return
		}
		h.Swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]

	h.heap[i].SetPos(i)
	h.heap[j].SetPos(j)
}

// isEmpty check apakah heap kosong
func (h *MinHeap[T]) IsEmpty() bool {
	return len(h.heap) == 0
}

// size ukuran heap
func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) Clear() {
	for _, node := range h.heap {
		node.SetPos(-1)
	}
	h.heap = h.heap[:0]
}

// Items returns the queued nodes in heap order. The slice must not be modified.
func (h *MinHeap[T]) Items() []*PriorityQueueNode[T] {
	return h.heap
}

// getMin mendapatkan nilai minimum dari min-heap (index 0)
func (h *MinHeap[T]) GetMin() (*PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return &PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	return h.heap[0], nil
}

func (h *MinHeap[T]) GetMinrank() float64 {
	if h.IsEmpty() {
		return 2 * pkg.INF_WEIGHT
	}
	return h.heap[0].rank
}

// insert item baru
func (h *MinHeap[T]) Insert(key *PriorityQueueNode[T]) {
	key.seq = h.seq
	h.seq++
	h.heap = append(h.heap, key)
	index := h.Size() - 1
	key.SetPos(index)
	h.heapifyUp(index)
}

// extractMin ambil nilai minimum dari min-heap (index 0) & pop dari heap. O(logN), heapifyDown(0) O(logN)
func (h *MinHeap[T]) ExtractMin() (*PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return &PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	root := h.heap[0]

	h.Swap(0, h.Size()-1)

	h.heap = h.heap[:h.Size()-1]
	root.SetPos(-1)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}

	return root, nil
}

// Contains reports whether item is currently queued in h.
func (h *MinHeap[T]) Contains(item *PriorityQueueNode[T]) bool {
	pos := item.GetPos()
	return pos >= 0 && pos < len(h.heap) && h.heap[pos] == item
}

// decreaseKey update rank dari item min-heap.   O(logN) heapify.
func (h *MinHeap[T]) DecreaseKey(item *PriorityQueueNode[T], rank float64) error {
	if !h.Contains(item) || item.GetRank() < rank {
		return errors.New("invalid index or new value")
	}

	item.SetRank(rank)
	h.heapifyUp(item.GetPos())
	return nil
}

// Update sets a new rank in either direction.
func (h *MinHeap[T]) Update(item *PriorityQueueNode[T], rank float64) error {
	if !h.Contains(item) {
		return errors.New("item is not in heap")
	}
	old := item.GetRank()
	item.SetRank(rank)
	if rank < old {
		h.heapifyUp(item.GetPos())
	} else {
		h.heapifyDown(item.GetPos())
	}
	return nil
}
