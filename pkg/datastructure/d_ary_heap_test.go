package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapExtractOrder(t *testing.T) {
	testCases := []struct {
		name  string
		d     int
		ranks []float64
		want  []int
	}{
		{
			name:  "binary heap",
			d:     2,
			ranks: []float64{5, 3, 8, 1, 9, 2},
			want:  []int{3, 5, 1, 0, 2, 4},
		},
		{
			name:  "four ary heap, ties keep insertion order",
			d:     4,
			ranks: []float64{2, 1, 2, 1, 2},
			want:  []int{1, 3, 0, 2, 4},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			h := NewdAryHeap[int](tt.d)
			for i, r := range tt.ranks {
				h.Insert(NewPriorityQueueNode(r, i))
			}

			got := make([]int, 0, len(tt.ranks))
			for !h.IsEmpty() {
				node, err := h.ExtractMin()
				require.NoError(t, err)
				assert.Equal(t, -1, node.GetPos())
				got = append(got, node.GetItem())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinHeapDecreaseKeyAndUpdate(t *testing.T) {
	h := NewFourAryHeap[string]()
	a := NewPriorityQueueNode(10.0, "a")
	b := NewPriorityQueueNode(20.0, "b")
	c := NewPriorityQueueNode(30.0, "c")
	h.Insert(a)
	h.Insert(b)
	h.Insert(c)

	require.NoError(t, h.DecreaseKey(c, 5))
	assert.Equal(t, 5.0, h.GetMinrank())
	assert.Error(t, h.DecreaseKey(b, 25))

	require.NoError(t, h.Update(c, 40))
	min, err := h.GetMin()
	require.NoError(t, err)
	assert.Equal(t, "a", min.GetItem())

	_, _ = h.ExtractMin()
	assert.False(t, h.Contains(a))
	assert.Error(t, h.Update(a, 1))
	assert.True(t, h.Contains(b))

	h.Clear()
	assert.True(t, h.IsEmpty())
	assert.Equal(t, -1, b.GetPos())
	_, err = h.ExtractMin()
	assert.Error(t, err)
}
