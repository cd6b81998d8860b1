package concurrent

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	testCases := []struct {
		name       string
		numWorkers int
		jobs       []int
		want       []int
	}{
		{name: "single worker", numWorkers: 1, jobs: []int{1, 2, 3}, want: []int{1, 4, 9}},
		{name: "more workers than jobs", numWorkers: 8, jobs: []int{4, 5}, want: []int{16, 25}},
		{name: "zero workers falls back to one", numWorkers: 0, jobs: []int{3}, want: []int{9}},
		{name: "no jobs", numWorkers: 2, jobs: []int{}, want: []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Run(tc.numWorkers, tc.jobs, func(x int) int { return x * x })
			sort.Ints(got)
			assert.Equal(t, tc.want, got)
		})
	}
}
