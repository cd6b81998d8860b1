package config

import (
	"bytes"
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readYaml(t *testing.T, yaml string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(bytes.NewBufferString(yaml)))
}

func TestDefaults(t *testing.T) {
	readYaml(t, "query:\n  algorithm: core_alt\n")

	prep := LoadPreparationConfig()
	assert.Equal(t, 99.75, prep.Contraction.NodesContractedPercentage)
	assert.Equal(t, pkg.DEFAULT_LANDMARK_COUNT, prep.Landmark.LandmarkCount)
	assert.Equal(t, "default", prep.Routing.DefaultLandmarkSet)

	ec, rc, err := LoadQueryConfig()
	require.NoError(t, err)
	assert.Equal(t, routing.CORE_ALT, ec.DefaultAlgorithm)
	assert.Equal(t, pkg.DEFAULT_PROXY_MAX_VISITED, rc.ProxyMaxVisitedNodes)

	tasks, err := LoadWeightingTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "shortest", tasks[0].Weighting)
	assert.Len(t, tasks[0].StructuralFilters, 3)
}

func TestLoadFromYaml(t *testing.T) {
	readYaml(t, `
preparation:
  nodes_contracted_percentage: 80
  workers: 3
  weightings:
    - name: fastest
      structural_filters:
        - kind: avoid_countries
          countries: [2, 5]
        - kind: edge_set
          edges: [10, 11]
      landmark_sets:
        - name: default
        - name: no_gravel
          filters:
            - kind: surface
              surfaces: [gravel, dirt]
landmarks:
  count: 8
query:
  algorithm: core_dijkstra
  max_visited_nodes: 5000
`)

	prep := LoadPreparationConfig()
	assert.Equal(t, 80.0, prep.Contraction.NodesContractedPercentage)
	assert.Equal(t, 3, prep.NumWorkers)
	assert.Equal(t, 8, prep.Landmark.LandmarkCount)
	assert.Equal(t, pkg.DEFAULT_ACTIVE_LANDMARK_COUNT, prep.Landmark.ActiveLandmarkCount)

	ec, _, err := LoadQueryConfig()
	require.NoError(t, err)
	assert.Equal(t, routing.CORE_DIJKSTRA, ec.DefaultAlgorithm)
	assert.Equal(t, 5000, ec.DefaultMaxVisitedNodes)

	tasks, err := LoadWeightingTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "fastest", task.Weighting)
	require.Len(t, task.StructuralFilters, 2)
	assert.Equal(t, filter.AVOID_COUNTRIES, task.StructuralFilters[0].Kind)
	assert.Equal(t, []uint16{2, 5}, task.StructuralFilters[0].Countries)
	assert.Equal(t, filter.EDGE_SET, task.StructuralFilters[1].Kind)
	require.Len(t, task.LandmarkSets, 2)
	assert.Empty(t, task.LandmarkSets[0].Filters)
	assert.Equal(t, "no_gravel", task.LandmarkSets[1].Name)
	assert.Equal(t, filter.SURFACE, task.LandmarkSets[1].Filters[0].Kind)
}

func TestParseFilterErrors(t *testing.T) {
	testCases := []struct {
		name string
		fc   FilterConfig
	}{
		{name: "avoid area is per query", fc: FilterConfig{Kind: "avoid_area"}},
		{name: "unknown kind", fc: FilterConfig{Kind: "toll"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFilter(tc.fc)
			assert.ErrorIs(t, err, util.ErrBadParamInput)
		})
	}

	readYaml(t, "query:\n  algorithm: astar\n")
	_, _, err := LoadQueryConfig()
	assert.ErrorIs(t, err, util.ErrBadParamInput)
}
