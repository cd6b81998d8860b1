package preprocessor

import (
	"testing"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	"github.com/lintang-b-s/corerouter/pkg/costfunction"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/landmark"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	cfg := Config{
		Contraction: contractor.DefaultConfig(),
		Landmark:    landmark.DefaultConfig(),
		Routing:     routing.DefaultConfig(),
		NumWorkers:  2,
	}
	cfg.Contraction.NodesContractedPercentage = 80
	cfg.Landmark.LandmarkCount = 6
	return cfg
}

func testTasks() []WeightingTask {
	return []WeightingTask{
		{
			Weighting:         "shortest",
			StructuralFilters: []filter.Filter{filter.NewAvoidBordersFilter()},
			LandmarkSets:      []LandmarkSet{{Name: "default"}},
		},
		{
			Weighting:         "fastest",
			StructuralFilters: []filter.Filter{filter.NewAvoidBordersFilter(), filter.NewVehicleFilter(filter.VehicleDimensions{})},
			LandmarkSets:      []LandmarkSet{{Name: "default"}},
		},
	}
}

func TestPrepareAll(t *testing.T) {
	g := da.GenerateRandomGraph(200, 80, 21, -7.78, 110.37)
	p := NewPreprocessor(g, testConfig(), zaptest.NewLogger(t))

	prepared, err := p.PrepareAll(testTasks())
	require.NoError(t, err)
	require.Len(t, prepared, 2)

	for i, name := range []string{"shortest", "fastest"} {
		pw := prepared[i]
		assert.Equal(t, name, pw.Prepared.GetWeighting().Name())
		assert.True(t, pw.Prepared.GetGraph().IsPrepared())
		assert.False(t, g.IsPrepared())
		require.Len(t, pw.Landmarks, 1)
		assert.Equal(t, "default", pw.Landmarks[0].Name())
	}
}

func TestPrepareAllKeepsGoodWeightings(t *testing.T) {
	g := da.GenerateRandomGraph(150, 50, 4, -7.78, 110.37)
	p := NewPreprocessor(g, testConfig(), zaptest.NewLogger(t))

	tasks := append(testTasks(), WeightingTask{Weighting: "bicycle"})
	prepared, err := p.PrepareAll(tasks)
	assert.ErrorIs(t, err, util.ErrBadParamInput)
	assert.Len(t, prepared, 2)
}

func TestPersistLoadAndServe(t *testing.T) {
	g := da.GenerateRandomGraph(200, 80, 13, -7.78, 110.37)
	logger := zaptest.NewLogger(t)
	cfg := testConfig()
	p := NewPreprocessor(g, cfg, logger)

	prepared, err := p.PrepareAll(testTasks())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Persist(dir, prepared, logger))

	loaded, err := Load(dir, testTasks(), cfg.Landmark, logger)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for i := range loaded {
		assert.Equal(t, prepared[i].Prepared.GetCoreNodes(), loaded[i].Prepared.GetCoreNodes())
		assert.Equal(t, prepared[i].Landmarks[0].GetLandmarks(), loaded[i].Landmarks[0].GetLandmarks())
	}

	snapshot, err := BuildSnapshot(loaded, cfg.Routing, logger)
	require.NoError(t, err)
	e := engine.NewEngine(engine.DefaultConfig(), logger)
	e.Publish(snapshot)

	for _, name := range []string{"shortest", "fastest"} {
		weighting, ok := costfunction.NewWeighting(name, g)
		require.True(t, ok)
		oracle := routing.NewDijkstra(g, weighting, filter.AcceptAll)
		for s := da.Index(1); s < 200; s += 41 {
			want := append([]float64(nil), oracle.ShortestPath(s)...)
			for target := da.Index(0); target < 200; target += 23 {
				res, err := e.ComputePath(s, target, name, filter.AcceptAll, 0)
				require.NoError(t, err)
				assert.InDelta(t, want[target], res.TotalWeight, 1e-6, "%s %d -> %d", name, s, target)
				assert.Less(t, res.TotalWeight, pkg.INF_WEIGHT)
			}
		}
	}
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(t.TempDir(), testTasks(), landmark.DefaultConfig(), zaptest.NewLogger(t))
	assert.Error(t, err)
}
