package config

import (
	"runtime"

	"github.com/lintang-b-s/corerouter/pkg"
	"github.com/lintang-b-s/corerouter/pkg/contractor"
	da "github.com/lintang-b-s/corerouter/pkg/datastructure"
	"github.com/lintang-b-s/corerouter/pkg/engine"
	"github.com/lintang-b-s/corerouter/pkg/engine/routing"
	"github.com/lintang-b-s/corerouter/pkg/filter"
	"github.com/lintang-b-s/corerouter/pkg/landmark"
	"github.com/lintang-b-s/corerouter/pkg/preprocessor"
	"github.com/lintang-b-s/corerouter/pkg/util"
	"github.com/spf13/viper"
)

type FilterConfig struct {
	Kind      string   `mapstructure:"kind"`
	Countries []uint16 `mapstructure:"countries"`
	Height    float64  `mapstructure:"height"`
	Width     float64  `mapstructure:"width"`
	Weight    float64  `mapstructure:"weight"`
	Surfaces  []string `mapstructure:"surfaces"`
	Edges     []uint32 `mapstructure:"edges"`
}

type LandmarkSetConfig struct {
	Name    string         `mapstructure:"name"`
	Filters []FilterConfig `mapstructure:"filters"`
}

type WeightingConfig struct {
	Name              string              `mapstructure:"name"`
	StructuralFilters []FilterConfig      `mapstructure:"structural_filters"`
	LandmarkSets      []LandmarkSetConfig `mapstructure:"landmark_sets"`
}

// SetDefaults registers the default of every preparation and query knob on the global viper instance.
func SetDefaults() {
	cc := contractor.DefaultConfig()
	viper.SetDefault("preparation.periodic_updates", cc.PeriodicUpdatesPercentage)
	viper.SetDefault("preparation.lazy_updates", cc.LazyUpdatesPercentage)
	viper.SetDefault("preparation.neighbor_updates", cc.NeighborUpdatesPercentage)
	viper.SetDefault("preparation.nodes_contracted_percentage", cc.NodesContractedPercentage)
	viper.SetDefault("preparation.log_messages_percentage", cc.LogMessagesPercentage)
	viper.SetDefault("preparation.witness_max_settled_nodes", cc.WitnessMaxSettledNodes)
	viper.SetDefault("preparation.witness_max_hops", cc.WitnessMaxHops)
	viper.SetDefault("preparation.seed", cc.Seed)
	viper.SetDefault("preparation.workers", runtime.NumCPU())

	viper.SetDefault("landmarks.count", pkg.DEFAULT_LANDMARK_COUNT)
	viper.SetDefault("landmarks.active", pkg.DEFAULT_ACTIVE_LANDMARK_COUNT)
	viper.SetDefault("landmarks.minimum_nodes", pkg.DEFAULT_MIN_SUBNETWORK_SIZE)

	viper.SetDefault("query.path_unpack_cache_size", pkg.DEFAULT_PU_CACHE_SIZE)
	viper.SetDefault("query.proxy_max_visited_nodes", pkg.DEFAULT_PROXY_MAX_VISITED)
	viper.SetDefault("query.default_landmark_set", "default")
	viper.SetDefault("query.max_visited_nodes", pkg.DEFAULT_MAX_VISITED_NODES)
	viper.SetDefault("query.snap_radius", pkg.DEFAULT_SNAP_RADIUS)
	viper.SetDefault("query.algorithm", routing.CORE_ALT.String())
}

func LoadPreparationConfig() preprocessor.Config {
	return preprocessor.Config{
		Contraction: contractor.Config{
			PeriodicUpdatesPercentage: viper.GetInt("preparation.periodic_updates"),
			LazyUpdatesPercentage:     viper.GetInt("preparation.lazy_updates"),
			NeighborUpdatesPercentage: viper.GetInt("preparation.neighbor_updates"),
			NodesContractedPercentage: viper.GetFloat64("preparation.nodes_contracted_percentage"),
			LogMessagesPercentage:     viper.GetFloat64("preparation.log_messages_percentage"),
			WitnessMaxSettledNodes:    viper.GetInt("preparation.witness_max_settled_nodes"),
			WitnessMaxHops:            viper.GetInt("preparation.witness_max_hops"),
			Seed:                      viper.GetUint64("preparation.seed"),
		},
		Landmark:   LoadLandmarkConfig(),
		Routing:    loadRoutingConfig(),
		NumWorkers: viper.GetInt("preparation.workers"),
	}
}

func LoadLandmarkConfig() landmark.Config {
	return landmark.Config{
		LandmarkCount:       viper.GetInt("landmarks.count"),
		ActiveLandmarkCount: viper.GetInt("landmarks.active"),
		MinimumNodes:        viper.GetInt("landmarks.minimum_nodes"),
	}
}

func loadRoutingConfig() routing.Config {
	return routing.Config{
		PathUnpackCacheSize:  viper.GetInt("query.path_unpack_cache_size"),
		ProxyMaxVisitedNodes: viper.GetInt("query.proxy_max_visited_nodes"),
		DefaultLandmarkSet:   viper.GetString("query.default_landmark_set"),
	}
}

func LoadQueryConfig() (engine.Config, routing.Config, error) {
	algorithm, ok := routing.ParseAlgorithm(viper.GetString("query.algorithm"))
	if !ok {
		return engine.Config{}, routing.Config{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"unknown query algorithm %q", viper.GetString("query.algorithm"))
	}
	return engine.Config{
		SnapRadius:             viper.GetFloat64("query.snap_radius"),
		DefaultMaxVisitedNodes: viper.GetInt("query.max_visited_nodes"),
		DefaultAlgorithm:       algorithm,
	}, loadRoutingConfig(), nil
}

func defaultWeightings() []WeightingConfig {
	weightings := make([]WeightingConfig, 0, 2)
	for _, name := range []string{"shortest", "fastest"} {
		weightings = append(weightings, WeightingConfig{
			Name:              name,
			StructuralFilters: []FilterConfig{{Kind: "avoid_borders"}, {Kind: "vehicle"}, {Kind: "surface"}},
			LandmarkSets:      []LandmarkSetConfig{{Name: "default"}},
		})
	}
	return weightings
}

// LoadWeightingTasks reads preparation.weightings, two weightings with border, vehicle and surface restrictions
// in the core when the key is absent.
func LoadWeightingTasks() ([]preprocessor.WeightingTask, error) {
	weightings := defaultWeightings()
	if viper.IsSet("preparation.weightings") {
		weightings = nil
		if err := viper.UnmarshalKey("preparation.weightings", &weightings); err != nil {
			return nil, err
		}
	}

	tasks := make([]preprocessor.WeightingTask, 0, len(weightings))
	for _, wc := range weightings {
		structural, err := ParseFilters(wc.StructuralFilters)
		if err != nil {
			return nil, err
		}
		task := preprocessor.WeightingTask{
			Weighting:         wc.Name,
			StructuralFilters: structural,
			LandmarkSets:      make([]preprocessor.LandmarkSet, 0, len(wc.LandmarkSets)),
		}
		for _, ls := range wc.LandmarkSets {
			filters, err := ParseFilters(ls.Filters)
			if err != nil {
				return nil, err
			}
			task.LandmarkSets = append(task.LandmarkSets, preprocessor.LandmarkSet{Name: ls.Name, Filters: filters})
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func ParseFilters(configs []FilterConfig) ([]filter.Filter, error) {
	filters := make([]filter.Filter, 0, len(configs))
	for _, fc := range configs {
		f, err := ParseFilter(fc)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// ParseFilter builds a filter from its configuration. avoid_area is rejected, areas are only known per query.
func ParseFilter(fc FilterConfig) (filter.Filter, error) {
	switch fc.Kind {
	case filter.AVOID_BORDERS.String():
		return filter.NewAvoidBordersFilter(), nil
	case filter.AVOID_COUNTRIES.String():
		return filter.NewAvoidCountriesFilter(fc.Countries...), nil
	case filter.VEHICLE.String():
		return filter.NewVehicleFilter(filter.VehicleDimensions{Height: fc.Height, Width: fc.Width, Weight: fc.Weight}), nil
	case filter.SURFACE.String():
		surfaces := make([]da.SurfaceType, 0, len(fc.Surfaces))
		for _, s := range fc.Surfaces {
			surfaces = append(surfaces, da.GetSurfaceType(s))
		}
		return filter.NewSurfaceFilter(surfaces...), nil
	case filter.EDGE_SET.String():
		edges := make([]da.Index, len(fc.Edges))
		for i, eId := range fc.Edges {
			edges[i] = da.Index(eId)
		}
		return filter.NewEdgeSetFilter(edges...), nil
	default:
		return filter.Filter{}, util.WrapErrorf(nil, util.ErrBadParamInput, "unsupported filter kind %q", fc.Kind)
	}
}
