package pkg

import "math"

const (
	INF_WEIGHT     float64 = 1e15
	INF_WEIGHT_INT         = 1e15

	// priority of a node adjacent to an edge rejected by the structural filter.
	// popping a node with this priority ends the contraction.
	RESTRICTION_PRIORITY = math.MaxInt32

	// int16 sentinel for "unreachable" in landmark rows.
	SHORT_INFINITY = math.MaxInt16
	// largest finite value stored in a landmark row.
	SHORT_MAX = math.MaxInt16 - 1

	LEVEL_UNASSIGNED uint32 = 0
)

const (
	DEFAULT_LANDMARK_COUNT        = 16
	DEFAULT_ACTIVE_LANDMARK_COUNT = 4
	DEFAULT_MIN_SUBNETWORK_SIZE   = 2

	DEFAULT_PROXY_MAX_VISITED = 500

	DEFAULT_WITNESS_MAX_SETTLED = 500
	DEFAULT_WITNESS_MAX_HOPS    = 5

	DEFAULT_PU_CACHE_SIZE = 1 << 16

	DEFAULT_MAX_VISITED_NODES = 1000000
	DEFAULT_SNAP_RADIUS       = 0.5  // km
	DEFAULT_RTREE_BOX_RADIUS  = 0.05 // km
)

const (
	DEBUG = false
)

type OsmHighwayType uint8

// enum buat osm highway buat routing: https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
const (
	MOTORWAY      OsmHighwayType = 0
	TRUNK         OsmHighwayType = 1
	PRIMARY       OsmHighwayType = 2
	SECONDARY     OsmHighwayType = 3
	TERTIARY      OsmHighwayType = 4
	RESIDENTIAL   OsmHighwayType = 5
	SERVICE       OsmHighwayType = 6
	UNCLASSIFIED  OsmHighwayType = 7
	LIVING_STREET OsmHighwayType = 8
	TRACK         OsmHighwayType = 9
	UNKNOWN       OsmHighwayType = 10
)

func GetHighwayType(roadType string) OsmHighwayType {
	switch roadType {
	case "motorway", "motorway_link":
		return MOTORWAY
	case "trunk", "trunk_link":
		return TRUNK
	case "primary", "primary_link":
		return PRIMARY
	case "secondary", "secondary_link":
		return SECONDARY
	case "tertiary", "tertiary_link":
		return TERTIARY
	case "unclassified":
		return UNCLASSIFIED
	case "residential":
		return RESIDENTIAL
	case "service":
		return SERVICE
	case "living_street":
		return LIVING_STREET
	case "track":
		return TRACK
	default:
		return UNKNOWN
	}
}

// default speed in km/h used when an edge has no maxspeed.
func DefaultSpeed(hw OsmHighwayType) float64 {
	switch hw {
	case MOTORWAY:
		return 100
	case TRUNK:
		return 80
	case PRIMARY:
		return 60
	case SECONDARY:
		return 50
	case TERTIARY:
		return 40
	case RESIDENTIAL, UNCLASSIFIED:
		return 30
	case SERVICE, LIVING_STREET:
		return 15
	case TRACK:
		return 10
	default:
		return 30
	}
}
