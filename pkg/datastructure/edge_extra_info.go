package datastructure

import (
	"github.com/lintang-b-s/corerouter/pkg"
)

type SurfaceType uint8

const (
	SURFACE_PAVED SurfaceType = iota
	SURFACE_ASPHALT
	SURFACE_CONCRETE
	SURFACE_COMPACTED
	SURFACE_GRAVEL
	SURFACE_DIRT
	SURFACE_GRASS
	SURFACE_SAND
	SURFACE_UNKNOWN
)

func GetSurfaceType(s string) SurfaceType {
	switch s {
	case "paved":
		return SURFACE_PAVED
	case "asphalt":
		return SURFACE_ASPHALT
	case "concrete":
		return SURFACE_CONCRETE
	case "compacted":
		return SURFACE_COMPACTED
	case "gravel", "fine_gravel":
		return SURFACE_GRAVEL
	case "dirt", "ground", "earth", "mud":
		return SURFACE_DIRT
	case "grass":
		return SURFACE_GRASS
	case "sand":
		return SURFACE_SAND
	default:
		return SURFACE_UNKNOWN
	}
}

func (s SurfaceType) IsPaved() bool {
	return s <= SURFACE_CONCRETE
}

// EdgeAttributes holds the per original edge data restriction filters and weightings read.
// zero limits mean "no limit", zero country ids mean "unknown".
type EdgeAttributes struct {
	HighwayType pkg.OsmHighwayType
	Surface     SurfaceType
	MaxSpeed    float64 // km/h

	BaseCountry uint16
	AdjCountry  uint16

	MaxHeight float64 // meter
	MaxWidth  float64 // meter
	MaxWeight float64 // tonne
}

func NewEdgeAttributes(hwType pkg.OsmHighwayType, surface SurfaceType, maxSpeed float64) EdgeAttributes {
	return EdgeAttributes{
		HighwayType: hwType,
		Surface:     surface,
		MaxSpeed:    maxSpeed,
	}
}

func (a EdgeAttributes) WithCountries(base, adj uint16) EdgeAttributes {
	a.BaseCountry = base
	a.AdjCountry = adj
	return a
}

func (a EdgeAttributes) WithLimits(maxHeight, maxWidth, maxWeight float64) EdgeAttributes {
	a.MaxHeight = maxHeight
	a.MaxWidth = maxWidth
	a.MaxWeight = maxWeight
	return a
}

func (a EdgeAttributes) IsBorderCrossing() bool {
	return a.BaseCountry != 0 && a.AdjCountry != 0 && a.BaseCountry != a.AdjCountry
}

func (a EdgeAttributes) HasVehicleLimits() bool {
	return a.MaxHeight > 0 || a.MaxWidth > 0 || a.MaxWeight > 0
}

// GetSpeed returns the travel speed in km/h, falling back to the highway default.
func (a EdgeAttributes) GetSpeed() float64 {
	if a.MaxSpeed > 0 {
		return a.MaxSpeed
	}
	return pkg.DefaultSpeed(a.HighwayType)
}
