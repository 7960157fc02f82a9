// Package geo implements the service-area checks used to gate registration
// to families inside the league's coverage area.
package geo

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusMiles = 3959

// Coordinate is an immutable latitude/longitude pair in degrees (WGS 84).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ServiceAreaConfig describes the circle a candidate location is checked
// against, plus the region codes accepted as a fallback when IP geolocation
// is too coarse to trust (common on mobile carriers).
type ServiceAreaConfig struct {
	Center      Coordinate
	RadiusMiles float64
	Region      string // two-letter code, e.g. "KS"
	RegionName  string // full spelling, e.g. "Kansas"
}

// DefaultServiceArea returns the league's historical service area:
// 50 miles around Salina, Kansas.
func DefaultServiceArea() ServiceAreaConfig {
	return ServiceAreaConfig{
		Center:      Coordinate{Latitude: 38.8403, Longitude: -97.6114},
		RadiusMiles: 50,
		Region:      "KS",
		RegionName:  "Kansas",
	}
}

// DistanceMiles returns the great-circle distance in miles between two
// points given in degrees, using the Haversine formula.
//
// Inputs are not range-checked: out-of-range coordinates produce
// mathematically defined but meaningless results.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Contains reports whether the point lies within the service area.
// A point exactly on the boundary is inside.
func (c ServiceAreaConfig) Contains(latitude, longitude float64) bool {
	return DistanceMiles(c.Center.Latitude, c.Center.Longitude, latitude, longitude) <= c.RadiusMiles
}

// InRegion reports whether regionCode matches any accepted spelling,
// ignoring case and surrounding whitespace. Empty input never matches.
func InRegion(regionCode string, accepted ...string) bool {
	regionCode = strings.TrimSpace(regionCode)
	if regionCode == "" {
		return false
	}
	for _, want := range accepted {
		if strings.EqualFold(regionCode, strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// Decision is the outcome of a service-area check, shaped for the verify
// API responses.
type Decision struct {
	Allowed       bool    `json:"allowed"`
	Reason        string  `json:"reason,omitempty"`
	DistanceMiles float64 `json:"distance_miles"`
}

// Decide applies the composite access rule: a location is allowed if it is
// inside the radius OR self-reports the accepted region. The region
// fallback compensates for inaccurate IP-based geolocation on mobile
// networks and must not be narrowed to an AND.
func (c ServiceAreaConfig) Decide(latitude, longitude float64, hasCoordinates bool, region string) Decision {
	if hasCoordinates {
		distance := DistanceMiles(c.Center.Latitude, c.Center.Longitude, latitude, longitude)
		if distance <= c.RadiusMiles {
			return Decision{Allowed: true, Reason: "within_radius", DistanceMiles: distance}
		}
		if InRegion(region, c.Region, c.RegionName) {
			return Decision{Allowed: true, Reason: "region_match", DistanceMiles: distance}
		}
		return Decision{
			Allowed:       false,
			Reason:        fmt.Sprintf("outside %.0f mile service area", c.RadiusMiles),
			DistanceMiles: distance,
		}
	}

	if InRegion(region, c.Region, c.RegionName) {
		return Decision{Allowed: true, Reason: "region_match"}
	}
	return Decision{Allowed: false, Reason: "location unavailable"}
}
