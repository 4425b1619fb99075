// Package geo computes great-circle distances and proximity tiers.
package geo

import (
	"math"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3959.0

// Tier classifies a buyer-to-property distance into a coarse proximity band.
type Tier string

const (
	TierExact    Tier = "exact"
	TierNearby   Tier = "nearby"
	TierClose    Tier = "close"
	TierModerate Tier = "moderate"
	TierFar      Tier = "far"
)

// Tier boundaries in miles, inclusive on the upper bound of each band.
const (
	NearbyMaxMiles   = 10.0
	CloseMaxMiles    = 25.0
	ModerateMaxMiles = 50.0
)

// Miles returns the haversine distance between two points in statute miles.
// Symmetric and zero for identical points.
func Miles(a, b model.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}

// TierOf classifies a distance in miles into its proximity tier.
func TierOf(miles float64) Tier {
	switch {
	case miles == 0:
		return TierExact
	case miles <= NearbyMaxMiles:
		return TierNearby
	case miles <= CloseMaxMiles:
		return TierClose
	case miles <= ModerateMaxMiles:
		return TierModerate
	default:
		return TierFar
	}
}
