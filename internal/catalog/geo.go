package catalog

import (
	"math"
	"sort"
)

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.0

	// DefaultRadiusKm and DefaultNearbyLimit apply when Nearby gets non-positive values.
	DefaultRadiusKm    = 50.0
	DefaultNearbyLimit = 20
)

// NearbyResult is a destination with its great-circle distance.
type NearbyResult struct {
	Destination *Destination `json:"destination"`
	DistanceKm  float64      `json:"distance"`
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Nearby returns destinations within radiusKm of (lat, lon), closest first.
// A bounding box prefilters candidates; distances are rounded to 0.01 km.
func (c *Catalog) Nearby(lat, lon, radiusKm float64, limit int) []NearbyResult {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	latDelta := radiusKm / kmPerDegree
	lngDelta := math.Inf(1)
	if lngKm := kmPerDegree * math.Cos(lat*math.Pi/180); lngKm > 1e-9 {
		lngDelta = radiusKm / lngKm
	}

	results := []NearbyResult{}
	for i := range c.destinations {
		d := &c.destinations[i]
		if d.Latitude == nil || d.Longitude == nil {
			continue
		}
		if math.Abs(*d.Latitude-lat) > latDelta || math.Abs(*d.Longitude-lon) > lngDelta {
			continue
		}
		dist := Haversine(lat, lon, *d.Latitude, *d.Longitude)
		if dist > radiusKm {
			continue
		}
		results = append(results, NearbyResult{Destination: d, DistanceKm: math.Round(dist*100) / 100})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].DistanceKm < results[b].DistanceKm
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
