package core

import (
	"math"

	"github.com/paulmach/orb"

	"route_service/internal/domain/model"
)

const (
	earthRadiusMeters = 6371000.0

	// Degrees per meter at the latitude the exclusion areas were tuned for.
	metersToLatDegrees = 8.98311174991017e-06
	metersToLonDegrees = 1.4763165177199368e-05

	// DefaultExclusionMeters is the side length of an exclusion square.
	DefaultExclusionMeters = 30.0

	hintBoundsPadding  = 0.002
	hintBoundsMinWidth = 0.005
)

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b model.Coordinate) float64 {
	return haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func positionDistance(a, b model.Position) float64 {
	return Distance(a.Coordinate(), b.Coordinate())
}

// exclusionRing builds the closed square ring centered on c. Vertices are
// [lon, lat] as GeoJSON requires.
func exclusionRing(c model.Coordinate, sizeMeters float64) orb.Ring {
	halfLat := metersToLatDegrees * sizeMeters / 2
	halfLon := metersToLonDegrees * sizeMeters / 2
	return orb.Ring{
		{c.Lng - halfLon, c.Lat - halfLat},
		{c.Lng - halfLon, c.Lat + halfLat},
		{c.Lng + halfLon, c.Lat + halfLat},
		{c.Lng + halfLon, c.Lat - halfLat},
		{c.Lng - halfLon, c.Lat - halfLat},
	}
}

// SegmentBounds is the area the map zooms to when a hint segment is picked.
// Tiny segments are widened so the surroundings stay visible. An empty
// segment has no bounds.
func SegmentBounds(segment []model.Coordinate) (model.Bounds, bool) {
	if len(segment) == 0 {
		return model.Bounds{}, false
	}

	first := orb.Point{segment[0].Lng, segment[0].Lat}
	bound := first.Bound().Pad(hintBoundsPadding)
	for _, c := range segment {
		bound = bound.Extend(orb.Point{c.Lng, c.Lat})
	}

	if bound.Max[0]-bound.Min[0] < hintBoundsMinWidth {
		bound.Min[0] -= hintBoundsMinWidth / 2
		bound.Max[0] += hintBoundsMinWidth / 2
	}
	if bound.Max[1]-bound.Min[1] < hintBoundsMinWidth {
		bound.Min[1] -= hintBoundsMinWidth / 2
		bound.Max[1] += hintBoundsMinWidth / 2
	}

	return model.Bounds{
		MinLat: bound.Min[1],
		MinLon: bound.Min[0],
		MaxLat: bound.Max[1],
		MaxLon: bound.Max[0],
	}, true
}
