package model

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Position is a GeoJSON position: longitude, latitude and, when the routing
// API was asked for elevation, the height in meters.
type Position []float64

// Coordinate drops the elevation and swaps into lat/lng order. A position
// with fewer than two components yields the zero coordinate.
func (p Position) Coordinate() Coordinate {
	if len(p) < 2 {
		return Coordinate{}
	}
	return Coordinate{Lat: p[1], Lng: p[0]}
}

func (p Position) HasElevation() bool {
	return len(p) >= 3
}

func (p Position) Elevation() float64 {
	if len(p) < 3 {
		return 0
	}
	return p[2]
}

type LineString struct {
	Type        string     `json:"type"`
	Coordinates []Position `json:"coordinates"`
}

type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Path is one route as returned by the routing API with points_encoded=false.
type Path struct {
	Distance         float64                `json:"distance"`
	Time             int64                  `json:"time"`
	Ascend           float64                `json:"ascend"`
	Descend          float64                `json:"descend"`
	Description      string                 `json:"description,omitempty"`
	Points           LineString             `json:"points"`
	SnappedWaypoints LineString             `json:"snapped_waypoints"`
	Details          map[string]DetailArray `json:"details"`
}

// Detail returns the named detail array or nil when the routing API did not
// deliver it.
func (p Path) Detail(kind string) DetailArray {
	if p.Details == nil {
		return nil
	}
	return p.Details[kind]
}

type RoutingInfo struct {
	Copyrights        []string `json:"copyrights"`
	Took              int      `json:"took"`
	RoadDataTimestamp string   `json:"road_data_timestamp"`
}

type RoutingResult struct {
	Info  RoutingInfo `json:"info"`
	Paths []Path      `json:"paths"`
}
