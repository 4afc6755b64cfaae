package model

// RouteInfo is the result of scanning one path for one hint category.
// A zero Distance means the hint is absent.
type RouteInfo struct {
	Segments [][]Coordinate `json:"segments"`
	Distance float64        `json:"distance"`
	Values   []string       `json:"values"`
}

func NewRouteInfo() RouteInfo {
	return RouteInfo{
		Segments: [][]Coordinate{},
		Values:   []string{},
	}
}

type Hint struct {
	Category     string         `json:"category"`
	Descriptions []string       `json:"descriptions"`
	Distance     float64        `json:"distance"`
	DistanceText string         `json:"distance_text"`
	Segments     [][]Coordinate `json:"segments"`
	Values       []string       `json:"values"`
	// Bounds has one entry per segment; nil for a segment without geometry.
	Bounds []*Bounds `json:"bounds"`
}

type AnnotatedPath struct {
	Path
	Hints        []Hint   `json:"hints"`
	SurfaceColor []string `json:"surface_colors"`
}
