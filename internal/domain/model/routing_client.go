package model

import "context"

// RouteQuery is a request to the external routing API.
type RouteQuery struct {
	Points      []Coordinate
	Profile     string
	CustomModel *CustomModel
	Details     []string
	Elevation   bool
	Locale      string
}

// RoutingClient talks to the external routing engine.
type RoutingClient interface {
	// Route computes paths for the query; with a custom model the engine
	// biases the result accordingly.
	Route(ctx context.Context, q RouteQuery) (*RoutingResult, error)
}

// Geocoder resolves a coordinate to a human readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (string, error)
}

// AvoidanceSink receives an event each time a user skips an obstacle.
type AvoidanceSink interface {
	Avoided(ctx context.Context, ev AvoidanceEvent) error
}
