package model

import "time"

// Obstacle is an OSM element found close to a point a user chose to avoid.
type Obstacle struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Kind string            `json:"kind"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// AvoidanceEvent is emitted each time a user skips an obstacle.
type AvoidanceEvent struct {
	Point      Coordinate `json:"point"`
	Kind       string     `json:"kind,omitempty"`
	Address    string     `json:"address,omitempty"`
	UserID     int64      `json:"user_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// AvoidedObstacle is one row of the most-avoided ranking.
type AvoidedObstacle struct {
	Lat            float64   `json:"lat" db:"lat"`
	Lng            float64   `json:"lng" db:"lng"`
	Kind           string    `json:"kind" db:"kind"`
	Address        string    `json:"address" db:"address"`
	AvoidanceCount int       `json:"avoidanceCount" db:"avoidance_count"`
	LastAvoidedAt  time.Time `json:"lastAvoidedAt" db:"last_avoided_at"`
}
