package core

import (
	"context"
	"log"

	"route_service/internal/domain/model"
	"route_service/internal/domain/repository"
)

const (
	// obstacleSearchMeters is half the exclusion square plus some slack for
	// the click being off the mapped element.
	obstacleSearchMeters = 20
	defaultRankingLimit  = 10
	maxRankingLimit      = 100
)

// ObstacleService describes and records skipped obstacles. The Overpass
// source and the geocoder are optional.
type ObstacleService struct {
	recorder repository.AvoidanceRecorder
	source   repository.ObstacleSource
	geocoder model.Geocoder
}

func NewObstacleService(
	recorder repository.AvoidanceRecorder,
	source repository.ObstacleSource,
	geocoder model.Geocoder,
) *ObstacleService {
	return &ObstacleService{
		recorder: recorder,
		source:   source,
		geocoder: geocoder,
	}
}

// Describe fills in the kind and address of an event. Lookup failures only
// leave the fields empty.
func (s *ObstacleService) Describe(ctx context.Context, ev model.AvoidanceEvent) model.AvoidanceEvent {
	if ev.Kind == "" && s.source != nil {
		obstacles, err := s.source.ObstaclesNear(ctx, ev.Point, obstacleSearchMeters)
		if err != nil {
			log.Printf("Warning: failed to look up obstacles near %v: %v", ev.Point, err)
		} else {
			ev.Kind = nearestKind(ev.Point, obstacles)
		}
	}
	if ev.Address == "" && s.geocoder != nil {
		address, err := s.geocoder.ReverseGeocode(ctx, ev.Point)
		if err != nil {
			log.Printf("Warning: failed to reverse geocode %v: %v", ev.Point, err)
		} else {
			ev.Address = address
		}
	}
	return ev
}

// Avoided describes the event and stores it in the ranking.
func (s *ObstacleService) Avoided(ctx context.Context, ev model.AvoidanceEvent) error {
	return s.recorder.RecordAvoidance(ctx, s.Describe(ctx, ev))
}

func (s *ObstacleService) Ranking(ctx context.Context, limit int) ([]model.AvoidedObstacle, error) {
	if limit <= 0 {
		limit = defaultRankingLimit
	}
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}
	return s.recorder.TopAvoided(ctx, limit)
}

func nearestKind(p model.Coordinate, obstacles []model.Obstacle) string {
	kind := ""
	best := 0.0
	for i, o := range obstacles {
		d := Distance(p, model.Coordinate{Lat: o.Lat, Lng: o.Lon})
		if i == 0 || d < best {
			kind, best = o.Kind, d
		}
	}
	return kind
}
