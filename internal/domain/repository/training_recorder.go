package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"route_service/internal/domain/model"
)

// Points closer than about a meter count as the same obstacle.
const coordinateKeyScale = 1e5

type AvoidanceRecorder interface {
	RecordAvoidance(ctx context.Context, ev model.AvoidanceEvent) error
	TopAvoided(ctx context.Context, limit int) ([]model.AvoidedObstacle, error)
}

type PostgresAvoidanceRecorder struct {
	db *sqlx.DB
}

func NewPostgresAvoidanceRecorder(db *sqlx.DB) *PostgresAvoidanceRecorder {
	return &PostgresAvoidanceRecorder{db: db}
}

func coordinateKey(v float64) int64 {
	return int64(math.Round(v * coordinateKeyScale))
}

func (r *PostgresAvoidanceRecorder) RecordAvoidance(ctx context.Context, ev model.AvoidanceEvent) error {
	const query = `
		INSERT INTO avoided_obstacles (
			lat_key, lng_key, lat, lng, kind, address, avoidance_count, last_avoided_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 1, $7
		)
		ON CONFLICT (lat_key, lng_key) DO UPDATE SET
			avoidance_count = avoided_obstacles.avoidance_count + 1,
			last_avoided_at = EXCLUDED.last_avoided_at,
			kind = COALESCE(NULLIF(EXCLUDED.kind, ''), avoided_obstacles.kind),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), avoided_obstacles.address)`

	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		coordinateKey(ev.Point.Lat), coordinateKey(ev.Point.Lng),
		ev.Point.Lat, ev.Point.Lng,
		ev.Kind, ev.Address, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record avoidance: %w", err)
	}
	return nil
}

func (r *PostgresAvoidanceRecorder) TopAvoided(ctx context.Context, limit int) ([]model.AvoidedObstacle, error) {
	const query = `
		SELECT lat, lng, kind, address, avoidance_count, last_avoided_at
		FROM avoided_obstacles
		ORDER BY avoidance_count DESC, last_avoided_at DESC
		LIMIT $1`

	obstacles := []model.AvoidedObstacle{}
	if err := r.db.SelectContext(ctx, &obstacles, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query avoided obstacles: %w", err)
	}
	return obstacles, nil
}
