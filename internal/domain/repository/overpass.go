package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"route_service/internal/domain/model"
)

// ObstacleSource finds mapped obstacles around a point.
type ObstacleSource interface {
	ObstaclesNear(ctx context.Context, c model.Coordinate, radiusMeters int) ([]model.Obstacle, error)
}

type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
}

func NewOverpassRepository(endpoint string, timeout time.Duration) *OverpassRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
	}
}

// obstacleFilters are the tag filters of things a wheelchair or prosthesis
// user may have to avoid.
var obstacleFilters = []struct {
	element string
	filter  string
}{
	{"node", `["highway"="steps"]`},
	{"way", `["highway"="steps"]`},
	{"node", `["barrier"~"^(kerb|step|stile|turnstile|kissing_gate|cycle_barrier)$"]`},
	{"node", `["kerb"~"^(raised|regular)$"]`},
	{"node", `["ford"="yes"]`},
	{"way", `["ford"="yes"]`},
	{"way", `["surface"~"^(gravel|sand|cobblestone|unhewn_cobblestone|grass|mud)$"]`},
	{"way", `["smoothness"~"^(very_bad|horrible|very_horrible|impassable)$"]`},
}

func obstacleQuery(c model.Coordinate, radiusMeters int, timeout time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	for _, f := range obstacleFilters {
		fmt.Fprintf(&b, "\t%s(around:%d,%f,%f)%s;\n", f.element, radiusMeters, c.Lat, c.Lng, f.filter)
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

func (r *OverpassRepository) ObstaclesNear(ctx context.Context, c model.Coordinate, radiusMeters int) ([]model.Obstacle, error) {
	result, err := r.executeQuery(ctx, obstacleQuery(c, radiusMeters, r.timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to execute obstacle query: %w", err)
	}
	return convertToObstacles(result), nil
}

func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type reply struct {
		result overpass.Result
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		result, err := r.client.Query(query)
		done <- reply{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query aborted: %w", ctx.Err())
	case rep := <-done:
		if rep.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", rep.err)
		}
		return &rep.result, nil
	}
}

func convertToObstacles(result *overpass.Result) []model.Obstacle {
	obstacles := []model.Obstacle{}

	for _, node := range result.Nodes {
		kind := ObstacleKind(node.Tags)
		if kind == "" {
			continue
		}
		obstacles = append(obstacles, model.Obstacle{
			ID:   node.ID,
			Type: string(overpass.ElementTypeNode),
			Kind: kind,
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}

	for _, way := range result.Ways {
		kind := ObstacleKind(way.Tags)
		if kind == "" {
			continue
		}
		var lat, lon float64
		count := 0
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			lat += node.Lat
			lon += node.Lon
			count++
		}
		if count > 0 {
			lat /= float64(count)
			lon /= float64(count)
		}
		obstacles = append(obstacles, model.Obstacle{
			ID:   way.ID,
			Type: string(overpass.ElementTypeWay),
			Kind: kind,
			Lat:  lat,
			Lon:  lon,
			Tags: way.Tags,
		})
	}

	// result maps have no stable order
	sort.Slice(obstacles, func(i, j int) bool {
		if obstacles[i].Type != obstacles[j].Type {
			return obstacles[i].Type < obstacles[j].Type
		}
		return obstacles[i].ID < obstacles[j].ID
	})
	return obstacles
}

// ObstacleKind names what an OSM element is from a wheelchair user's point
// of view, or "" when its tags describe nothing in the way.
func ObstacleKind(tags map[string]string) string {
	switch {
	case tags["highway"] == "steps":
		return "steps"
	case tags["ford"] == "yes":
		return "ford"
	case tags["barrier"] == "kerb" || tags["kerb"] == "raised" || tags["kerb"] == "regular":
		return "kerb"
	case tags["barrier"] != "":
		return "barrier"
	case tags["smoothness"] != "":
		return "rough surface"
	case tags["surface"] != "":
		return "unpaved surface"
	}
	return ""
}
