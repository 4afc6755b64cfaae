package core

import (
	"fmt"
	"math"

	"route_service/internal/domain/model"
)

const (
	// Obstacles mapped as a single node (fords, steps) have no length of
	// their own; they still count as present.
	nodeObstacleLength = 0.01

	// Elevation data is too noisy for per-point slopes, so slopes are
	// measured over windows of at least this many meters.
	slopeWindowMeters = 100.0
)

// Predicate decides whether a detail value marks a hint.
type Predicate func(value any) bool

// ScanDetail collects the intervals of detail whose value satisfies match.
// Intervals with indices outside the path are clamped; intervals that are
// empty after clamping are skipped.
func ScanDetail(points []model.Position, detail model.DetailArray, match Predicate) model.RouteInfo {
	info := model.NewRouteInfo()
	if len(detail) == 0 || len(points) == 0 || match == nil {
		return info
	}

	last := len(points) - 1
	for _, iv := range detail {
		from, to, ok := clampInterval(iv.From, iv.To, last)
		if !ok {
			continue
		}
		if !match(iv.Value) {
			continue
		}

		segment := make([]model.Coordinate, 0, to-from+1)
		if from == to {
			info.Distance += nodeObstacleLength
		}
		for i := from; i < to; i++ {
			d := positionDistance(points[i], points[i+1])
			if d == 0 {
				d = nodeObstacleLength
			}
			info.Distance += d
			segment = append(segment, points[i].Coordinate())
		}
		segment = append(segment, points[to].Coordinate())

		info.Segments = append(info.Segments, segment)
		info.Values = append(info.Values, model.ValueString(iv.Value))
	}
	return info
}

func clampInterval(from, to, last int) (int, int, bool) {
	if from < 0 {
		from = 0
	}
	if to > last {
		to = last
	}
	if from > to || from > last || to < 0 {
		return 0, 0, false
	}
	return from, to, true
}

// ScanBorderCrossings reports every change of country along the path as a
// two point segment straddling the border.
func ScanBorderCrossings(points []model.Position, country model.DetailArray) model.RouteInfo {
	info := model.NewRouteInfo()
	if len(country) == 0 {
		return info
	}

	prev := model.ValueString(country[0].Value)
	for _, iv := range country[1:] {
		current := model.ValueString(iv.Value)
		if current == prev {
			continue
		}
		info.Values = append(info.Values, prev+" - "+current)
		if iv.From >= 1 && iv.From < len(points) {
			info.Segments = append(info.Segments, []model.Coordinate{
				points[iv.From-1].Coordinate(),
				points[iv.From].Coordinate(),
			})
		} else {
			info.Segments = append(info.Segments, []model.Coordinate{})
		}
		prev = current
	}
	return info
}

// ScanSteepSlope finds windows of the path steeper than thresholdPercent.
// Paths without elevation give an empty result.
func ScanSteepSlope(points []model.Position, thresholdPercent float64, useMiles bool) model.RouteInfo {
	info := model.NewRouteInfo()
	if len(points) == 0 {
		return info
	}
	for _, p := range points {
		if !p.HasElevation() {
			return info
		}
	}

	var (
		window    float64
		segment   []model.Coordinate
		prevEle   = points[0]
		prevPoint = points[0]
	)
	for _, curr := range points {
		window += positionDistance(curr, prevPoint)
		if window > slopeWindowMeters {
			slope := 100.0 * math.Abs(prevEle.Elevation()-curr.Elevation()) / window
			if slope > thresholdPercent {
				text := FormatDistance(math.Round(window), useMiles)
				info.Values = append(info.Values, fmt.Sprintf("%s (%d%%)", text, int(math.Round(slope))))
				info.Distance += window
				info.Segments = append(info.Segments, segment)
			}
			prevEle = curr
			window = 0
			segment = nil
		}
		prevPoint = curr
		segment = append(segment, curr.Coordinate())
	}
	return info
}
