package core

import (
	"strings"

	"route_service/internal/domain/model"
)

// DefaultSteepSlopePercent is the slope above which a window counts as steep.
const DefaultSteepSlopePercent = 15.0

// Hint categories in the order they are presented.
const (
	HintFord                  = "ford"
	HintBorder                = "border"
	HintFerry                 = "ferry"
	HintAccessConditional     = "access_conditional"
	HintFootAccessConditional = "foot_access_conditional"
	HintBikeAccessConditional = "bike_access_conditional"
	HintPrivate               = "private"
	HintToll                  = "toll"
	HintMTBRating             = "mtb_rating"
	HintHikeRating            = "hike_rating"
	HintSteps                 = "steps"
	HintTracks                = "tracks"
	HintTrunk                 = "trunk"
	HintGetOffBike            = "get_off_bike"
	HintSteep                 = "steep_sections"
)

type describeStyle int

const (
	describeDistance describeStyle = iota
	describeDistanceValue
	describeRating
	describeValue
	describePlain
)

type hintRule struct {
	category    string
	detail      string
	description string
	style       describeStyle
	match       func(profile string) Predicate
}

var hintCatalogue = []hintRule{
	{HintFord, "road_environment", "There is a ford along the route", describeDistance, always(equals("ford"))},
	{HintBorder, "country", "The route crosses a country border", describeValue, nil},
	{HintFerry, "road_environment", "The route includes a ferry", describeDistance, always(equals("ferry"))},
	{HintAccessConditional, "access_conditional", "The route has potential access restrictions", describeDistanceValue, always(nonEmpty)},
	{HintFootAccessConditional, "foot_conditional", "The route has potential access restrictions", describeDistanceValue, always(nonEmpty)},
	{HintBikeAccessConditional, "bike_conditional", "The route has potential access restrictions", describeDistanceValue, always(nonEmpty)},
	{HintPrivate, "road_access", "The route includes private sections", describeDistance, always(equals("private", "customers", "delivery"))},
	{HintToll, "toll", "The route has tolls", describeDistance, tollPredicate},
	{HintMTBRating, "mtb_rating", "The route includes challenging or dangerous sections", describeRating, always(greaterThan(1))},
	{HintHikeRating, "hike_rating", "The route includes challenging or dangerous sections", describeRating, always(greaterThan(1))},
	{HintSteps, "road_class", "The route includes steps", describeDistance, always(equals("steps"))},
	{HintTracks, "track_type", "The route includes unpaved non-compacted tracks", describeDistanceValue, always(equals("grade2", "grade3", "grade4", "grade5"))},
	{HintTrunk, "road_class", "The route includes potentially dangerous trunk roads or worse", describeDistance, always(equals("motorway", "trunk"))},
	{HintGetOffBike, "get_off_bike", "Get off the bike for", describePlain, always(isTrue)},
	{HintSteep, "", "The route includes steep sections", describeValue, nil},
}

// DetailKeys lists the detail arrays the catalogue reads; they are requested
// from the routing API with every route.
func DetailKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range hintCatalogue {
		if r.detail == "" || seen[r.detail] {
			continue
		}
		seen[r.detail] = true
		keys = append(keys, r.detail)
	}
	return append(keys, "surface")
}

type AnnotateOptions struct {
	Profile           string
	UseMiles          bool
	SteepSlopePercent float64
}

// Annotate scans a path for every hint category and returns the hints that
// are present, in catalogue order.
func Annotate(path model.Path, opts AnnotateOptions) []model.Hint {
	threshold := opts.SteepSlopePercent
	if threshold <= 0 {
		threshold = DefaultSteepSlopePercent
	}
	points := path.Points.Coordinates

	hints := []model.Hint{}
	for _, rule := range hintCatalogue {
		var info model.RouteInfo
		switch rule.category {
		case HintBorder:
			info = ScanBorderCrossings(points, path.Detail(rule.detail))
			if len(info.Values) == 0 {
				continue
			}
		case HintSteep:
			info = ScanSteepSlope(points, threshold, opts.UseMiles)
		default:
			info = ScanDetail(points, path.Detail(rule.detail), rule.match(opts.Profile))
		}
		if rule.category != HintBorder && info.Distance <= 0 {
			continue
		}
		hints = append(hints, newHint(rule, info, opts.UseMiles))
	}
	return hints
}

func newHint(rule hintRule, info model.RouteInfo, useMiles bool) model.Hint {
	h := model.Hint{
		Category: rule.category,
		Distance: info.Distance,
		Segments: info.Segments,
		Values:   info.Values,
	}
	if info.Distance > 0 {
		h.DistanceText = FormatDistance(info.Distance, useMiles)
	}
	h.Descriptions = make([]string, len(info.Segments))
	h.Bounds = make([]*model.Bounds, len(info.Segments))
	for i, seg := range info.Segments {
		h.Descriptions[i] = describe(rule, h.DistanceText, info.Values, i)
		if b, ok := SegmentBounds(seg); ok {
			h.Bounds[i] = &b
		}
	}
	return h
}

func describe(rule hintRule, distance string, values []string, i int) string {
	value := ""
	if i < len(values) {
		value = values[i]
	}
	switch rule.style {
	case describePlain:
		return rule.description + " " + distance
	case describeValue:
		return rule.description + ": " + value
	case describeRating:
		if value != "" {
			return rule.description + ": " + distance + " (" + rule.category + ":" + value + ")"
		}
	case describeDistanceValue:
		if value != "" {
			return rule.description + ": " + distance + " " + value
		}
	}
	return rule.description + ": " + distance
}

func always(p Predicate) func(string) Predicate {
	return func(string) Predicate { return p }
}

func tollPredicate(profile string) Predicate {
	truck := IsTruck(profile)
	return func(v any) bool {
		s, _ := v.(string)
		return s == "all" || (s == "hgv" && truck)
	}
}

// IsTruck reports whether the routing profile is one of the truck profiles.
func IsTruck(profile string) bool {
	return strings.Contains(profile, "truck")
}

func equals(values ...string) Predicate {
	return func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, want := range values {
			if s == want {
				return true
			}
		}
		return false
	}
}

func nonEmpty(v any) bool {
	s, ok := v.(string)
	return ok && len(s) > 0
}

func greaterThan(limit float64) Predicate {
	return func(v any) bool {
		n, ok := v.(float64)
		return ok && n > limit
	}
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
