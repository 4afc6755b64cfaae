package core

import (
	"errors"
	"fmt"

	"route_service/internal/domain/model"
)

var ErrUnknownProfile = errors.New("unknown accessibility profile")

// slopePenalties are the speed factors of a profile for uphill and downhill
// sections. Severe slopes are capped with limit_to, moderate ones scaled.
type slopePenalties struct {
	severeUp     string
	steepUp      string
	moderateUp   string
	steepDown    string
	moderateDown string
	maxSlopeCap  string
}

var profileSlopes = map[model.ProfileKind]slopePenalties{
	model.ProfileProsthesis: {"1.5", "2.0", "0.85", "1.05", "1.15", "2.5"},
	model.ProfileWheelchair: {"1.3", "1.8", "0.80", "1.00", "1.10", "2.2"},
}

// ParseProfileKind accepts a profile name or a stored difficulty level.
func ParseProfileKind(s string) (model.ProfileKind, error) {
	switch s {
	case string(model.ProfileProsthesis), "prothesis":
		return model.ProfileProsthesis, nil
	case string(model.ProfileWheelchair):
		return model.ProfileWheelchair, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// BuildProfileModel returns a fresh copy of the template for kind.
func BuildProfileModel(kind model.ProfileKind) (*model.CustomModel, error) {
	slopes, ok := profileSlopes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, kind)
	}

	m := model.NewCustomModel()
	m.Priority = footPriority()

	m.Speed = append(m.Speed, slopeSpeed(slopes)...)
	m.Speed = append(m.Speed, model.If("true", model.LimitTo, "3"))
	m.Speed = append(m.Speed, surfaceSpeed()...)
	m.Speed = append(m.Speed, roadClassSpeed()...)
	m.Speed = append(m.Speed, ratingSpeed()...)
	if kind == model.ProfileWheelchair {
		m.Speed = append(m.Speed, footNetworkSpeed()...)
	}
	m.Speed = append(m.Speed, environmentSpeed()...)
	return m, nil
}

// BuildPreferencesModel picks the template for a stored account. Difficulty
// levels without a template return ErrUnknownProfile.
func BuildPreferencesModel(p model.AccessibilityProfile) (*model.CustomModel, error) {
	kind, err := ParseProfileKind(string(p.Kind))
	if err != nil {
		return nil, err
	}
	return BuildProfileModel(kind)
}

func footPriority() []model.Rule {
	return []model.Rule{
		model.If("average_slope >= 10", model.LimitTo, "0.5"),
		model.If("average_slope <= -10", model.LimitTo, "0.5"),
		model.If("!foot_access", model.MultiplyBy, "0"),
		model.Else(model.MultiplyBy, "foot_priority"),
		model.If("country == DEU && road_class == BRIDLEWAY", model.MultiplyBy, "0"),
	}
}

func slopeSpeed(s slopePenalties) []model.Rule {
	return []model.Rule{
		model.If("average_slope >= 15", model.LimitTo, s.severeUp),
		model.ElseIf("average_slope >= 7", model.LimitTo, s.steepUp),
		model.ElseIf("average_slope >= 4", model.MultiplyBy, s.moderateUp),
		model.If("average_slope <= -4", model.MultiplyBy, s.steepDown),
		model.ElseIf("average_slope <= -2", model.MultiplyBy, s.moderateDown),
		model.If("max_slope >= 15", model.MultiplyBy, "0.05"),
		model.ElseIf("max_slope >= 7", model.LimitTo, s.maxSlopeCap),
		model.If("max_slope <= -15", model.MultiplyBy, "0.05"),
		model.ElseIf("max_slope <= -7", model.LimitTo, s.maxSlopeCap),
	}
}

func surfaceSpeed() []model.Rule {
	return []model.Rule{
		model.If("surface == MISSING", model.LimitTo, "1.0"),
		model.If("surface == PAVED", model.LimitTo, "3.5"),
		model.If("surface == ASPHALT", model.LimitTo, "3.5"),
		model.If("surface == CONCRETE", model.LimitTo, "3.3"),
		model.If("surface == PAVING_STONES", model.LimitTo, "3.0"),
		model.If("surface == COBBLESTONE", model.LimitTo, "2.0"),
		model.If("surface == UNPAVED", model.LimitTo, "2.5"),
		model.If("surface == COMPACTED", model.LimitTo, "2.5"),
		model.If("surface == FINE_GRAVEL", model.LimitTo, "2.3"),
		model.If("surface == GRAVEL", model.LimitTo, "2.2"),
		model.If("surface == GROUND", model.LimitTo, "2.2"),
		model.If("surface == DIRT", model.LimitTo, "2.2"),
		model.If("surface == GRASS", model.LimitTo, "2.0"),
		model.If("surface == SAND", model.LimitTo, "1.0"),
		model.If("surface == WOOD", model.LimitTo, "3.0"),
		model.If("surface == OTHER", model.LimitTo, "2.5"),
	}
}

// Motorways, trunks, primaries, steps, cycleways, bridleways and
// construction sites are closed; footways and pedestrian areas are fastest.
func roadClassSpeed() []model.Rule {
	return []model.Rule{
		model.If("road_class == OTHER", model.LimitTo, "3.0"),
		model.If("road_class == MOTORWAY", model.LimitTo, "0"),
		model.If("road_class == TRUNK", model.LimitTo, "0"),
		model.If("road_class == PRIMARY", model.LimitTo, "0"),
		model.If("road_class == SECONDARY", model.LimitTo, "1.5"),
		model.If("road_class == TERTIARY", model.LimitTo, "2.0"),
		model.If("road_class == RESIDENTIAL", model.LimitTo, "2.5"),
		model.If("road_class == UNCLASSIFIED", model.LimitTo, "2.0"),
		model.If("road_class == SERVICE", model.LimitTo, "2.5"),
		model.If("road_class == ROAD", model.LimitTo, "2.0"),
		model.If("road_class == TRACK", model.LimitTo, "1.5"),
		model.If("road_class == BRIDLEWAY", model.LimitTo, "0"),
		model.If("road_class == STEPS", model.LimitTo, "0"),
		model.If("road_class == CYCLEWAY", model.LimitTo, "0"),
		model.If("road_class == PATH", model.LimitTo, "3.0"),
		model.If("road_class == LIVING_STREET", model.LimitTo, "3.0"),
		model.If("road_class == FOOTWAY", model.LimitTo, "3.0"),
		model.If("road_class == PEDESTRIAN", model.LimitTo, "3.0"),
		model.If("road_class == PLATFORM", model.LimitTo, "2.0"),
		model.If("road_class == CORRIDOR", model.LimitTo, "2.0"),
		model.If("road_class == CONSTRUCTION", model.LimitTo, "0"),
	}
}

func ratingSpeed() []model.Rule {
	return []model.Rule{
		model.If("mtb_rating > 2", model.LimitTo, "0"),
		model.If("hike_rating > 1", model.LimitTo, "0"),
	}
}

func footNetworkSpeed() []model.Rule {
	return []model.Rule{
		model.If("!foot_subnetwork", model.MultiplyBy, "0.9"),
		model.If("foot_network == INTERNATIONAL", model.MultiplyBy, "1.1"),
		model.If("foot_network == NATIONAL", model.MultiplyBy, "1.1"),
		model.If("foot_network == REGIONAL", model.MultiplyBy, "1.1"),
	}
}

func environmentSpeed() []model.Rule {
	return []model.Rule{
		model.If("road_environment == OTHER", model.MultiplyBy, "1"),
		model.If("road_environment == ROAD", model.MultiplyBy, "1"),
		model.If("road_environment == FERRY", model.MultiplyBy, "0.5"),
		model.If("road_environment == TUNNEL", model.MultiplyBy, "0.4"),
		model.If("road_environment == BRIDGE", model.MultiplyBy, "0.8"),
		model.If("road_environment == FORD", model.MultiplyBy, "0"),
	}
}
