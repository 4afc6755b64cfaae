package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"route_service/internal/domain/model"
)

// avoidanceTimeout bounds recording of one skipped obstacle, lookups included.
const avoidanceTimeout = 30 * time.Second

// RouteRequest is one route search. Kind selects an accessibility template;
// without it the template of Account is used when there is one, otherwise the
// plain profile.
type RouteRequest struct {
	Points    []model.Coordinate `json:"points" validate:"min=2,dive"`
	Profile   string             `json:"profile" validate:"required"`
	Kind      model.ProfileKind  `json:"accessibilityProfile,omitempty"`
	SessionID string             `json:"sessionId,omitempty"`
	UseMiles  bool               `json:"useMiles"`
	Locale    string             `json:"locale,omitempty"`
	UserID    int64              `json:"-"`

	Account *model.AccessibilityProfile `json:"-"`
}

type RouteResponse struct {
	SessionID   string                `json:"sessionId,omitempty"`
	Info        model.RoutingInfo     `json:"info"`
	Paths       []model.AnnotatedPath `json:"paths"`
	CustomModel *model.CustomModel    `json:"customModel,omitempty"`
}

type RouteService struct {
	router     model.RoutingClient
	sessions   *SessionStore
	exclusion  *ExclusionModelBuilder
	avoidance  model.AvoidanceSink
	steepSlope float64
	pending    sync.WaitGroup
}

// NewRouteService wires the routing client with the exclusion sessions.
// avoidance may be nil when skipped obstacles are not recorded.
func NewRouteService(
	router model.RoutingClient,
	sessions *SessionStore,
	exclusion *ExclusionModelBuilder,
	avoidance model.AvoidanceSink,
	steepSlope float64,
) *RouteService {
	return &RouteService{
		router:     router,
		sessions:   sessions,
		exclusion:  exclusion,
		avoidance:  avoidance,
		steepSlope: steepSlope,
	}
}

// StartSession opens an exclusion session for a new search and ends the
// session of the search it replaces, if any.
func (s *RouteService) StartSession(replaces string) string {
	return s.sessions.Start(replaces)
}

// FindRoute routes with the accessibility template of the request merged with
// the points already excluded in its session.
func (s *RouteService) FindRoute(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	var exclusion *model.CustomModel
	if req.SessionID != "" {
		points, err := s.sessions.Snapshot(req.SessionID)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			exclusion = s.exclusion.Priority(points)
		}
	}
	return s.route(ctx, req, exclusion)
}

// SkipObstacle excludes point from the session and routes again. The
// exclusion caps the speed so the engine cannot pass through the area.
func (s *RouteService) SkipObstacle(ctx context.Context, req RouteRequest, point model.Coordinate) (*RouteResponse, error) {
	if req.SessionID == "" {
		req.SessionID = s.sessions.Start("")
	}
	if err := s.sessions.Exclude(req.SessionID, point); err != nil {
		return nil, err
	}
	points, err := s.sessions.Snapshot(req.SessionID)
	if err != nil {
		return nil, err
	}

	if s.avoidance != nil {
		ev := model.AvoidanceEvent{Point: point, UserID: req.UserID, OccurredAt: time.Now().UTC()}
		s.pending.Add(1)
		go s.recordAvoidance(context.WithoutCancel(ctx), ev)
	}

	return s.route(ctx, req, s.exclusion.Speed(points))
}

// recordAvoidance runs outside the request so lookups for the ranking never
// delay the new route.
func (s *RouteService) recordAvoidance(ctx context.Context, ev model.AvoidanceEvent) {
	defer s.pending.Done()
	ctx, cancel := context.WithTimeout(ctx, avoidanceTimeout)
	defer cancel()
	if err := s.avoidance.Avoided(ctx, ev); err != nil {
		log.Printf("Warning: failed to record avoided obstacle: %v", err)
	}
}

// Wait blocks until every skipped obstacle handed to the avoidance sink has
// been recorded.
func (s *RouteService) Wait() {
	s.pending.Wait()
}

// profileModel returns the template for the request. A stored difficulty
// level without a template routes with the plain profile.
func profileModel(req RouteRequest) (*model.CustomModel, error) {
	if req.Kind != "" {
		kind, err := ParseProfileKind(string(req.Kind))
		if err != nil {
			return nil, err
		}
		return BuildProfileModel(kind)
	}
	if req.Account == nil {
		return nil, nil
	}
	m, err := BuildPreferencesModel(*req.Account)
	if errors.Is(err, ErrUnknownProfile) {
		return nil, nil
	}
	return m, err
}

func (s *RouteService) route(ctx context.Context, req RouteRequest, exclusion *model.CustomModel) (*RouteResponse, error) {
	custom, err := profileModel(req)
	if err != nil {
		return nil, err
	}
	if exclusion != nil {
		custom = custom.Merge(exclusion)
	}
	if custom != nil {
		if err := custom.Validate(); err != nil {
			return nil, fmt.Errorf("invalid custom model: %w", err)
		}
	}

	result, err := s.router.Route(ctx, model.RouteQuery{
		Points:      req.Points,
		Profile:     req.Profile,
		CustomModel: custom,
		Details:     DetailKeys(),
		Elevation:   true,
		Locale:      req.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	opts := AnnotateOptions{
		Profile:           req.Profile,
		UseMiles:          req.UseMiles,
		SteepSlopePercent: s.steepSlope,
	}
	paths := make([]model.AnnotatedPath, 0, len(result.Paths))
	for _, p := range result.Paths {
		paths = append(paths, model.AnnotatedPath{
			Path:         p,
			Hints:        Annotate(p, opts),
			SurfaceColor: SurfaceColors(p),
		})
	}

	return &RouteResponse{
		SessionID:   req.SessionID,
		Info:        result.Info,
		Paths:       paths,
		CustomModel: custom,
	}, nil
}
