package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"route_service/internal/domain/model"
)

type fakeRouter struct {
	queries []model.RouteQuery
	result  *model.RoutingResult
	err     error
}

func (f *fakeRouter) Route(_ context.Context, q model.RouteQuery) (*model.RoutingResult, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []model.AvoidanceEvent
	err    error
}

func (f *fakeSink) Avoided(_ context.Context, ev model.AvoidanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

// blockingSink holds every event until release is closed.
type blockingSink struct {
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingSink) Avoided(ctx context.Context, _ model.AvoidanceEvent) error {
	<-b.release
	b.ctxErr <- ctx.Err()
	return nil
}

func newTestRouteService(router model.RoutingClient, sink model.AvoidanceSink) *RouteService {
	return NewRouteService(router, NewSessionStore(0, 0), NewExclusionModelBuilder(0), sink, DefaultSteepSlopePercent)
}

var routePoints = []model.Coordinate{{Lat: 52.5, Lng: 13.4}, {Lat: 52.51, Lng: 13.41}}

func TestFindRouteAnnotates(t *testing.T) {
	path := testPath(map[string]model.DetailArray{
		"road_class": {{0, 11, "footway"}, {11, 12, "steps"}},
		"surface":    {{0, 12, "asphalt"}},
	})
	router := &fakeRouter{result: &model.RoutingResult{Paths: []model.Path{path}}}
	svc := newTestRouteService(router, nil)

	resp, err := svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot"})
	if err != nil {
		t.Fatal(err)
	}

	q := router.queries[0]
	if q.CustomModel != nil {
		t.Errorf("expected no custom model without profile or exclusions, got %+v", q.CustomModel)
	}
	if !q.Elevation || len(q.Details) != len(DetailKeys()) {
		t.Errorf("expected elevation and all detail keys, got %+v", q)
	}

	if len(resp.Paths) != 1 {
		t.Fatalf("expected one path, got %d", len(resp.Paths))
	}
	p := resp.Paths[0]
	if len(p.Hints) != 1 || p.Hints[0].Category != HintSteps {
		t.Errorf("expected a steps hint, got %v", categories(p.Hints))
	}
	if len(p.SurfaceColor) != 12 || p.SurfaceColor[0] != "#000000" {
		t.Errorf("unexpected surface colors %v", p.SurfaceColor)
	}
}

func TestFindRouteWithProfileAndSession(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	svc := newTestRouteService(router, nil)

	id := svc.StartSession("")
	svc.sessions.Exclude(id, model.Coordinate{Lat: 52.505, Lng: 13.405})

	_, err := svc.FindRoute(context.Background(), RouteRequest{
		Points:    routePoints,
		Profile:   "foot",
		Kind:      model.ProfileWheelchair,
		SessionID: id,
	})
	if err != nil {
		t.Fatal(err)
	}

	cm := router.queries[0].CustomModel
	if cm == nil {
		t.Fatal("expected a custom model")
	}
	template, _ := BuildProfileModel(model.ProfileWheelchair)
	if len(cm.Priority) != len(template.Priority)+1 || len(cm.Speed) != len(template.Speed) {
		t.Errorf("expected template plus one exclusion rule, got %d/%d", len(cm.Priority), len(cm.Speed))
	}
	if last := cm.Priority[len(cm.Priority)-1]; last != model.If("in_area0", model.MultiplyBy, "0") {
		t.Errorf("unexpected exclusion rule %+v", last)
	}
	if len(cm.Areas.Features) != 1 {
		t.Errorf("expected one area, got %d", len(cm.Areas.Features))
	}
}

func TestFindRouteErrors(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	svc := newTestRouteService(router, nil)

	_, err := svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", Kind: "crutches/walking stick"})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
	_, err = svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", SessionID: "nope"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	upstream := errors.New("connection refused")
	router.err = upstream
	_, err = svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot"})
	if !errors.Is(err, upstream) {
		t.Errorf("expected wrapped upstream error, got %v", err)
	}
}

func TestSkipObstacle(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	sink := &fakeSink{err: errors.New("broker down")}
	svc := newTestRouteService(router, sink)

	first := model.Coordinate{Lat: 52.505, Lng: 13.405}
	resp, err := svc.SkipObstacle(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", UserID: 4}, first)
	if err != nil {
		t.Fatalf("recording failures must not fail the route: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session to be started")
	}

	second := model.Coordinate{Lat: 52.506, Lng: 13.406}
	_, err = svc.SkipObstacle(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", SessionID: resp.SessionID}, second)
	if err != nil {
		t.Fatal(err)
	}

	cm := router.queries[1].CustomModel
	if len(cm.Speed) != 2 || len(cm.Priority) != 0 || len(cm.Areas.Features) != 2 {
		t.Errorf("expected two speed exclusions, got %+v", cm)
	}
	if cm.Speed[1] != model.If("in_area1", model.LimitTo, "0") {
		t.Errorf("unexpected rule %+v", cm.Speed[1])
	}

	svc.Wait()
	if len(sink.events) != 2 || sink.events[0].Point != first || sink.events[0].UserID != 4 {
		t.Errorf("unexpected avoidance events %+v", sink.events)
	}
}

func TestSkipObstacleDoesNotWaitForRecording(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	sink := &blockingSink{release: make(chan struct{}), ctxErr: make(chan error, 1)}
	svc := newTestRouteService(router, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.SkipObstacle(ctx, RouteRequest{Points: routePoints, Profile: "foot"}, model.Coordinate{Lat: 52.505, Lng: 13.405})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("route waited for the avoidance sink")
	}

	// the request is over; recording must outlive it
	cancel()
	close(sink.release)
	svc.Wait()
	if err := <-sink.ctxErr; err != nil {
		t.Errorf("expected recording context to outlive the request, got %v", err)
	}
}

func TestFindRouteWithAccountProfile(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	svc := newTestRouteService(router, nil)

	account := model.Preferences{Difficulty: model.DifficultyProsthesis}.Profile()
	if _, err := svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", Account: &account}); err != nil {
		t.Fatal(err)
	}
	template, _ := BuildProfileModel(model.ProfileProsthesis)
	if cm := router.queries[0].CustomModel; cm == nil || len(cm.Speed) != len(template.Speed) {
		t.Errorf("expected the prosthesis template, got %+v", cm)
	}

	// an explicit kind wins over the account
	_, err := svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", Kind: model.ProfileWheelchair, Account: &account})
	if err != nil {
		t.Fatal(err)
	}
	wheelchair, _ := BuildProfileModel(model.ProfileWheelchair)
	if cm := router.queries[1].CustomModel; len(cm.Speed) != len(wheelchair.Speed) {
		t.Errorf("expected the wheelchair template, got %d speed rules", len(cm.Speed))
	}

	crutches := model.Preferences{Difficulty: model.DifficultyCrutches}.Profile()
	if _, err := svc.FindRoute(context.Background(), RouteRequest{Points: routePoints, Profile: "foot", Account: &crutches}); err != nil {
		t.Fatalf("difficulty without template must route plainly: %v", err)
	}
	if cm := router.queries[2].CustomModel; cm != nil {
		t.Errorf("expected no custom model, got %+v", cm)
	}
}

func TestRouteRejectsBrokenChain(t *testing.T) {
	router := &fakeRouter{result: &model.RoutingResult{}}
	svc := newTestRouteService(router, nil)

	broken := model.NewCustomModel()
	broken.Speed = append(broken.Speed, model.ElseIf("in_area0", model.LimitTo, "0"))
	_, err := svc.route(context.Background(), RouteRequest{Points: routePoints, Profile: "foot"}, broken)
	if !errors.Is(err, model.ErrBrokenChain) {
		t.Errorf("expected ErrBrokenChain, got %v", err)
	}
	if len(router.queries) != 0 {
		t.Error("broken model must not reach the routing engine")
	}
}
