package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"route_service/internal/core"
	"route_service/internal/domain/model"
	"route_service/internal/domain/repository"
	"route_service/internal/infrastructure/graphhopper"
)

type stubRouter struct {
	last model.RouteQuery
	err  error
}

func (s *stubRouter) Route(_ context.Context, q model.RouteQuery) (*model.RoutingResult, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	points := []model.Position{{13.4, 52.5}, {13.4, 52.5001}, {13.4, 52.5001}}
	return &model.RoutingResult{Paths: []model.Path{{
		Distance: 11.1,
		Points:   model.LineString{Type: "LineString", Coordinates: points},
		Details: map[string]model.DetailArray{
			"road_class": {{0, 1, "footway"}, {1, 2, "steps"}},
		},
	}}}, nil
}

type stubUsers struct {
	users map[int64]*model.User
	prefs map[int64]model.Preferences
}

func (s *stubUsers) CreateUser(_ context.Context, u *model.User) error {
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = int64(len(s.users) + 1)
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *stubUsers) GetUserByUsername(_ context.Context, name string) (*model.User, error) {
	for _, u := range s.users {
		if u.Username == name {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *stubUsers) UpdateUser(_ context.Context, u *model.User) error {
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *stubUsers) GetPreferences(_ context.Context, id int64) (*model.Preferences, error) {
	p, ok := s.prefs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *stubUsers) SavePreferences(_ context.Context, id int64, p model.Preferences) error {
	s.prefs[id] = p
	return nil
}

type stubRecorder struct {
	events []model.AvoidanceEvent
}

func (s *stubRecorder) RecordAvoidance(_ context.Context, ev model.AvoidanceEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *stubRecorder) TopAvoided(context.Context, int) ([]model.AvoidedObstacle, error) {
	return []model.AvoidedObstacle{{Lat: 52.5, Lng: 13.4, Kind: "steps", AvoidanceCount: 3}}, nil
}

type stubEngine struct{}

func (stubEngine) Info(context.Context) (*graphhopper.Info, error) {
	return &graphhopper.Info{Profiles: []graphhopper.Profile{{Name: "foot"}}}, nil
}

type testServer struct {
	*httptest.Server
	router   *stubRouter
	recorder *stubRecorder
	routes   *core.RouteService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	router := &stubRouter{}
	recorder := &stubRecorder{}
	users := &stubUsers{users: map[int64]*model.User{}, prefs: map[int64]model.Preferences{}}

	exclusion := core.NewExclusionModelBuilder(core.DefaultExclusionMeters)
	obstacles := core.NewObstacleService(recorder, nil, nil)
	routes := core.NewRouteService(router, core.NewSessionStore(0, 0), exclusion, obstacles, core.DefaultSteepSlopePercent)
	auth := core.NewAuthService(users, "test-secret", time.Hour)

	mux := http.NewServeMux()
	NewHandler(routes, auth, obstacles, exclusion, stubEngine{}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, router: router, recorder: recorder, routes: routes}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

var routeBody = map[string]any{
	"points":  []map[string]float64{{"lat": 52.5, "lng": 13.4}, {"lat": 52.51, "lng": 13.41}},
	"profile": "foot",
}

func TestRouteEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var resp core.RouteResponse
	if code := srv.do(t, http.MethodPost, "/api/route", "", routeBody, &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(resp.Paths) != 1 || len(resp.Paths[0].Hints) != 1 || resp.Paths[0].Hints[0].Category != core.HintSteps {
		t.Errorf("unexpected response %+v", resp)
	}
	if srv.router.last.CustomModel != nil {
		t.Error("anonymous route without profile must not send a custom model")
	}
}

func TestRouteValidation(t *testing.T) {
	srv := newTestServer(t)
	for name, body := range map[string]any{
		"one point":   map[string]any{"points": []map[string]float64{{"lat": 1, "lng": 1}}, "profile": "foot"},
		"no profile":  map[string]any{"points": routeBody["points"]},
		"bad lat":     map[string]any{"points": []map[string]float64{{"lat": 91, "lng": 1}, {"lat": 1, "lng": 1}}, "profile": "foot"},
		"bad profile": map[string]any{"points": routeBody["points"], "profile": "foot", "accessibilityProfile": "jetpack"},
	} {
		var out map[string]any
		if code := srv.do(t, http.MethodPost, "/api/route", "", body, &out); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, code)
		}
		if out["success"] != false {
			t.Errorf("%s: expected error envelope, got %v", name, out)
		}
	}
}

func TestRouteUsesAccountProfile(t *testing.T) {
	srv := newTestServer(t)

	var auth authResponse
	signup := map[string]any{
		"username":    "erin",
		"email":       "erin@example.com",
		"password":    "secret1",
		"preferences": map[string]any{"difficulty": "wheelchair", "maxSlope": 6},
	}
	if code := srv.do(t, http.MethodPost, "/api/auth/signup", "", signup, &auth); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	if code := srv.do(t, http.MethodPost, "/api/route", auth.Token, routeBody, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	cm := srv.router.last.CustomModel
	template, _ := core.BuildProfileModel(model.ProfileWheelchair)
	if cm == nil || len(cm.Speed) != len(template.Speed) {
		t.Errorf("expected the wheelchair template, got %+v", cm)
	}
}

func TestSkipObstacleEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var session map[string]string
	if code := srv.do(t, http.MethodPost, "/api/route/sessions", "", nil, &session); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	id := session["sessionId"]

	body := map[string]any{
		"points":  routeBody["points"],
		"profile": "foot",
		"point":   map[string]float64{"lat": 52.505, "lng": 13.405},
	}
	var resp core.RouteResponse
	if code := srv.do(t, http.MethodPost, fmt.Sprintf("/api/route/sessions/%s/skip", id), "", body, &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.SessionID != id {
		t.Errorf("expected session %s, got %s", id, resp.SessionID)
	}
	cm := srv.router.last.CustomModel
	if cm == nil || len(cm.Speed) != 1 || len(cm.Areas.Features) != 1 {
		t.Errorf("expected one speed exclusion, got %+v", cm)
	}
	srv.routes.Wait()
	if len(srv.recorder.events) != 1 {
		t.Errorf("expected the avoidance to be recorded, got %d", len(srv.recorder.events))
	}

	if code := srv.do(t, http.MethodPost, "/api/route/sessions/unknown/skip", "", body, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", code)
	}

	var next map[string]string
	if code := srv.do(t, http.MethodPost, "/api/route/sessions?replaces="+id, "", nil, &next); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if next["sessionId"] == "" || next["sessionId"] == id {
		t.Errorf("expected a new session, got %v", next)
	}
	if code := srv.do(t, http.MethodPost, fmt.Sprintf("/api/route/sessions/%s/skip", id), "", body, nil); code != http.StatusNotFound {
		t.Errorf("expected replaced session to be gone, got %d", code)
	}
}

func TestCustomModelEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var excl struct {
		Priority []model.Rule `json:"priority"`
		Speed    []model.Rule `json:"speed"`
		Areas    struct {
			Features []json.RawMessage `json:"features"`
		} `json:"areas"`
	}
	body := map[string]any{"points": []map[string]float64{{"lat": 52.5, "lng": 13.4}, {"lat": 48.1, "lng": 11.6}}}
	if code := srv.do(t, http.MethodPost, "/api/custom-model/exclusion", "", body, &excl); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(excl.Priority) != 2 || len(excl.Speed) != 0 || len(excl.Areas.Features) != 2 {
		t.Errorf("unexpected exclusion model %+v", excl)
	}

	var profile struct {
		Priority []model.Rule `json:"priority"`
		Speed    []model.Rule `json:"speed"`
	}
	if code := srv.do(t, http.MethodGet, "/api/custom-model/profiles/prothesis", "", nil, &profile); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(profile.Priority) != 5 || len(profile.Speed) == 0 {
		t.Errorf("unexpected profile model %+v", profile)
	}

	if code := srv.do(t, http.MethodGet, "/api/custom-model/profiles/skateboard", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestCustomModelKeepsOperators(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/custom-model/profiles/wheelchair")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`{"if":"average_slope >= 10","limit_to":"0.5"}`,
		`"country == DEU && road_class == BRIDLEWAY"`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	creds := map[string]string{"username": "frank", "email": "frank@example.com", "password": "secret1"}

	if code := srv.do(t, http.MethodPost, "/api/auth/signup", "", creds, nil); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := srv.do(t, http.MethodPost, "/api/auth/signup", "", creds, nil); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate signup, got %d", code)
	}

	var auth authResponse
	login := map[string]string{"username": "frank", "password": "secret1"}
	if code := srv.do(t, http.MethodPost, "/api/auth/login", "", login, &auth); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	login["password"] = "wrong"
	if code := srv.do(t, http.MethodPost, "/api/auth/login", "", login, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}

	if code := srv.do(t, http.MethodGet, "/api/auth/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", code)
	}
	if code := srv.do(t, http.MethodGet, "/api/auth/preferences", auth.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 before preferences are saved, got %d", code)
	}

	prefs := map[string]any{"difficulty": "crutches/walking stick", "maxSlope": 40, "avoidStairs": true}
	if code := srv.do(t, http.MethodPost, "/api/auth/preferences", auth.Token, prefs, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	prefs["difficulty"] = "rollerblades"
	if code := srv.do(t, http.MethodPost, "/api/auth/preferences", auth.Token, prefs, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown difficulty, got %d", code)
	}

	var me struct {
		User model.User `json:"user"`
	}
	if code := srv.do(t, http.MethodGet, "/api/auth/me", auth.Token, nil, &me); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if me.User.Username != "frank" || me.User.Preferences == nil || !me.User.Preferences.AvoidStairs {
		t.Errorf("unexpected user %+v", me.User)
	}

	upd := map[string]string{"email": "f@example.org"}
	if code := srv.do(t, http.MethodPost, "/api/auth/profile", auth.Token, upd, &me); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if me.User.Email != "f@example.org" {
		t.Errorf("expected updated email, got %q", me.User.Email)
	}
}

func TestRankingAndHealth(t *testing.T) {
	srv := newTestServer(t)

	var ranking struct {
		Obstacles []model.AvoidedObstacle `json:"obstacles"`
	}
	if code := srv.do(t, http.MethodGet, "/api/obstacles/ranking?limit=5", "", nil, &ranking); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(ranking.Obstacles) != 1 || ranking.Obstacles[0].Kind != "steps" {
		t.Errorf("unexpected ranking %+v", ranking)
	}
	if code := srv.do(t, http.MethodGet, "/api/obstacles/ranking?limit=x", "", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}

	var info graphhopper.Info
	if code := srv.do(t, http.MethodGet, "/api/route/profiles", "", nil, &info); code != http.StatusOK || len(info.Profiles) != 1 {
		t.Errorf("unexpected engine info %d %+v", code, info)
	}
	if code := srv.do(t, http.MethodGet, "/health", "", nil, nil); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
}

func TestUpstreamErrors(t *testing.T) {
	srv := newTestServer(t)

	srv.router.err = &graphhopper.StatusError{Code: http.StatusBadRequest, Message: "Cannot find point 0"}
	var out map[string]any
	if code := srv.do(t, http.MethodPost, "/api/route", "", routeBody, &out); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	if out["error"] != "Cannot find point 0" {
		t.Errorf("expected upstream message, got %v", out["error"])
	}

	srv.router.err = &graphhopper.StatusError{Code: http.StatusServiceUnavailable}
	if code := srv.do(t, http.MethodPost, "/api/route", "", routeBody, nil); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}
