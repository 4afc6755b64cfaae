package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"route_service/internal/core"
	"route_service/internal/domain/model"
	"route_service/internal/infrastructure/graphhopper"
)

// EngineInfo reports what the routing engine offers.
type EngineInfo interface {
	Info(ctx context.Context) (*graphhopper.Info, error)
}

type Handler struct {
	routes    *core.RouteService
	auth      *core.AuthService
	obstacles *core.ObstacleService
	exclusion *core.ExclusionModelBuilder
	engine    EngineInfo
	validate  *validator.Validate
}

func NewHandler(
	routes *core.RouteService,
	auth *core.AuthService,
	obstacles *core.ObstacleService,
	exclusion *core.ExclusionModelBuilder,
	engine EngineInfo,
) *Handler {
	return &Handler{
		routes:    routes,
		auth:      auth,
		obstacles: obstacles,
		exclusion: exclusion,
		engine:    engine,
		validate:  validator.New(),
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	am := NewAuthMiddleware(h.auth)

	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", am.Wrap(h.Me))
	mux.HandleFunc("GET /api/auth/preferences", am.Wrap(h.GetPreferences))
	mux.HandleFunc("POST /api/auth/preferences", am.Wrap(h.SavePreferences))
	mux.HandleFunc("POST /api/auth/profile", am.Wrap(h.UpdateProfile))

	mux.HandleFunc("POST /api/route", am.Optional(h.Route))
	mux.HandleFunc("GET /api/route/profiles", h.EngineProfiles)
	mux.HandleFunc("POST /api/route/sessions", h.StartSession)
	mux.HandleFunc("POST /api/route/sessions/{id}/skip", am.Optional(h.SkipObstacle))

	mux.HandleFunc("POST /api/custom-model/exclusion", h.ExclusionModel)
	mux.HandleFunc("GET /api/custom-model/profiles/{kind}", h.ProfileModel)

	mux.HandleFunc("GET /api/obstacles/ranking", h.ObstacleRanking)
	mux.HandleFunc("GET /health", h.Health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// decode reads the JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail maps service errors to responses.
func fail(w http.ResponseWriter, err error) {
	var upstream *graphhopper.StatusError
	switch {
	case errors.Is(err, core.ErrUnknownProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &upstream) && upstream.Code < http.StatusInternalServerError:
		writeError(w, http.StatusBadRequest, upstream.Message)
	case errors.As(err, &upstream):
		log.Printf("Error from routing engine: %v", err)
		writeError(w, http.StatusBadGateway, "Routing engine unavailable")
	default:
		log.Printf("Error handling request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type authResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in core.SignupInput
	if !h.decode(w, r, &in) {
		return
	}
	user, token, err := h.auth.Signup(r.Context(), in)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Token: token, User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in core.LoginInput
	if !h.decode(w, r, &in) {
		return
	}
	user, token, err := h.auth.Login(r.Context(), in)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: user})
}

// Logout is a no-op for bearer tokens; clients drop the token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		fail(w, err)
		return
	}
	if user.Preferences == nil {
		writeError(w, http.StatusNotFound, "No preferences saved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "preferences": user.Preferences})
}

func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs model.Preferences
	if !h.decode(w, r, &prefs) {
		return
	}
	userID, _ := UserIDFromContext(r.Context())
	if err := h.auth.SavePreferences(r.Context(), userID, prefs); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "preferences": prefs})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd core.ProfileUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	userID, _ := UserIDFromContext(r.Context())
	user, err := h.auth.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// withAccountProfile attaches the stored accessibility profile of a signed in
// user. The route service uses it when the request does not name a template.
func (h *Handler) withAccountProfile(ctx context.Context, req *core.RouteRequest) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return
	}
	req.UserID = userID
	if req.Kind != "" {
		return
	}
	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		log.Printf("Warning: failed to load preferences of user %d: %v", userID, err)
		return
	}
	if user.Preferences == nil {
		return
	}
	profile := user.Preferences.Profile()
	req.Account = &profile
}

func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	var req core.RouteRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withAccountProfile(r.Context(), &req)

	resp, err := h.routes.FindRoute(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartSession opens a session for a new search. The replaces query
// parameter names the session of the previous search, which is ended.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	id := h.routes.StartSession(r.URL.Query().Get("replaces"))
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

type SkipRequest struct {
	core.RouteRequest
	Point model.Coordinate `json:"point"`
}

func (h *Handler) SkipObstacle(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.SessionID = r.PathValue("id")
	h.withAccountProfile(r.Context(), &req.RouteRequest)

	resp, err := h.routes.SkipObstacle(r.Context(), req.RouteRequest, req.Point)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ExclusionRequest struct {
	Points []model.Coordinate `json:"points" validate:"dive"`
	Speed  bool               `json:"speed"`
}

func (h *Handler) ExclusionModel(w http.ResponseWriter, r *http.Request) {
	var req ExclusionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Speed {
		writeJSON(w, http.StatusOK, h.exclusion.Speed(req.Points))
		return
	}
	writeJSON(w, http.StatusOK, h.exclusion.Priority(req.Points))
}

func (h *Handler) ProfileModel(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseProfileKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	m, err := core.BuildProfileModel(kind)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) ObstacleRanking(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	ranking, err := h.obstacles.Ranking(r.Context(), limit)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "obstacles": ranking})
}

func (h *Handler) EngineProfiles(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.Info(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
