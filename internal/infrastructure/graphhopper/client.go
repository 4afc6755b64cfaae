package graphhopper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"route_service/internal/domain/model"
)

// Client calls the routing engine's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type routeRequest struct {
	Points        [][2]float64       `json:"points"`
	Profile       string             `json:"profile"`
	PointsEncoded bool               `json:"points_encoded"`
	Elevation     bool               `json:"elevation"`
	Details       []string           `json:"details,omitempty"`
	Locale        string             `json:"locale,omitempty"`
	Instructions  bool               `json:"instructions"`
	CustomModel   *model.CustomModel `json:"custom_model,omitempty"`
	// custom models only work with the flexible mode
	DisableCH bool `json:"ch.disable,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) endpoint(path string) string {
	u := c.baseURL + path
	if c.apiKey != "" {
		u += "?key=" + url.QueryEscape(c.apiKey)
	}
	return u
}

func newRouteRequest(q model.RouteQuery) routeRequest {
	req := routeRequest{
		Points:        make([][2]float64, len(q.Points)),
		Profile:       q.Profile,
		PointsEncoded: false,
		Elevation:     q.Elevation,
		Details:       q.Details,
		Locale:        q.Locale,
		Instructions:  true,
		CustomModel:   q.CustomModel,
		DisableCH:     q.CustomModel != nil,
	}
	for i, p := range q.Points {
		req.Points[i] = [2]float64{p.Lng, p.Lat}
	}
	return req
}

func (c *Client) Route(ctx context.Context, q model.RouteQuery) (*model.RoutingResult, error) {
	body, err := model.EncodeJSON(newRouteRequest(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/route"), bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create route request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result model.RoutingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	return &result, nil
}

// StatusError is a non-200 answer of the routing engine.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("routing engine returned status %d", e.Code)
	}
	return fmt.Sprintf("routing engine returned status %d: %s", e.Code, e.Message)
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var er errorResponse
	if json.Unmarshal(data, &er) != nil || er.Message == "" {
		er.Message = strings.TrimSpace(string(data))
	}
	return &StatusError{Code: resp.StatusCode, Message: er.Message}
}
