package graphhopper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type Info struct {
	Version  string    `json:"version,omitempty"`
	Profiles []Profile `json:"profiles"`
	BBox     []float64 `json:"bbox,omitempty"`
}

type Profile struct {
	Name string `json:"name"`
}

// Info returns the profiles and coverage of the routing engine. It doubles as
// a health probe.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/info"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create info request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("error decoding info: %w", err)
	}
	return &info, nil
}
