package geocode

import (
	"context"
	"fmt"

	maps "googlemaps.github.io/maps"

	"route_service/internal/domain/model"
)

// GoogleGeocoder resolves coordinates to addresses with the Maps
// Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps.NewClient: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, c model.Coordinate) (string, error) {
	resp, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: c.Lat, Lng: c.Lng},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	return pickAddress(resp), nil
}

// pickAddress prefers the street of the first result and falls back to its
// formatted address.
func pickAddress(results []maps.GeocodingResult) string {
	if len(results) == 0 {
		return ""
	}
	first := results[0]
	street, number := "", ""
	for _, comp := range first.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "route":
				street = comp.LongName
			case "street_number":
				number = comp.ShortName
			}
		}
	}
	switch {
	case street != "" && number != "":
		return street + " " + number
	case street != "":
		return street
	}
	return first.FormattedAddress
}
