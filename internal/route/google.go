package route

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/example/ride-dispatch/internal/models"
)

// GoogleProvider builds paths from the Google Directions API.
type GoogleProvider struct {
	client *maps.Client
}

// NewGoogleProvider creates a provider for apiKey. Extra options (for
// example maps.WithBaseURL) are passed through to the maps client.
func NewGoogleProvider(apiKey string, opts ...maps.ClientOption) (*GoogleProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

// Path concatenates the step polylines of the first route returned.
func (g *GoogleProvider) Path(ctx context.Context, from, to models.LatLng) ([]models.LatLng, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLngString(from),
		Destination: latLngString(to),
		Mode:        maps.TravelModeDriving,
	}
	routes, _, err := g.client.Directions(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return []models.LatLng{}, nil
		}
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	out := []models.LatLng{}
	if len(routes) == 0 {
		return out, nil
	}
	for _, leg := range routes[0].Legs {
		for _, step := range leg.Steps {
			pts, err := Decode(step.Polyline.Points)
			if err != nil {
				return nil, err
			}
			out = append(out, pts...)
		}
	}
	return out, nil
}

func latLngString(p models.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
