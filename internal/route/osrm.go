package route

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// OSRMProvider fetches full route geometry from an OSRM server.
type OSRMProvider struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMProvider(endpoint string) *OSRMProvider {
	return &OSRMProvider{Endpoint: endpoint, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (o *OSRMProvider) Path(ctx context.Context, from, to models.LatLng) ([]models.LatLng, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline",
		o.Endpoint, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Geometry string `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	switch {
	case out.Code == "NoRoute" || (out.Code == "Ok" && len(out.Routes) == 0):
		return []models.LatLng{}, nil
	case out.Code != "Ok":
		return nil, fmt.Errorf("osrm route: %s", out.Code)
	}
	return Decode(out.Routes[0].Geometry)
}
