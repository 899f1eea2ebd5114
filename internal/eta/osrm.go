package eta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// OSRMClient asks an OSRM server for driving durations between stops.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

type osrmRouteResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// EstimateSeconds returns the duration of the fastest route. A pair OSRM
// cannot connect is reported as ErrSegmentNotFound, like a table miss.
func (o *OSRMClient) EstimateSeconds(ctx context.Context, from, to models.Stop) (float64, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false", o.Endpoint,
		from.Location.Lng, from.Location.Lat, to.Location.Lng, to.Location.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("osrm: %w", err)
	}
	defer resp.Body.Close()

	var out osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("osrm: decode (status %d): %w", resp.StatusCode, err)
	}
	switch {
	case out.Code == "NoRoute" || (out.Code == "Ok" && len(out.Routes) == 0):
		return 0, fmt.Errorf("osrm %s -> %s: %w", from.Address, to.Address, ErrSegmentNotFound)
	case out.Code != "Ok":
		return 0, fmt.Errorf("osrm: %s", out.Code)
	}
	return out.Routes[0].Duration, nil
}
