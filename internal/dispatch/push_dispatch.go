package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// PushDispatcher delivers route updates over the driver's WebSocket when one
// is open and otherwise posts them to a webhook.
type PushDispatcher struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushDispatcher(endpoint string, ws *WSRegistry) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushDispatcher) Offer(driverID int64, est models.DriverRouteEstimate) error {
	if p.WS != nil {
		err := p.WS.Offer(driverID, est)
		if err == nil || !errors.Is(err, ErrNoSession) {
			return err
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	b, err := json.Marshal(map[string]any{"driver_id": driverID, "route": est})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.Client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push webhook: status %d", resp.StatusCode)
	}
	return nil
}
