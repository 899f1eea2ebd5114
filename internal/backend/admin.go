package backend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
)

type Event struct {
	ID           uuid.UUID
	Name         string
	Location     *models.Stop
	DriverPhones []string
}

// AdminClient manages the drivers of one event with an organizer token.
type AdminClient struct {
	c         *Client
	token     string
	eventID   uuid.UUID
	vehicleID uuid.UUID
	authCode  string
}

func (c *Client) Admin(token string, eventID, vehicleID uuid.UUID, authCode string) *AdminClient {
	return &AdminClient{c: c, token: token, eventID: eventID, vehicleID: vehicleID, authCode: authCode}
}

func (a *AdminClient) GetEvent(ctx context.Context) (Event, error) {
	var resp struct {
		Events struct {
			Get struct {
				ID       uuid.UUID `json:"id"`
				Name     string    `json:"name"`
				Location *struct {
					Label string  `json:"label"`
					Lat   float64 `json:"locationLat"`
					Lng   float64 `json:"locationLng"`
				} `json:"location"`
				Drivers []struct {
					ID    int64  `json:"id"`
					Phone string `json:"phone"`
				} `json:"drivers"`
			} `json:"get"`
		} `json:"events"`
	}
	if err := a.c.run(ctx, a.token, "get event", adminEventQuery, map[string]any{"id": a.eventID.String()}, &resp); err != nil {
		return Event{}, err
	}
	g := resp.Events.Get
	ev := Event{ID: g.ID, Name: g.Name}
	if g.Location != nil {
		ev.Location = &models.Stop{Location: models.LatLng{Lat: g.Location.Lat, Lng: g.Location.Lng}, Address: g.Location.Label}
	}
	for _, d := range g.Drivers {
		ev.DriverPhones = append(ev.DriverPhones, d.Phone)
	}
	return ev, nil
}

// UpdateEventDriver upserts the driver with phone on the event. Only the
// keys present in form are sent; a nil value is sent as null.
func (a *AdminClient) UpdateEventDriver(ctx context.Context, phone string, form map[string]any) (int64, error) {
	var resp struct {
		Orgs struct {
			UpdateEventDriver struct {
				ID int64 `json:"id"`
			} `json:"updateEventDriver"`
		} `json:"orgs"`
	}
	vars := map[string]any{"phone": phone, "idEvent": a.eventID.String(), "form": form}
	if err := a.c.run(ctx, a.token, "update event driver", updateEventDriverMutation, vars, &resp); err != nil {
		return 0, err
	}
	return resp.Orgs.UpdateEventDriver.ID, nil
}

func (a *AdminClient) EventDrivers(ctx context.Context) ([]string, error) {
	ev, err := a.GetEvent(ctx)
	return ev.DriverPhones, err
}

// RetireDriver marks the driver obsolete so it no longer receives work.
func (a *AdminClient) RetireDriver(ctx context.Context, phone string) error {
	_, err := a.UpdateEventDriver(ctx, phone, map[string]any{"obsoleteAt": time.Now().Unix()})
	return err
}

func (a *AdminClient) Login(ctx context.Context, phone string) (string, error) {
	return a.c.VerifyOTP(ctx, phone, a.authCode)
}

func (a *AdminClient) Rename(ctx context.Context, token, name string) error {
	return a.c.Driver(token, a.eventID).UpdateAccount(ctx, name)
}

// AttachDriver adds the driver to the event with the configured vehicle.
func (a *AdminClient) AttachDriver(ctx context.Context, phone string) (int64, error) {
	return a.UpdateEventDriver(ctx, phone, map[string]any{"idVehicle": a.vehicleID.String(), "obsoleteAt": nil})
}
