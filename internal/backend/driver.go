package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
)

// DriverClient acts as a single driver attached to a single event.
type DriverClient struct {
	c       *Client
	token   string
	eventID uuid.UUID
}

func (c *Client) Driver(token string, eventID uuid.UUID) *DriverClient {
	return &DriverClient{c: c, token: token, eventID: eventID}
}

type address struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
}

func (a address) String() string {
	if a.Sub == "" {
		return a.Main
	}
	return a.Main + ", " + a.Sub
}

type stopWire struct {
	Typename      string    `json:"__typename"`
	Arrival       float64   `json:"arrival"`
	IDReservation uuid.UUID `json:"idReservation"`
	IsDropoff     bool      `json:"isDropoff"`
	Passengers    int       `json:"passengers"`
	Location      struct {
		Address address       `json:"address"`
		Coords  models.LatLng `json:"coords"`
	} `json:"location"`
}

func (w *stopWire) decode() (models.StopEstimation, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Typename {
	case "DriverStopEstimationEvent":
		return models.EventStop{ArrivalSeconds: w.Arrival}, nil
	case "DriverStopEstimationReservation":
		return models.ReservationStop{
			ReservationID:  w.IDReservation,
			IsDropoff:      w.IsDropoff,
			Location:       w.Location.Coords,
			Address:        w.Location.Address.String(),
			PassengerCount: w.Passengers,
		}, nil
	}
	return nil, fmt.Errorf("unknown stop type %q", w.Typename)
}

type assignmentWire struct {
	PickedUp []uuid.UUID `json:"pickedUp"`
	Dest     *stopWire   `json:"dest"`
	Queue    []stopWire  `json:"queue"`
}

func (w assignmentWire) decode() (models.Assignment, error) {
	dest, err := w.Dest.decode()
	if err != nil {
		return models.Assignment{}, err
	}
	out := models.Assignment{Dest: dest, Queue: make([]models.StopEstimation, 0, len(w.Queue)), PickedUp: w.PickedUp}
	for i := range w.Queue {
		s, err := w.Queue[i].decode()
		if err != nil {
			return models.Assignment{}, err
		}
		out.Queue = append(out.Queue, s)
	}
	return out, nil
}

type driversResponse struct {
	Drivers struct {
		Ping              *assignmentWire `json:"ping"`
		AcceptReservation *assignmentWire `json:"acceptReservation"`
		ConfirmPickup     *assignmentWire `json:"confirmPickup"`
		ConfirmDropoff    *assignmentWire `json:"confirmDropoff"`
	} `json:"drivers"`
}

func (d *DriverClient) assignment(ctx context.Context, op, query string, vars map[string]any, pick func(*driversResponse) *assignmentWire) (models.Assignment, error) {
	var resp driversResponse
	if err := d.c.run(ctx, d.token, op, query, vars, &resp); err != nil {
		return models.Assignment{}, err
	}
	w := pick(&resp)
	if w == nil {
		return models.Assignment{}, fmt.Errorf("%s: empty response", op)
	}
	a, err := w.decode()
	if err != nil {
		return a, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Ping reports the driver's location and returns its current assignment.
func (d *DriverClient) Ping(ctx context.Context, driverID int64, loc models.LatLng) (models.Assignment, error) {
	vars := map[string]any{"idEvent": d.eventID.String(), "idDriver": driverID, "location": loc}
	return d.assignment(ctx, "ping", driverPingMutation, vars, func(r *driversResponse) *assignmentWire { return r.Drivers.Ping })
}

// AvailableReservation returns the next reservation the driver may accept,
// or nil when there is none.
func (d *DriverClient) AvailableReservation(ctx context.Context, driverID int64) (*models.Reservation, error) {
	var resp struct {
		Events struct {
			Get struct {
				Reservation *struct {
					ID             uuid.UUID `json:"id"`
					MadeAt         int64     `json:"madeAt"`
					PassengerCount int       `json:"passengerCount"`
					IsDropoff      bool      `json:"isDropoff"`
					Stops          []struct {
						Lat     float64 `json:"locationLat"`
						Lng     float64 `json:"locationLng"`
						Address address `json:"address"`
					} `json:"stops"`
				} `json:"avaliableReservation"`
			} `json:"get"`
		} `json:"events"`
	}
	vars := map[string]any{"id": d.eventID.String(), "idDriver": driverID}
	if err := d.c.run(ctx, d.token, "available reservation", availableReservationQuery, vars, &resp); err != nil {
		return nil, err
	}
	w := resp.Events.Get.Reservation
	if w == nil {
		return nil, nil
	}
	r := &models.Reservation{
		ID:             w.ID,
		MadeAt:         time.Unix(w.MadeAt, 0),
		IsDropoff:      w.IsDropoff,
		PassengerCount: w.PassengerCount,
		Stops:          make([]models.Stop, 0, len(w.Stops)),
	}
	for _, s := range w.Stops {
		r.Stops = append(r.Stops, models.Stop{Location: models.LatLng{Lat: s.Lat, Lng: s.Lng}, Address: s.Address.String()})
	}
	return r, nil
}

// AcceptReservation fails when another driver already took the reservation.
func (d *DriverClient) AcceptReservation(ctx context.Context, driverID int64, reservationID uuid.UUID) (models.Assignment, error) {
	vars := map[string]any{"idDriver": driverID, "idReservation": reservationID.String()}
	return d.assignment(ctx, "accept reservation", acceptReservationMutation, vars, func(r *driversResponse) *assignmentWire { return r.Drivers.AcceptReservation })
}

func (d *DriverClient) ConfirmPickup(ctx context.Context, driverID int64) (models.Assignment, error) {
	vars := map[string]any{"idEvent": d.eventID.String(), "idDriver": driverID}
	return d.assignment(ctx, "confirm pickup", confirmPickupMutation, vars, func(r *driversResponse) *assignmentWire { return r.Drivers.ConfirmPickup })
}

func (d *DriverClient) ConfirmDropoff(ctx context.Context, driverID int64) (models.Assignment, error) {
	vars := map[string]any{"idEvent": d.eventID.String(), "idDriver": driverID}
	return d.assignment(ctx, "confirm dropoff", confirmDropoffMutation, vars, func(r *driversResponse) *assignmentWire { return r.Drivers.ConfirmDropoff })
}

// UpdateAccount sets the display name of the driver's account.
func (d *DriverClient) UpdateAccount(ctx context.Context, name string) error {
	var resp struct {
		Users struct {
			MeUpdate struct {
				Name string `json:"name"`
			} `json:"meUpdate"`
		} `json:"users"`
	}
	return d.c.run(ctx, d.token, "update account", updateAccountMutation, map[string]any{"name": name}, &resp)
}
