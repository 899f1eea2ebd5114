package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultEpsilon is the coordinate tolerance, in degrees, used when comparing
// locations that may have been re-serialized by the backend.
const DefaultEpsilon = 1e-6

var ErrNoStops = errors.New("reservation has no stops")

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Near reports whether o is within eps degrees of l on both axes.
func (l LatLng) Near(o LatLng, eps float64) bool {
	return math.Abs(l.Lat-o.Lat) <= eps && math.Abs(l.Lng-o.Lng) <= eps
}

type Stop struct {
	Location LatLng `json:"location"`
	Address  string `json:"address"`
}

type Reservation struct {
	ID             uuid.UUID `json:"id"`
	MadeAt         time.Time `json:"made_at"`
	Stops          []Stop    `json:"stops"`
	IsDropoff      bool      `json:"is_dropoff"`
	PassengerCount int       `json:"passenger_count"`
}

func (r Reservation) Validate() error {
	if len(r.Stops) == 0 {
		return ErrNoStops
	}
	return nil
}

// Pickup is the first stop the driver has to reach for this reservation.
func (r Reservation) Pickup() Stop { return r.Stops[0] }

// DriverLocation is the location ping published by drivers (and simulated drivers).
type DriverLocation struct {
	DriverID int64     `json:"driver_id"`
	EventID  uuid.UUID `json:"event_id"`
	Location LatLng    `json:"location"`
	Updated  time.Time `json:"updated"`
}
