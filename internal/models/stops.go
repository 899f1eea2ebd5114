package models

import "github.com/google/uuid"

// StopEstimation is what the dispatch backend reports a driver is heading
// to. It is either an EventStop or a ReservationStop.
type StopEstimation interface {
	stopEstimation()
}

// EventStop is the event venue itself.
type EventStop struct {
	ArrivalSeconds float64 `json:"arrival_seconds"`
}

// ReservationStop is a rider's pickup or dropoff location.
type ReservationStop struct {
	ReservationID  uuid.UUID `json:"reservation_id"`
	IsDropoff      bool      `json:"is_dropoff"`
	Location       LatLng    `json:"location"`
	Address        string    `json:"address"`
	PassengerCount int       `json:"passenger_count"`
}

func (EventStop) stopEstimation()       {}
func (ReservationStop) stopEstimation() {}

// SameStop reports whether a and b name the same destination. Locations are
// compared with DefaultEpsilon rather than exact equality.
func SameStop(a, b StopEstimation) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case EventStop:
		_, ok := b.(EventStop)
		return ok
	case ReservationStop:
		y, ok := b.(ReservationStop)
		return ok && x.ReservationID == y.ReservationID && x.IsDropoff == y.IsDropoff &&
			x.Location.Near(y.Location, DefaultEpsilon)
	default:
		return false
	}
}

// Assignment is the backend's view of a driver after a ping or an action.
type Assignment struct {
	Dest     StopEstimation   `json:"-"`
	Queue    []StopEstimation `json:"-"`
	PickedUp []uuid.UUID      `json:"picked_up"`
}
