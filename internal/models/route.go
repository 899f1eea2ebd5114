package models

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnreachableQueue = errors.New("route has queued stops but no destination")

// DriverRoute is the assignment state of one driver: where it is heading now
// and the ordered backlog after that.
type DriverRoute struct {
	DriverID int64  `json:"driver_id"`
	Dest     *Stop  `json:"dest"`
	Queue    []Stop `json:"queue"`
}

func (r DriverRoute) Busy() bool { return r.Dest != nil }

func (r DriverRoute) Validate() error {
	if r.Dest == nil && len(r.Queue) > 0 {
		return fmt.Errorf("driver %d: %w", r.DriverID, ErrUnreachableQueue)
	}
	return nil
}

// WithReservation returns a copy of the route with res appended. An idle
// driver takes the first stop as its destination; a busy one keeps its
// destination and queues every stop.
func (r DriverRoute) WithReservation(res Reservation) DriverRoute {
	out := DriverRoute{DriverID: r.DriverID}
	stops := res.Stops
	if r.Dest != nil {
		d := *r.Dest
		out.Dest = &d
	} else if len(stops) > 0 {
		d := stops[0]
		out.Dest = &d
		stops = stops[1:]
	}
	out.Queue = make([]Stop, 0, len(r.Queue)+len(stops))
	out.Queue = append(out.Queue, r.Queue...)
	out.Queue = append(out.Queue, stops...)
	return out
}

type StopETA struct {
	Stop       Stop    `json:"stop"`
	ETASeconds float64 `json:"eta_seconds"`
}

// DriverRouteEstimate is a DriverRoute annotated with cumulative ETAs.
type DriverRouteEstimate struct {
	DriverID int64     `json:"driver_id"`
	Dest     *StopETA  `json:"dest"`
	Queue    []StopETA `json:"queue"`
}

// Length is the time until the driver finishes everything already assigned.
func (e DriverRouteEstimate) Length() float64 {
	if n := len(e.Queue); n > 0 {
		return e.Queue[n-1].ETASeconds
	}
	if e.Dest != nil {
		return e.Dest.ETASeconds
	}
	return 0
}

// Route strips the estimates.
func (e DriverRouteEstimate) Route() DriverRoute {
	r := DriverRoute{DriverID: e.DriverID, Queue: make([]Stop, 0, len(e.Queue))}
	if e.Dest != nil {
		d := e.Dest.Stop
		r.Dest = &d
	}
	for _, q := range e.Queue {
		r.Queue = append(r.Queue, q.Stop)
	}
	return r
}

// LastStop is where the driver will be once its queue is drained, if it has a queue.
func (e DriverRouteEstimate) LastStop() (Stop, bool) {
	if n := len(e.Queue); n > 0 {
		return e.Queue[n-1].Stop, true
	}
	return Stop{}, false
}

func (e DriverRouteEstimate) clone() DriverRouteEstimate {
	out := DriverRouteEstimate{DriverID: e.DriverID}
	if e.Dest != nil {
		d := *e.Dest
		out.Dest = &d
	}
	out.Queue = append([]StopETA(nil), e.Queue...)
	return out
}

// Snapshot is every driver's route at one point in time. Snapshots are
// treated as values: With returns a new snapshot and never touches the
// receiver.
type Snapshot struct {
	Drivers map[int64]DriverRouteEstimate `json:"drivers"`
}

func NewSnapshot(estimates ...DriverRouteEstimate) Snapshot {
	s := Snapshot{Drivers: make(map[int64]DriverRouteEstimate, len(estimates))}
	for _, e := range estimates {
		s.Drivers[e.DriverID] = e.clone()
	}
	return s
}

func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Drivers: make(map[int64]DriverRouteEstimate, len(s.Drivers))}
	for id, e := range s.Drivers {
		out.Drivers[id] = e.clone()
	}
	return out
}

func (s Snapshot) With(e DriverRouteEstimate) Snapshot {
	out := s.Clone()
	out.Drivers[e.DriverID] = e.clone()
	return out
}

// DriverIDs returns the driver ids in ascending order.
func (s Snapshot) DriverIDs() []int64 {
	ids := make([]int64, 0, len(s.Drivers))
	for id := range s.Drivers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Makespan is the longest route length in the snapshot.
func (s Snapshot) Makespan() float64 {
	var max float64
	for _, e := range s.Drivers {
		if l := e.Length(); l > max {
			max = l
		}
	}
	return max
}
