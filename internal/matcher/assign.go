package matcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// ErrNoDrivers is returned when reservations are pending but no driver is known.
var ErrNoDrivers = errors.New("no drivers available")

// RouteEstimator annotates a route with ETAs; *eta.Estimator satisfies it.
type RouteEstimator interface {
	Estimate(ctx context.Context, route models.DriverRoute) (models.DriverRouteEstimate, error)
}

// Placement records one step of an assignment pass.
type Placement struct {
	DriverID      int64     `json:"driver_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Score         float64   `json:"score"`
}

// Result is the outcome of one assignment pass.
type Result struct {
	Placements []Placement `json:"placements"`
}

// Reservations returns the ids placed during the pass, in order.
func (r Result) Reservations() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Placements))
	for _, p := range r.Placements {
		ids = append(ids, p.ReservationID)
	}
	return ids
}

// Engine greedily assigns pending reservations to drivers.
type Engine struct {
	Estimator RouteEstimator
	Locator   geo.Locator
	Score     ScoreFunc
	// Clock is read once per pass; nil means time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Assign places every reservation in pool. Each step takes the driver with
// the shortest route (lowest id on ties), gives it the best scoring
// reservation (lowest id on ties), appends it to that driver's route and
// re-estimates that driver only. Neither snap nor pool is modified.
func (e *Engine) Assign(ctx context.Context, snap models.Snapshot, pool []models.Reservation) (models.Snapshot, Result, error) {
	var res Result
	if len(pool) == 0 {
		return snap, res, nil
	}
	if len(snap.Drivers) == 0 {
		return snap, res, ErrNoDrivers
	}
	for _, r := range pool {
		if err := r.Validate(); err != nil {
			return snap, res, fmt.Errorf("reservation %s: %w", r.ID, err)
		}
	}

	now := e.now()
	remaining := append([]models.Reservation(nil), pool...)
	cur := snap.Clone()
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return snap, res, err
		}
		driver := leastLoaded(cur)
		loc, err := e.Locator.Locate(ctx, driver.DriverID)
		if err != nil {
			return snap, res, fmt.Errorf("locate driver %d: %w", driver.DriverID, err)
		}
		idx, score := e.best(Candidate{Route: driver, Location: loc.Location}, remaining, now)
		chosen := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		est, err := e.Estimator.Estimate(ctx, driver.Route().WithReservation(chosen))
		if err != nil {
			return snap, res, fmt.Errorf("assign %s to driver %d: %w", chosen.ID, driver.DriverID, err)
		}
		cur = cur.With(est)
		res.Placements = append(res.Placements, Placement{DriverID: driver.DriverID, ReservationID: chosen.ID, Score: score})
		e.logger().Debug("reservation placed",
			"driver_id", driver.DriverID,
			"reservation_id", chosen.ID.String(),
			"score", score,
			"route_seconds", est.Length(),
		)
	}
	return cur, res, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func leastLoaded(s models.Snapshot) models.DriverRouteEstimate {
	var out models.DriverRouteEstimate
	first := true
	for _, id := range s.DriverIDs() {
		d := s.Drivers[id]
		if first || d.Length() < out.Length() {
			out, first = d, false
		}
	}
	return out
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

func (e *Engine) best(c Candidate, pool []models.Reservation, now time.Time) (int, float64) {
	bestIdx, bestScore := -1, 0.0
	for i, r := range pool {
		s := e.Score(c, r, pool, now)
		if bestIdx < 0 || s > bestScore || (s == bestScore && bytes.Compare(r.ID[:], pool[bestIdx].ID[:]) < 0) {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx, bestScore
}

// EstimateRoutes builds a snapshot from bare routes, rejecting any route
// whose queue cannot be reached.
func (e *Engine) EstimateRoutes(ctx context.Context, routes []models.DriverRoute) (models.Snapshot, error) {
	snap := models.NewSnapshot()
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return snap, err
		}
		est, err := e.Estimator.Estimate(ctx, r)
		if err != nil {
			return snap, err
		}
		snap.Drivers[r.DriverID] = est
	}
	return snap, nil
}
