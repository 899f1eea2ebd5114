package matcher

import (
	"time"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// Candidate is a driver as seen by the scoring function: its estimated
// route plus where it is right now.
type Candidate struct {
	Route    models.DriverRouteEstimate
	Location models.LatLng
}

// ScoreFunc rates how desirable it is for a driver to take r next. pool is
// the full set of pending reservations and is used only for normalization;
// now is the reading shared by every reservation in one pass.
type ScoreFunc func(c Candidate, r models.Reservation, pool []models.Reservation, now time.Time) float64

// Distance is how far, in km, the driver is from r's first stop. A driver
// with queued stops is measured from the last of them.
func Distance(c Candidate, r models.Reservation) float64 {
	from := c.Location
	if last, ok := c.Route.LastStop(); ok {
		from = last.Location
	}
	return geo.HaversineKm(from, r.Pickup().Location)
}

func waited(r models.Reservation, now time.Time) float64 {
	if d := now.Sub(r.MadeAt).Seconds(); d > 0 {
		return d
	}
	return 0
}

// Components returns the normalized wait and proximity of r against pool,
// both in [0,1]. With no spread in the pool the wait component is 0 and the
// proximity component is 1.
func Components(c Candidate, r models.Reservation, pool []models.Reservation, now time.Time) (wait, proximity float64) {
	var maxWait, maxDist float64
	for _, p := range pool {
		if w := waited(p, now); w > maxWait {
			maxWait = w
		}
		if d := Distance(c, p); d > maxDist {
			maxDist = d
		}
	}
	if maxWait > 0 {
		wait = clamp(waited(r, now) / maxWait)
	}
	proximity = 1
	if maxDist > 0 {
		proximity = clamp(1 - Distance(c, r)/maxDist)
	}
	return wait, proximity
}

// Score blends wait-time fairness and proximity: weight 0 favours the
// longest-waiting reservation, weight 1 the closest one.
func Score(c Candidate, r models.Reservation, pool []models.Reservation, weight float64, now time.Time) float64 {
	w := clamp(weight)
	wait, proximity := Components(c, r, pool, now)
	return (1-w)*wait + w*proximity
}

// Weighted binds Score to a weight.
func Weighted(weight float64) ScoreFunc {
	return func(c Candidate, r models.Reservation, pool []models.Reservation, now time.Time) float64 {
		return Score(c, r, pool, weight, now)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
