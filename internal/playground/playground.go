// Package playground runs the assignment engine over a fixed campus
// scenario so weights can be compared without a backend.
package playground

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/eta"
	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/models"
)

var (
	TigerBlvd = models.Stop{Address: "1108 Tiger Blvd", Location: models.LatLng{Lat: 34.69113345677412, Lng: -82.8352499055969}}
	Benet     = models.Stop{Address: "Benet Hall", Location: models.LatLng{Lat: 34.67752275452441, Lng: -82.84026107839175}}
	Douthit   = models.Stop{Address: "Douthit Hills Hub", Location: models.LatLng{Lat: 34.68054137735956, Lng: -82.82995548243953}}
	CSP       = models.Stop{Address: "CSP", Location: models.LatLng{Lat: 34.68278184247956, Lng: -82.83762674581469}}
)

type Scenario struct {
	Routes       []models.DriverRoute
	Reservations []models.Reservation
	Engine       *matcher.Engine
}

// NewScenario is two idle drivers waiting at Tiger Blvd and three
// reservations to or from the event at CSP.
func NewScenario(weight float64, now time.Time) *Scenario {
	driver := models.Stop{Address: eta.DriverOrigin, Location: TigerBlvd.Location}
	locator := geo.Fixed(driver)
	day := func(d int) time.Time { return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC) }
	return &Scenario{
		Routes: []models.DriverRoute{{DriverID: 1}, {DriverID: 2}},
		Reservations: []models.Reservation{
			{ID: uuid.MustParse("4484420b-0444-4d59-a41f-a3f89030a2a4"), MadeAt: day(18), Stops: []models.Stop{Benet, CSP}, PassengerCount: 1},
			{ID: uuid.MustParse("a68be3b6-9120-407f-83f9-0b06c31499e5"), MadeAt: day(19), Stops: []models.Stop{Douthit, CSP}, PassengerCount: 1},
			{ID: uuid.MustParse("c7eae67b-680f-4e78-a4b3-93dc6671b22c"), MadeAt: day(20), Stops: []models.Stop{CSP, Benet}, IsDropoff: true, PassengerCount: 1},
		},
		Engine: &matcher.Engine{
			Estimator: &eta.Estimator{Client: eta.DefaultTable(), Locator: locator},
			Locator:   locator,
			Score:     matcher.Weighted(weight),
			Clock:     func() time.Time { return now },
		},
	}
}

func (s *Scenario) Assign(ctx context.Context) (models.Snapshot, matcher.Result, error) {
	snap, err := s.Engine.EstimateRoutes(ctx, s.Routes)
	if err != nil {
		return snap, matcher.Result{}, err
	}
	return s.Engine.Assign(ctx, snap, s.Reservations)
}

func (s *Scenario) Sweep(ctx context.Context, steps int, now time.Time) ([]matcher.SweepPoint, error) {
	snap, err := s.Engine.EstimateRoutes(ctx, s.Routes)
	if err != nil {
		return nil, err
	}
	return s.Engine.Sweep(ctx, snap, s.Reservations, steps, now)
}

// Report prints every driver's route and, if given, the weight sweep.
func Report(w io.Writer, snap models.Snapshot, res matcher.Result, points []matcher.SweepPoint) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DRIVER\tSTOP\tETA (min)")
	for _, id := range snap.DriverIDs() {
		d := snap.Drivers[id]
		if d.Dest == nil {
			fmt.Fprintf(tw, "%d\t(idle)\t\n", id)
			continue
		}
		for _, s := range append([]models.StopETA{*d.Dest}, d.Queue...) {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\n", id, s.Stop.Address, s.ETASeconds/60)
		}
	}
	fmt.Fprintf(tw, "\nplacements\t%d\t\nmakespan\t\t%.1f\n", len(res.Placements), snap.Makespan()/60)
	if len(points) > 0 {
		fmt.Fprintln(tw, "\nWEIGHT\tMAKESPAN (min)\t")
		for _, p := range points {
			fmt.Fprintf(tw, "%.2f\t%.1f\t\n", p.Weight, p.Makespan/60)
		}
	}
	return tw.Flush()
}
