package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/route"
)

// Backend is the dispatch backend as seen by one simulated driver.
type Backend interface {
	Ping(ctx context.Context, driverID int64, loc models.LatLng) (models.Assignment, error)
	AvailableReservation(ctx context.Context, driverID int64) (*models.Reservation, error)
	AcceptReservation(ctx context.Context, driverID int64, reservationID uuid.UUID) (models.Assignment, error)
	ConfirmPickup(ctx context.Context, driverID int64) (models.Assignment, error)
	ConfirmDropoff(ctx context.Context, driverID int64) (models.Assignment, error)
}

// LocationSink receives every location a simulated driver reports.
type LocationSink interface {
	Publish(ctx context.Context, loc models.DriverLocation) error
}

type State int

const (
	StateIdle State = iota
	StateEnRoute
	StateArrived
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnRoute:
		return "en_route"
	case StateArrived:
		return "arrived"
	}
	return "unknown"
}

type Account struct {
	Token    string `json:"token"`
	DriverID int64  `json:"driver_id"`
}

// DriverContext is everything one simulated driver remembers between ticks.
// A nil Path means no path has been computed for Dest yet; an empty one means
// the driver has reached Dest.
type DriverContext struct {
	Account Account
	Dest    models.StopEstimation
	Path    []models.LatLng
	Last    *models.LatLng
}

func (c DriverContext) State() State {
	switch {
	case c.Dest == nil:
		return StateIdle
	case c.Path != nil && len(c.Path) == 0:
		return StateArrived
	}
	return StateEnRoute
}

type Config struct {
	EventID       uuid.UUID
	EventLocation models.LatLng
	// Speed is the number of path points consumed per tick.
	Speed int
	Tick  time.Duration
}

// Driver runs the ping / accept / pickup / dropoff loop of one simulated
// driver. A Driver is not safe for concurrent use; each goroutine owns one.
type Driver struct {
	dc      DriverContext
	backend Backend
	router  route.Provider
	sink    LocationSink
	cfg     Config
	logger  *slog.Logger
}

func NewDriver(acct Account, backend Backend, router route.Provider, sink LocationSink, cfg Config, logger *slog.Logger) *Driver {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		dc:      DriverContext{Account: acct},
		backend: backend,
		router:  router,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With("driver_id", acct.DriverID),
	}
}

// Context returns a copy of the driver's current state.
func (d *Driver) Context() DriverContext {
	out := d.dc
	out.Path = append([]models.LatLng(nil), d.dc.Path...)
	if d.dc.Path != nil && len(d.dc.Path) == 0 {
		out.Path = []models.LatLng{}
	}
	return out
}

// Run ticks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	t := time.NewTicker(d.cfg.Tick)
	defer t.Stop()
	for {
		d.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tick performs one loop iteration and returns the resulting state. Backend
// and routing failures are logged and end the iteration early; the same
// local state is retried on the next tick.
func (d *Driver) Tick(ctx context.Context) State {
	loc := d.nextLocation()
	defer func() {
		l := loc
		d.dc.Last = &l
		observability.SimTicks.WithLabelValues(d.dc.State().String()).Inc()
	}()

	d.publish(ctx, loc)

	a, err := d.backend.Ping(ctx, d.dc.Account.DriverID, loc)
	if err != nil {
		d.fail("ping", err)
		return d.dc.State()
	}

	if a.Dest == nil {
		// An idle driver keeps walking whatever path it has left, such as
		// the way back to the event after a dropoff.
		d.dc.Dest = nil
		if len(d.dc.Path) == 0 {
			d.dc.Path = nil
		}
		d.lookForWork(ctx, loc)
		return d.dc.State()
	}

	if !models.SameStop(a.Dest, d.dc.Dest) {
		d.dc.Dest, d.dc.Path = a.Dest, nil
	}
	switch {
	case d.dc.Path == nil:
		d.routeTo(ctx, loc)
	case len(d.dc.Path) == 0:
		d.arrive(ctx, loc, a)
	}
	return d.dc.State()
}

// nextLocation pops Speed points off the path. Without a path the driver
// stays where it was, or at the event if it has never moved.
func (d *Driver) nextLocation() models.LatLng {
	if n := len(d.dc.Path); n > 0 {
		k := d.cfg.Speed
		if k > n {
			k = n
		}
		p := d.dc.Path[k-1]
		d.dc.Path = d.dc.Path[k:]
		return p
	}
	if d.dc.Last != nil {
		return *d.dc.Last
	}
	return d.cfg.EventLocation
}

func (d *Driver) publish(ctx context.Context, loc models.LatLng) {
	if d.sink == nil {
		return
	}
	err := d.sink.Publish(ctx, models.DriverLocation{
		DriverID: d.dc.Account.DriverID,
		EventID:  d.cfg.EventID,
		Location: loc,
		Updated:  time.Now().UTC(),
	})
	if err != nil {
		d.fail("publish", err)
	}
}

func (d *Driver) lookForWork(ctx context.Context, loc models.LatLng) {
	res, err := d.backend.AvailableReservation(ctx, d.dc.Account.DriverID)
	if err != nil {
		d.fail("available_reservation", err)
		return
	}
	if res == nil {
		return
	}
	a, err := d.backend.AcceptReservation(ctx, d.dc.Account.DriverID, res.ID)
	if err != nil {
		// usually another driver took it first
		d.logger.Info("could not accept reservation", "reservation_id", res.ID.String(), "error", err)
		observability.SimActions.WithLabelValues("accept_failed").Inc()
		return
	}
	observability.SimActions.WithLabelValues("accept").Inc()
	d.logger.Info("reservation accepted", "reservation_id", res.ID.String())
	d.dc.Dest, d.dc.Path = a.Dest, nil
	if a.Dest != nil {
		d.routeTo(ctx, loc)
	}
}

// arrive confirms the pickup or dropoff at the current destination.
func (d *Driver) arrive(ctx context.Context, loc models.LatLng, a models.Assignment) {
	var (
		next   models.Assignment
		err    error
		action string
	)
	if isPickup(a) {
		action = "pickup"
		next, err = d.backend.ConfirmPickup(ctx, d.dc.Account.DriverID)
	} else {
		action = "dropoff"
		next, err = d.backend.ConfirmDropoff(ctx, d.dc.Account.DriverID)
	}
	if err != nil {
		d.fail("confirm_"+action, err)
		return
	}
	observability.SimActions.WithLabelValues(action).Inc()
	d.logger.Info("stop completed", "action", action)

	dest := next.Dest
	if dest == nil && action == "dropoff" {
		dest = models.EventStop{}
	}
	d.dc.Dest, d.dc.Path = dest, nil
	if dest != nil {
		d.routeTo(ctx, loc)
	}
}

// isPickup: heading to a rider who is not being dropped off, or heading to
// the event with riders still queued.
func isPickup(a models.Assignment) bool {
	switch dest := a.Dest.(type) {
	case models.ReservationStop:
		return !dest.IsDropoff
	case models.EventStop:
		return len(a.Queue) > 0
	}
	return false
}

func (d *Driver) routeTo(ctx context.Context, from models.LatLng) {
	to := d.destLocation(d.dc.Dest)
	path, err := d.router.Path(ctx, from, to)
	if err != nil {
		d.fail("route", err)
		return
	}
	if path == nil {
		path = []models.LatLng{}
	}
	d.dc.Path = path
	d.logger.Debug("path computed", "points", len(path))
}

func (d *Driver) destLocation(dest models.StopEstimation) models.LatLng {
	if rs, ok := dest.(models.ReservationStop); ok {
		return rs.Location
	}
	return d.cfg.EventLocation
}

func (d *Driver) fail(op string, err error) {
	observability.SimBackendErrors.WithLabelValues(op).Inc()
	d.logger.Warn("simulation call failed", "op", op, "error", err)
}
