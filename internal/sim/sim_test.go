package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
)

var (
	event  = models.LatLng{Lat: 34.68278, Lng: -82.83763}
	pickup = models.LatLng{Lat: 34.67752, Lng: -82.84026}
	resID  = uuid.MustParse("0b7c5c5e-8a51-4d57-9c4c-2f5bd3b4f1a1")
)

// fakeBackend mimics the dispatch backend: actions move the assignment that
// later pings report.
type fakeBackend struct {
	mu          sync.Mutex
	current     models.Assignment
	available   *models.Reservation
	afterAccept models.Assignment
	afterPickup models.Assignment
	afterDrop   models.Assignment
	pingErr     error
	acceptErr   error
	pings       []models.LatLng
	calls       map[string]int
}

func newFakeBackend() *fakeBackend { return &fakeBackend{calls: map[string]int{}} }

func (f *fakeBackend) Ping(_ context.Context, _ int64, loc models.LatLng) (models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ping"]++
	if f.pingErr != nil {
		return models.Assignment{}, f.pingErr
	}
	f.pings = append(f.pings, loc)
	return f.current, nil
}

func (f *fakeBackend) AvailableReservation(context.Context, int64) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["available"]++
	return f.available, nil
}

func (f *fakeBackend) AcceptReservation(context.Context, int64, uuid.UUID) (models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["accept"]++
	if f.acceptErr != nil {
		return models.Assignment{}, f.acceptErr
	}
	f.current, f.available = f.afterAccept, nil
	return f.current, nil
}

func (f *fakeBackend) ConfirmPickup(context.Context, int64) (models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["pickup"]++
	f.current = f.afterPickup
	return f.current, nil
}

func (f *fakeBackend) ConfirmDropoff(context.Context, int64) (models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["dropoff"]++
	f.current = f.afterDrop
	return f.current, nil
}

type leg struct{ from, to models.LatLng }

// fakeRouter returns a three point path ending at the destination.
type fakeRouter struct {
	legs []leg
	err  error
}

func (r *fakeRouter) Path(_ context.Context, from, to models.LatLng) ([]models.LatLng, error) {
	r.legs = append(r.legs, leg{from, to})
	if r.err != nil {
		return nil, r.err
	}
	mid := models.LatLng{Lat: (from.Lat + to.Lat) / 2, Lng: (from.Lng + to.Lng) / 2}
	return []models.LatLng{from, mid, to}, nil
}

type recordingSink struct {
	mu   sync.Mutex
	locs []models.DriverLocation
}

func (s *recordingSink) Publish(_ context.Context, loc models.DriverLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locs = append(s.locs, loc)
	return nil
}

func pickupStop() models.ReservationStop {
	return models.ReservationStop{ReservationID: resID, Location: pickup, PassengerCount: 1}
}

func newTestDriver(b Backend, r *fakeRouter, sink LocationSink, speed int) *Driver {
	return NewDriver(Account{Token: "t", DriverID: 7}, b, r, sink, Config{EventLocation: event, Speed: speed, Tick: time.Millisecond}, nil)
}

func TestDriverFullTrip(t *testing.T) {
	b := newFakeBackend()
	b.available = &models.Reservation{ID: resID, Stops: []models.Stop{{Location: pickup}}}
	b.afterAccept = models.Assignment{Dest: pickupStop()}
	b.afterPickup = models.Assignment{Dest: models.EventStop{ArrivalSeconds: 300}, PickedUp: []uuid.UUID{resID}}
	b.afterDrop = models.Assignment{}
	r := &fakeRouter{}
	sink := &recordingSink{}
	d := newTestDriver(b, r, sink, 2)
	ctx := context.Background()

	if s := d.Tick(ctx); s != StateEnRoute {
		t.Fatalf("tick 1: expected en route after accepting, got %s", s)
	}
	if b.calls["accept"] != 1 || len(r.legs) != 1 || r.legs[0] != (leg{event, pickup}) {
		t.Fatalf("tick 1: expected accept and a path from the event to the pickup, got %v %v", b.calls, r.legs)
	}

	if s := d.Tick(ctx); s != StateEnRoute {
		t.Fatalf("tick 2: got %s", s)
	}
	if len(d.Context().Path) != 1 {
		t.Fatalf("tick 2: expected two points consumed, %d left", len(d.Context().Path))
	}

	// last point consumed, driver is at the pickup and confirms it in the same tick
	if s := d.Tick(ctx); s != StateEnRoute {
		t.Fatalf("tick 3: got %s", s)
	}
	if b.calls["pickup"] != 1 || b.calls["dropoff"] != 0 {
		t.Fatalf("tick 3: expected one pickup, got %v", b.calls)
	}
	if got := r.legs[len(r.legs)-1]; got != (leg{pickup, event}) {
		t.Fatalf("tick 3: expected a path from the pickup to the event, got %+v", got)
	}
	if _, ok := d.Context().Dest.(models.EventStop); !ok {
		t.Fatalf("tick 3: expected event destination, got %T", d.Context().Dest)
	}

	// heading to the event with nothing queued: arrival is a dropoff
	d.Tick(ctx)
	d.Tick(ctx)
	if b.calls["dropoff"] != 1 {
		t.Fatalf("expected a dropoff at the event, got %v", b.calls)
	}
	if s := d.Tick(ctx); s != StateIdle {
		t.Fatalf("expected idle once the backend clears the destination, got %s", s)
	}

	if len(sink.locs) != 6 || sink.locs[0].Location != event || sink.locs[2].Location != pickup {
		t.Fatalf("unexpected published locations %+v", sink.locs)
	}
	if b.pings[2] != pickup {
		t.Fatalf("pings should follow the path, got %v", b.pings)
	}
}

func TestDriverWalksBackToEventAfterDropoff(t *testing.T) {
	b := newFakeBackend()
	b.current = models.Assignment{Dest: models.ReservationStop{ReservationID: resID, IsDropoff: true, Location: pickup}}
	b.afterDrop = models.Assignment{}
	r := &fakeRouter{}
	d := newTestDriver(b, r, nil, 1)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d.Tick(ctx)
	}
	if b.calls["dropoff"] != 1 {
		t.Fatalf("expected one dropoff, got %v", b.calls)
	}
	if len(r.legs) != 2 || r.legs[1] != (leg{pickup, event}) {
		t.Fatalf("expected a path from the dropoff back to the event, got %v", r.legs)
	}
	c := d.Context()
	if c.Last == nil || *c.Last != event {
		t.Fatalf("driver should end up at the event, last = %v", c.Last)
	}
	if c.State() != StateIdle || c.Path != nil {
		t.Fatalf("expected idle with no path left, got %s %v", c.State(), c.Path)
	}
	if b.calls["available"] == 0 {
		t.Fatalf("driver should look for work while walking back")
	}
}

func TestDriverPingFailureIsNoop(t *testing.T) {
	b := newFakeBackend()
	b.pingErr = errors.New("connection refused")
	d := newTestDriver(b, &fakeRouter{}, nil, 1)

	for i := 0; i < 3; i++ {
		if s := d.Tick(context.Background()); s != StateIdle {
			t.Fatalf("expected idle, got %s", s)
		}
	}
	if b.calls["ping"] != 3 || b.calls["available"] != 0 {
		t.Fatalf("expected only pings, got %v", b.calls)
	}
	if c := d.Context(); c.Last == nil || *c.Last != event {
		t.Fatalf("driver should stay at the event, got %+v", c.Last)
	}
}

func TestDriverAcceptRaceStaysIdle(t *testing.T) {
	b := newFakeBackend()
	b.available = &models.Reservation{ID: resID, Stops: []models.Stop{{Location: pickup}}}
	b.acceptErr = errors.New("graphql: reservation not available")
	r := &fakeRouter{}
	d := newTestDriver(b, r, nil, 1)

	if s := d.Tick(context.Background()); s != StateIdle {
		t.Fatalf("expected idle, got %s", s)
	}
	d.Tick(context.Background())
	if b.calls["accept"] != 2 || len(r.legs) != 0 {
		t.Fatalf("expected a retry on the next tick and no routing, got %v %v", b.calls, r.legs)
	}
	if d.Context().Path != nil {
		t.Fatalf("idle driver should have no path")
	}
}

func TestDriverLearnsDestinationFromPing(t *testing.T) {
	b := newFakeBackend()
	b.current = models.Assignment{Dest: pickupStop()}
	r := &fakeRouter{}
	d := newTestDriver(b, r, nil, 1)

	if s := d.Tick(context.Background()); s != StateEnRoute {
		t.Fatalf("expected en route, got %s", s)
	}
	if len(r.legs) != 1 || b.calls["available"] != 0 {
		t.Fatalf("expected one path request, got %v %v", r.legs, b.calls)
	}

	// backend re-serializes the same stop with a tiny drift: no new path
	moved := pickupStop()
	moved.Location.Lat += 1e-9
	b.current = models.Assignment{Dest: moved}
	d.Tick(context.Background())
	if len(r.legs) != 1 {
		t.Fatalf("same destination must not trigger rerouting, got %d paths", len(r.legs))
	}

	// a different reservation replaces the destination
	other := pickupStop()
	other.ReservationID = uuid.New()
	other.Location = models.LatLng{Lat: 34.69113, Lng: -82.83525}
	b.current = models.Assignment{Dest: other}
	d.Tick(context.Background())
	if len(r.legs) != 2 || r.legs[1].to != other.Location {
		t.Fatalf("expected a new path to the new destination, got %v", r.legs)
	}
}

func TestDriverRouteFailureRetries(t *testing.T) {
	b := newFakeBackend()
	b.current = models.Assignment{Dest: pickupStop()}
	r := &fakeRouter{err: errors.New("quota exceeded")}
	d := newTestDriver(b, r, nil, 1)

	d.Tick(context.Background())
	if d.Context().Path != nil {
		t.Fatalf("failed routing must leave the path unset")
	}
	r.err = nil
	d.Tick(context.Background())
	if len(d.Context().Path) != 3 || len(r.legs) != 2 {
		t.Fatalf("expected routing retried, got %v", r.legs)
	}
}

func TestIsPickup(t *testing.T) {
	cases := []struct {
		name string
		a    models.Assignment
		want bool
	}{
		{"rider pickup", models.Assignment{Dest: models.ReservationStop{}}, true},
		{"rider dropoff", models.Assignment{Dest: models.ReservationStop{IsDropoff: true}}, false},
		{"event with queue", models.Assignment{Dest: models.EventStop{}, Queue: []models.StopEstimation{models.ReservationStop{IsDropoff: true}}}, true},
		{"event empty queue", models.Assignment{Dest: models.EventStop{}}, false},
	}
	for _, c := range cases {
		if got := isPickup(c.a); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateEnRoute.String() != "en_route" || StateArrived.String() != "arrived" {
		t.Fatalf("unexpected state names")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	b := newFakeBackend()
	d := newTestDriver(b, &fakeRouter{}, nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls["ping"] < 2 {
		t.Fatalf("expected several ticks, got %d", b.calls["ping"])
	}
}

func TestSimulationRunsEveryDriver(t *testing.T) {
	backends := map[int64]*fakeBackend{}
	var mu sync.Mutex
	s := &Simulation{
		Config: Config{EventLocation: event, Speed: 1, Tick: time.Millisecond},
		Router: &fakeRouter{},
		Backend: func(a Account) Backend {
			mu.Lock()
			defer mu.Unlock()
			b := newFakeBackend()
			backends[a.DriverID] = b
			return b
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if err := s.Run(ctx, []Account{{DriverID: 1}, {DriverID: 2}, {DriverID: 3}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(backends) != 3 {
		t.Fatalf("expected 3 drivers, got %d", len(backends))
	}
	for id, b := range backends {
		if b.calls["ping"] == 0 {
			t.Fatalf("driver %d never pinged", id)
		}
	}
	if err := s.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error with no drivers")
	}
}

type fakeRegistrar struct {
	retired  []string
	renamed  map[string]string
	attached []string
}

func (f *fakeRegistrar) EventDrivers(context.Context) ([]string, error) {
	return []string{"+10000001000", "+19999999999"}, nil
}

func (f *fakeRegistrar) RetireDriver(_ context.Context, phone string) error {
	if phone == "+19999999999" {
		return errors.New("not found")
	}
	f.retired = append(f.retired, phone)
	return nil
}

func (f *fakeRegistrar) Login(_ context.Context, phone string) (string, error) {
	return "token-" + phone, nil
}

func (f *fakeRegistrar) Rename(_ context.Context, token, name string) error {
	f.renamed[token] = name
	return nil
}

func (f *fakeRegistrar) AttachDriver(_ context.Context, phone string) (int64, error) {
	f.attached = append(f.attached, phone)
	return int64(100 + len(f.attached)), nil
}

func TestProvision(t *testing.T) {
	reg := &fakeRegistrar{renamed: map[string]string{}}
	accts, err := Provision(context.Background(), reg, 2, nil)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if len(reg.retired) != 1 {
		t.Fatalf("expected one driver retired, got %v", reg.retired)
	}
	if len(accts) != 2 || accts[0].DriverID != 101 || accts[1].Token != "token-+10000001001" {
		t.Fatalf("unexpected accounts %+v", accts)
	}
	if reg.renamed["token-+10000001000"] != "Driver 0" {
		t.Fatalf("unexpected names %v", reg.renamed)
	}
	if Phone(0) != "+10000001000" || Phone(5) != "+10000001005" {
		t.Fatalf("unexpected phone format")
	}
}
