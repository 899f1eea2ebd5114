package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

const earthRadiusKm = 6371.0

var ErrUnknownDriver = errors.New("driver location unknown")

// Locator resolves a driver's current position. The returned stop carries
// an address label so lookup-table ETAs can key on it.
type Locator interface {
	Locate(ctx context.Context, driverID int64) (models.Stop, error)
}

// Store is a Locator that can also record location pings.
type Store interface {
	Locator
	Upsert(ctx context.Context, d models.DriverLocation) error
}

// Index is an in-memory Locator fed by location pings.
type Index struct {
	mu      sync.RWMutex
	drivers map[int64]models.DriverLocation
	label   string
}

// NewIndex returns an empty index; located stops are labelled with label.
func NewIndex(label string) *Index {
	return &Index{drivers: make(map[int64]models.DriverLocation), label: label}
}

func (g *Index) Upsert(_ context.Context, d models.DriverLocation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d.Updated.IsZero() {
		d.Updated = time.Now()
	}
	g.drivers[d.DriverID] = d
	return nil
}

func (g *Index) Locate(_ context.Context, driverID int64) (models.Stop, error) {
	g.mu.RLock()
	d, ok := g.drivers[driverID]
	g.mu.RUnlock()
	if !ok {
		return models.Stop{}, fmt.Errorf("driver %d: %w", driverID, ErrUnknownDriver)
	}
	return models.Stop{Location: d.Location, Address: g.label}, nil
}

// Len is the number of drivers that have reported a location.
func (g *Index) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.drivers)
}

// Fixed places every driver at the same stop.
type Fixed models.Stop

func (f Fixed) Locate(context.Context, int64) (models.Stop, error) { return models.Stop(f), nil }

type fallback struct {
	next Locator
	def  models.Stop
}

// WithFallback answers with def when next does not know the driver.
func WithFallback(next Locator, def models.Stop) Locator {
	return &fallback{next: next, def: def}
}

func (f *fallback) Locate(ctx context.Context, driverID int64) (models.Stop, error) {
	s, err := f.next.Locate(ctx, driverID)
	if errors.Is(err, ErrUnknownDriver) {
		return f.def, nil
	}
	return s, err
}

// HaversineKm is the great-circle distance between two points on a
// spherical earth.
func HaversineKm(a, b models.LatLng) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
