package eta

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// Client returns the travel time between two stops in seconds.
type Client interface {
	EstimateSeconds(ctx context.Context, from, to models.Stop) (float64, error)
}

// Estimator annotates driver routes with cumulative ETAs.
type Estimator struct {
	Client  Client
	Locator geo.Locator
}

// Estimate computes ETAs for route. The destination is timed from the
// driver's current location; every queued stop is chained from the stop
// before it, never from the driver's live position.
func (e *Estimator) Estimate(ctx context.Context, route models.DriverRoute) (models.DriverRouteEstimate, error) {
	out := models.DriverRouteEstimate{DriverID: route.DriverID, Queue: []models.StopETA{}}
	if route.Dest == nil {
		return out, nil
	}
	origin, err := e.Locator.Locate(ctx, route.DriverID)
	if err != nil {
		return out, fmt.Errorf("locate driver %d: %w", route.DriverID, err)
	}
	total, err := e.Client.EstimateSeconds(ctx, origin, *route.Dest)
	if err != nil {
		return out, fmt.Errorf("driver %d to %q: %w", route.DriverID, route.Dest.Address, err)
	}
	out.Dest = &models.StopETA{Stop: *route.Dest, ETASeconds: total}

	prev := *route.Dest
	for _, stop := range route.Queue {
		leg, err := e.Client.EstimateSeconds(ctx, prev, stop)
		if err != nil {
			return out, fmt.Errorf("%q to %q: %w", prev.Address, stop.Address, err)
		}
		total += leg
		out.Queue = append(out.Queue, models.StopETA{Stop: stop, ETASeconds: total})
		prev = stop
	}
	return out, nil
}

// EstimateAll estimates every route and returns them as a snapshot.
func (e *Estimator) EstimateAll(ctx context.Context, routes []models.DriverRoute) (models.Snapshot, error) {
	snap := models.NewSnapshot()
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return snap, err
		}
		est, err := e.Estimate(ctx, r)
		if err != nil {
			return snap, err
		}
		snap.Drivers[r.DriverID] = est
	}
	return snap, nil
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Stop) string {
	return fmtCoord(a.Location) + "->" + fmtCoord(b.Location)
}

func fmtCoord(c models.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Stop) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.Stop, v float64) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// CachedClient answers from Cache before asking Next.
type CachedClient struct {
	Next  Client
	Cache *Cache
}

func (c *CachedClient) EstimateSeconds(ctx context.Context, from, to models.Stop) (float64, error) {
	if v, ok := c.Cache.Get(from, to); ok {
		return v, nil
	}
	v, err := c.Next.EstimateSeconds(ctx, from, to)
	if err != nil {
		return 0, err
	}
	c.Cache.Set(from, to, v)
	return v, nil
}

// SpeedClient is the naive estimator: great-circle distance over a constant speed.
type SpeedClient struct {
	SpeedMps float64
}

func (s SpeedClient) EstimateSeconds(_ context.Context, from, to models.Stop) (float64, error) {
	return EstimateSeconds(from.Location, to.Location, s.SpeedMps), nil
}

// Naive ETA: distance / speed_mps. In prod use a routing engine.
func EstimateSeconds(from, to models.LatLng, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = 8.0 // ~28.8 km/h default city speed
	}
	return geo.HaversineKm(from, to) * 1000 / speedMps
}
