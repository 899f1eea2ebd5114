package matcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/storage"
)

// Dispatcher pushes a driver's updated route to wherever the driver listens.
type Dispatcher interface {
	Offer(driverID int64, est models.DriverRouteEstimate) error
}

// Service runs assignment passes over a store. Passes are serialized so a
// pass never observes another pass's partial result.
type Service struct {
	Engine   *Engine
	Store    storage.DispatchStore
	Dispatch Dispatcher
	Logger   *slog.Logger

	mu sync.Mutex
}

// RegisterRoute estimates route and stores it as the driver's current route.
func (s *Service) RegisterRoute(ctx context.Context, route models.DriverRoute) (models.DriverRouteEstimate, error) {
	if err := route.Validate(); err != nil {
		return models.DriverRouteEstimate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	est, err := s.Engine.Estimator.Estimate(ctx, route)
	if err != nil {
		return est, err
	}
	s.Store.SetRoute(est)
	return est, nil
}

func (s *Service) AddReservation(r models.Reservation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.Store.AddReservation(r); err != nil {
		return err
	}
	observability.PendingPool.Set(float64(len(s.Store.Pending())))
	return nil
}

// RunPass assigns the whole pending pool and commits the result.
func (s *Service) RunPass(ctx context.Context) (models.Snapshot, Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap := s.Store.Snapshot()
	pool := s.Store.Pending()
	next, res, err := s.Engine.Assign(ctx, snap, pool)
	observability.AssignLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AssignPasses.WithLabelValues("error").Inc()
		s.logger().Error("assignment pass failed", "error", err, "pending", len(pool), "drivers", len(snap.Drivers))
		return snap, res, err
	}
	s.Store.Commit(next, res.Reservations())
	observability.AssignPasses.WithLabelValues("ok").Inc()
	observability.PlacementsTotal.Add(float64(len(res.Placements)))
	observability.PendingPool.Set(float64(len(s.Store.Pending())))

	notified := make(map[int64]bool, len(res.Placements))
	for _, p := range res.Placements {
		if notified[p.DriverID] || s.Dispatch == nil {
			continue
		}
		notified[p.DriverID] = true
		if err := s.Dispatch.Offer(p.DriverID, next.Drivers[p.DriverID]); err != nil {
			// best-effort: the driver still sees the route on its next ping
			observability.RouteOffersError.Inc()
			s.logger().Warn("route offer failed", "driver_id", p.DriverID, "error", err)
		}
	}
	s.logger().Info("assignment pass complete",
		"placed", len(res.Placements),
		"makespan_seconds", next.Makespan(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return next, res, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// RunEvery runs a pass each interval while reservations are pending, until
// ctx is cancelled.
func (s *Service) RunEvery(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if len(s.Store.Pending()) == 0 {
			continue
		}
		if _, _, err := s.RunPass(ctx); err != nil && ctx.Err() == nil {
			s.logger().Debug("scheduled pass skipped", "error", err)
		}
	}
}
