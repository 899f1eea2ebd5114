package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/example/ride-dispatch/internal/route"
)

// Simulation runs many independent drivers against one backend.
type Simulation struct {
	Config  Config
	Router  route.Provider
	Sink    LocationSink
	Backend func(Account) Backend
	Logger  *slog.Logger
}

// Run starts one goroutine per account and blocks until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, accounts []Account) error {
	if len(accounts) == 0 {
		return errors.New("no drivers to simulate")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("simulation starting", "drivers", len(accounts), "tick", s.Config.Tick.String(), "speed", s.Config.Speed)

	g, ctx := errgroup.WithContext(ctx)
	for _, acct := range accounts {
		d := NewDriver(acct, s.Backend(acct), s.Router, s.Sink, s.Config, logger)
		g.Go(func() error { return d.Run(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("simulation stopped")
		return nil
	}
	return err
}

// Registrar performs the backend calls needed to create simulated drivers.
type Registrar interface {
	EventDrivers(ctx context.Context) ([]string, error)
	RetireDriver(ctx context.Context, phone string) error
	Login(ctx context.Context, phone string) (string, error)
	Rename(ctx context.Context, token, name string) error
	AttachDriver(ctx context.Context, phone string) (int64, error)
}

// Phone is the login of the i-th simulated driver.
func Phone(i int) string { return fmt.Sprintf("+1000000%d", i+1000) }

// Provision retires the event's current drivers and creates count fresh
// ones. A driver that cannot be retired is skipped; any failure creating a
// new driver aborts.
func Provision(ctx context.Context, reg Registrar, count int, logger *slog.Logger) ([]Account, error) {
	if logger == nil {
		logger = slog.Default()
	}
	old, err := reg.EventDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	logger.Info("removing old drivers", "count", len(old))
	for _, phone := range old {
		if err := reg.RetireDriver(ctx, phone); err != nil {
			logger.Warn("could not remove driver", "phone", phone, "error", err)
		}
	}

	out := make([]Account, 0, count)
	for i := 0; i < count; i++ {
		phone := Phone(i)
		token, err := reg.Login(ctx, phone)
		if err != nil {
			return out, fmt.Errorf("login %s: %w", phone, err)
		}
		if err := reg.Rename(ctx, token, fmt.Sprintf("Driver %d", i)); err != nil {
			return out, fmt.Errorf("rename %s: %w", phone, err)
		}
		id, err := reg.AttachDriver(ctx, phone)
		if err != nil {
			return out, fmt.Errorf("attach %s: %w", phone, err)
		}
		logger.Info("driver created", "phone", phone, "driver_id", id)
		out = append(out, Account{Token: token, DriverID: id})
	}
	return out, nil
}
