package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/backend"
	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/route"
	"github.com/example/ride-dispatch/internal/sim"
)

func main() {
	cfg, err := config.LoadSimConfig()
	flag.IntVar(&cfg.DriverCount, "drivers", cfg.DriverCount, "number of drivers to provision")
	flag.BoolVar(&cfg.Provision, "provision", cfg.Provision, "retire the event's drivers and create fresh ones")
	flag.IntVar(&cfg.Speed, "speed", cfg.Speed, "path points consumed per tick")
	flag.Parse()

	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.New(cfg.BackendURL, nil, logger)
	admin := client.Admin(cfg.AdminToken, cfg.EventID, cfg.VehicleID, cfg.AuthCode)
	event, err := admin.GetEvent(ctx)
	if err != nil {
		logger.Error("could not load event", "event_id", cfg.EventID, "error", err)
		os.Exit(1)
	}
	if event.Location == nil {
		logger.Error("event has no location", "event_id", cfg.EventID)
		os.Exit(1)
	}

	accounts := make([]sim.Account, 0, len(cfg.Accounts))
	if cfg.Provision {
		accounts, err = sim.Provision(ctx, admin, cfg.DriverCount, logger)
		if err != nil {
			logger.Error("provisioning failed", "error", err)
			os.Exit(1)
		}
	} else {
		for _, a := range cfg.Accounts {
			accounts = append(accounts, sim.Account{DriverID: a.DriverID, Token: a.Token})
		}
	}

	router, err := newRouter(cfg)
	if err != nil {
		logger.Error("route provider", "error", err)
		os.Exit(1)
	}

	var sink sim.LocationSink
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		sink = producer
	}

	go serveMetrics(ctx, cfg.MetricsAddr, logger)

	s := &sim.Simulation{
		Config: sim.Config{
			EventID:       cfg.EventID,
			EventLocation: event.Location.Location,
			Speed:         cfg.Speed,
			Tick:          cfg.Tick,
		},
		Router:  router,
		Sink:    sink,
		Backend: func(a sim.Account) sim.Backend { return client.Driver(a.Token, cfg.EventID) },
		Logger:  logger,
	}
	if err := s.Run(ctx, accounts); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func newRouter(cfg config.SimConfig) (route.Provider, error) {
	switch {
	case cfg.GoogleMapsKey != "":
		return route.NewGoogleProvider(cfg.GoogleMapsKey)
	case cfg.OSRMEndpoint != "":
		return route.NewOSRMProvider(cfg.OSRMEndpoint), nil
	default:
		return route.LinearProvider{StepMeters: cfg.StepMeters}, nil
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}
