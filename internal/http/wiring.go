package httpapi

import (
	"fmt"
	"log/slog"

	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/eta"
	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/storage"
)

// NewServerFromConfig builds the server and its collaborators. The returned
// func releases external connections.
func NewServerFromConfig(cfg config.ServerConfig, logger *slog.Logger) (*Server, func(), error) {
	var closers []func() error

	var store geo.Store
	if cfg.RedisAddr != "" {
		rg := geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey, eta.DriverOrigin)
		closers = append(closers, rg.Close)
		store = rg
	} else {
		store = geo.NewIndex(eta.DriverOrigin)
	}
	locator := geo.WithFallback(store, cfg.DefaultLocation)

	client, err := etaClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, kp.Close)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	engine := &matcher.Engine{
		Estimator: &eta.Estimator{Client: client, Locator: locator},
		Locator:   locator,
		Score:     matcher.Weighted(cfg.MatcherWeight),
		Logger:    logger,
	}
	m := &matcher.Service{
		Engine:   engine,
		Store:    storage.NewMemoryStore(),
		Dispatch: dispatch.NewPushDispatcher(cfg.DispatchWebhook, wsreg),
		Logger:   logger,
	}

	var pub LocationPublisher
	if kp != nil {
		pub = kp
	}
	srv := NewServer(store, m, pub, wsreg, logger)
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}
	return srv, cleanup, nil
}

func etaClient(cfg config.ServerConfig) (eta.Client, error) {
	switch cfg.ETAMode {
	case "table":
		if cfg.ETATablePath == "" {
			return eta.DefaultTable(), nil
		}
		t, err := eta.LoadTable(cfg.ETATablePath)
		if err != nil {
			return nil, fmt.Errorf("eta table: %w", err)
		}
		return t, nil
	case "osrm":
		return &eta.CachedClient{Next: eta.NewOSRMClient(cfg.OSRMEndpoint), Cache: eta.NewCache(cfg.ETACacheTTL)}, nil
	default:
		return eta.SpeedClient{SpeedMps: cfg.DefaultSpeedMps}, nil
	}
}
