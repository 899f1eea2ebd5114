package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignPasses     = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "assign_passes_total", Help: "Assignment passes by outcome"}, []string{"outcome"})
	PlacementsTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "placements_total", Help: "Reservations placed onto driver routes"})
	AssignLatency    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_dispatch", Name: "assign_latency_seconds", Help: "Assignment pass latency seconds"})
	PendingPool      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "pending_reservations", Help: "Reservations waiting in the pool"})
	DriversLocated   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "drivers_located", Help: "Drivers with a known location"})
	LocationUpdates  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "location_updates_total", Help: "Driver location updates received"})
	RouteOffersError = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "route_offer_errors_total", Help: "Route updates that could not be pushed to a driver"})

	SimTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Subsystem: "sim", Name: "ticks_total", Help: "Simulated driver loop iterations by state"},
		[]string{"state"},
	)
	SimBackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Subsystem: "sim", Name: "backend_errors_total", Help: "Failed backend or routing calls by operation"},
		[]string{"op"},
	)
	SimActions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Subsystem: "sim", Name: "actions_total", Help: "Accepted reservations, pickups and dropoffs"},
		[]string{"action"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
