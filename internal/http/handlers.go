package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/eta"
	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/storage"
)

const defaultSweepSteps = 10

// LocationPublisher forwards location pings downstream (Kafka).
type LocationPublisher interface {
	Publish(ctx context.Context, loc models.DriverLocation) error
}

type Server struct {
	Geo     geo.Store
	Matcher *matcher.Service
	Kafka   LocationPublisher
	WSReg   *dispatch.WSRegistry
	logger  *slog.Logger
	mux     *mux.Router
}

// NewServer wires the HTTP API. kafka may be nil.
func NewServer(g geo.Store, m *matcher.Service, kafka LocationPublisher, ws *dispatch.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Geo: g, Matcher: m, Kafka: kafka, WSReg: ws, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/api/v1/reservations", s.handleAddReservation).Methods("POST")
	s.mux.HandleFunc("/api/v1/reservations", s.handleListReservations).Methods("GET")
	s.mux.HandleFunc("/api/v1/drivers/{driver_id}/route", s.handlePutRoute).Methods("PUT")
	s.mux.HandleFunc("/api/v1/dispatch/snapshot", s.handleSnapshot).Methods("GET")
	s.mux.HandleFunc("/api/v1/dispatch/assign", s.handleAssign).Methods("POST")
	s.mux.HandleFunc("/api/v1/dispatch/estimate", s.handleEstimate).Methods("POST")
	s.mux.HandleFunc("/api/v1/dispatch/sweep", s.handleSweep).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{driver_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var d models.DriverLocation
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if d.DriverID == 0 {
		http.Error(w, "driver_id is required", 400)
		return
	}
	if d.Updated.IsZero() {
		d.Updated = time.Now().UTC()
	}
	if s.Kafka != nil {
		if err := s.Kafka.Publish(r.Context(), d); err != nil {
			s.logger.Warn("kafka publish failed", "driver_id", d.DriverID, "error", err)
		}
	}
	if err := s.Geo.Upsert(r.Context(), d); err != nil {
		s.writeError(w, r, err)
		return
	}
	observability.LocationUpdates.Inc()
	if idx, ok := s.Geo.(interface{ Len() int }); ok {
		observability.DriversLocated.Set(float64(idx.Len()))
	}
	w.WriteHeader(204)
}

func (s *Server) handleAddReservation(w http.ResponseWriter, r *http.Request) {
	var res models.Reservation
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.MadeAt.IsZero() {
		res.MadeAt = time.Now().UTC()
	}
	if res.PassengerCount <= 0 {
		res.PassengerCount = 1
	}
	if err := s.Matcher.AddReservation(res); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"reservations": s.Matcher.Store.Pending()})
}

func (s *Server) handlePutRoute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["driver_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid driver id", 400)
		return
	}
	var route models.DriverRoute
	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	route.DriverID = id
	est, err := s.Matcher.RegisterRoute(r.Context(), route)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.Matcher.Store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"drivers": snap.Drivers, "makespan_seconds": snap.Makespan()})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	next, res, err := s.Matcher.RunPass(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drivers":          next.Drivers,
		"placements":       res.Placements,
		"makespan_seconds": next.Makespan(),
	})
}

type whatIfRequest struct {
	Routes       []models.DriverRoute `json:"routes"`
	Reservations []models.Reservation `json:"reservations"`
	Weight       *float64             `json:"weight"`
	Steps        int                  `json:"steps"`
}

// handleEstimate runs an assignment pass over the posted routes and pool
// without touching the stored state.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req whatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	engine := *s.Matcher.Engine
	if req.Weight != nil {
		if *req.Weight < 0 || *req.Weight > 1 {
			http.Error(w, "weight must be within [0,1]", 400)
			return
		}
		engine.Score = matcher.Weighted(*req.Weight)
	}
	snap, err := engine.EstimateRoutes(r.Context(), req.Routes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, res, err := engine.Assign(r.Context(), snap, req.Reservations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drivers":          next.Drivers,
		"placements":       res.Placements,
		"makespan_seconds": next.Makespan(),
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req whatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if req.Steps == 0 {
		req.Steps = defaultSweepSteps
	}
	snap, err := s.Matcher.Engine.EstimateRoutes(r.Context(), req.Routes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.Matcher.Engine.Sweep(r.Context(), snap, req.Reservations, req.Steps, time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

var upgrader = websocket.Upgrader{}

// handleWS keeps the driver's socket registered until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["driver_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid driver id", 400)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "driver_id", id, "error", err)
		return
	}
	s.WSReg.Add(id, conn)
	defer func() {
		s.WSReg.Remove(id, conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNoStops), errors.Is(err, models.ErrUnreachableQueue):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrDuplicateReservation), errors.Is(err, matcher.ErrNoDrivers):
		status = http.StatusConflict
	case errors.Is(err, eta.ErrSegmentNotFound), errors.Is(err, geo.ErrUnknownDriver):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
