package dispatch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/models"
)

var ErrNoSession = errors.New("no ws session")

// RouteMessage is what a connected driver receives whenever its route changes.
type RouteMessage struct {
	Type  string                     `json:"type"`
	Route models.DriverRouteEstimate `json:"route"`
}

// WSSession represents a connected driver session
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(msg RouteMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// WSRegistry holds driver sessions
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{sessions: make(map[int64]*WSSession), logger: logger}
}

// Add registers conn for driverID, closing any previous session.
func (r *WSRegistry) Add(driverID int64, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[driverID]; ok {
		old.conn.Close()
	}
	r.sessions[driverID] = &WSSession{conn: conn}
}

// Remove drops the session only if it still belongs to conn.
func (r *WSRegistry) Remove(driverID int64, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[driverID]; ok && s.conn == conn {
		delete(r.sessions, driverID)
	}
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *WSRegistry) Offer(driverID int64, est models.DriverRouteEstimate) error {
	r.mu.RLock()
	s, ok := r.sessions[driverID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(RouteMessage{Type: "route", Route: est}); err != nil {
		r.logger.Warn("ws send error", "driver_id", driverID, "error", err)
		return err
	}
	return nil
}
