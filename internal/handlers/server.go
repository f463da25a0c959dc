// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/taboo/internal/auth"
	"github.com/jason-s-yu/taboo/internal/game"
	"github.com/jason-s-yu/taboo/internal/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimit is the per-connection inbound event budget.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// Server bundles what the HTTP and websocket handlers need.
type Server struct {
	Registry *game.Registry
	Hub      *Hub
	Seats    *auth.SeatSigner
	Limit    RateLimit
	Logger   *logrus.Logger
}

// NewServer wires a server and installs its join hook on reg. hub must be the
// Sender the registry was built with.
func NewServer(reg *game.Registry, hub *Hub, seats *auth.SeatSigner, limit RateLimit, logger *logrus.Logger) *Server {
	if limit.PerSecond <= 0 {
		limit.PerSecond = 20
	}
	if limit.Burst <= 0 {
		limit.Burst = 40
	}
	s := &Server{Registry: reg, Hub: hub, Seats: seats, Limit: limit, Logger: logger}
	reg.SetJoinHook(s.greet)
	return s
}

func (s *Server) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(s.Limit.PerSecond), s.Limit.Burst)
}

// Routes returns the HTTP mux with every endpoint behind the log middleware.
func (s *Server) Routes() http.Handler {
	logged := middleware.LogMiddleware(s.Logger)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", logged(http.HandlerFunc(s.WSHandler)))
	mux.Handle("GET /card", logged(http.HandlerFunc(s.CardHandler)))
	mux.Handle("GET /health", logged(http.HandlerFunc(s.HealthHandler)))
	mux.Handle("GET /{$}", logged(http.HandlerFunc(s.RootHandler)))
	return mux
}
