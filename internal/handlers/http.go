// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/taboo/internal/game"
)

// CardHandler serves the caller's view of the current card. The seat token in
// the Authorization header identifies the connection and room.
func (s *Server) CardHandler(w http.ResponseWriter, r *http.Request) {
	if s.Seats == nil {
		http.Error(w, "seat tokens disabled", http.StatusNotFound)
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	seat, err := s.Seats.Verify(token)
	if err != nil {
		http.Error(w, "invalid seat token", http.StatusUnauthorized)
		return
	}

	room, ok := s.Registry.Get(seat.Room)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	view, err := room.CardFor(seat.Conn)
	if err != nil {
		http.Error(w, advisoryFor(err).Text, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HealthHandler reports liveness and the number of rooms.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rooms":  s.Registry.Len(),
	})
}

// RootHandler is a plain ping.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("taboo server ok\n"))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrPreconditionFailed):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
