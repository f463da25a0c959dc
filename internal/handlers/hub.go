// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"

	"github.com/jason-s-yu/taboo/internal/game"
	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// outBuffer is the per-connection outbound queue length.
const outBuffer = 64

// Client is a single websocket connection's outbound side.
type Client struct {
	ID      models.ConnID
	OutChan chan game.Event
	Cancel  context.CancelFunc

	limiter *rate.Limiter
}

// write enqueues ev without blocking. A full queue means the client cannot
// keep up; it is cancelled rather than skipped so it never sees a gap.
func (c *Client) write(ev game.Event, logger *logrus.Logger) {
	select {
	case c.OutChan <- ev:
	default:
		logger.WithFields(logrus.Fields{"conn": c.ID, "type": ev.Type}).Warn("outbound queue full, dropping connection")
		if c.Cancel != nil {
			c.Cancel()
		}
	}
}

// Hub maps connection ids to their clients. It implements game.Sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[models.ConnID]*Client
	logger  *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{clients: make(map[models.ConnID]*Client), logger: logger}
}

// Register adds c. A client with the same id is replaced.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes the client for id.
func (h *Hub) Unregister(id models.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Send implements game.Sender. Unknown ids are ignored.
func (h *Hub) Send(to models.ConnID, ev game.Event) {
	h.mu.RLock()
	c, ok := h.clients[to]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.write(ev, h.logger)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll cancels every connection, e.g. on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Cancel != nil {
			c.Cancel()
		}
	}
}
