// internal/game/registry.go
package game

import (
	"sync"
	"time"

	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
)

// Registry owns every live room and remembers which room each connection is in.
// It is safe for concurrent use. Lock order is registry before room.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	memberships map[models.ConnID]string

	catalog  *catalog.Catalog
	settings Settings
	sender   Sender
	actions  ActionLog
	logger   *logrus.Logger

	onJoined JoinHook
}

// JoinHook runs under the room lock when conn is seated in a room, before the
// room-state broadcast. created is true for the room's creator.
type JoinHook func(conn models.ConnID, code string, created bool)

// NewRegistry builds an empty registry. actions may be nil.
func NewRegistry(cat *catalog.Catalog, settings Settings, sender Sender, actions ActionLog, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		memberships: make(map[models.ConnID]string),
		catalog:     cat,
		settings:    settings.withDefaults(),
		sender:      sender,
		actions:     actions,
		logger:      logger,
	}
}

// SetJoinHook installs fn. Call it before serving connections.
func (reg *Registry) SetJoinHook(fn JoinHook) {
	reg.onJoined = fn
}

func (reg *Registry) notifyJoined(conn models.ConnID, code string, created bool) {
	if reg.onJoined != nil {
		reg.onJoined(conn, code, created)
	}
}

// CreateRoom allocates a room with a fresh code and seats conn as its ready
// leader. A non-positive scoreLimit falls back to the configured default.
func (reg *Registry) CreateRoom(conn models.ConnID, name string, scoreLimit int) (*Room, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	reg.leaveCurrent(conn)

	reg.mu.Lock()
	code := GenerateRoomCode(func(c string) bool {
		_, taken := reg.rooms[c]
		return taken
	})
	room := newRoom(code, scoreLimit, reg.catalog, reg.settings, reg.sender, reg.actions, reg.logger)
	reg.rooms[code] = room
	reg.memberships[conn] = code
	reg.mu.Unlock()

	room.Mu.Lock()
	room.addMemberUnsafe(conn, name, true)
	room.logActionUnsafe(conn, "create", map[string]interface{}{"name": name, "scoreLimit": room.ScoreLimit})
	reg.notifyJoined(conn, code, true)
	room.broadcastStateUnsafe()
	room.Mu.Unlock()

	reg.logger.WithFields(logrus.Fields{"room": code, "conn": conn, "scoreLimit": room.ScoreLimit}).Info("room created")
	return room, nil
}

// JoinRoom seats conn in the room with the given code. A connection already in
// another room leaves it first; rejoining the same room is idempotent.
func (reg *Registry) JoinRoom(conn models.ConnID, code, name string) (*Room, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	code = NormalizeRoomCode(code)
	room, ok := reg.Get(code)
	if !ok {
		return nil, reject(KindNotFound, "Room not found")
	}
	if current, ok := reg.RoomOf(conn); ok && current != room {
		reg.Disconnect(conn)
	}
	if err := room.join(conn, name, func() { reg.notifyJoined(conn, room.Code, false) }); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	reg.memberships[conn] = code
	reg.mu.Unlock()
	return room, nil
}

// Get looks up a room by code.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[NormalizeRoomCode(code)]
	return r, ok
}

// RoomOf returns the room conn currently belongs to.
func (reg *Registry) RoomOf(conn models.ConnID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	code, ok := reg.memberships[conn]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[code]
	return r, ok
}

// Disconnect removes conn from its room, if any. Room state is otherwise left
// alone; an emptied room lingers until reaped.
func (reg *Registry) Disconnect(conn models.ConnID) {
	reg.mu.Lock()
	code, ok := reg.memberships[conn]
	delete(reg.memberships, conn)
	room := reg.rooms[code]
	reg.mu.Unlock()

	if !ok || room == nil {
		return
	}
	if room.Leave(conn) {
		reg.logger.WithFields(logrus.Fields{"room": code, "conn": conn}).Info("member left")
	}
}

func (reg *Registry) leaveCurrent(conn models.ConnID) {
	if _, ok := reg.RoomOf(conn); ok {
		reg.Disconnect(conn)
	}
}

// ReapIdle removes rooms that have had no members for longer than ttl and
// returns how many were removed. Their timers are stopped first.
func (reg *Registry) ReapIdle(ttl time.Duration) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := reg.settings.Now()
	removed := 0
	for code, room := range reg.rooms {
		room.Mu.Lock()
		idle := len(room.Members) == 0 && now.Sub(room.lastActivity) >= ttl
		if idle {
			room.closeUnsafe()
		}
		room.Mu.Unlock()
		if idle {
			delete(reg.rooms, code)
			removed++
			reg.logger.WithField("room", code).Info("idle room reaped")
		}
	}
	return removed
}

// Len returns the number of registered rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Shutdown stops every room timer. Used on process exit.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, room := range reg.rooms {
		room.Mu.Lock()
		room.closeUnsafe()
		room.Mu.Unlock()
	}
}
