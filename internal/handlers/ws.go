// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/taboo/internal/game"
	"github.com/jason-s-yu/taboo/internal/middleware"
	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades the request, assigns the connection a fresh id and runs
// its read and write loops until either side closes.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &Client{
		ID:      models.NewConnID(),
		OutChan: make(chan game.Event, outBuffer),
		Cancel:  cancel,
		limiter: s.newLimiter(),
	}
	s.Hub.Register(client)
	middleware.LogWebSocketConnect(s.Logger, client.ID, r.RemoteAddr)

	client.write(event(game.EventWelcome, Welcome{ConnectionID: client.ID}), s.Logger)

	go s.writePump(ctx, c, client)
	readErr := s.readPump(ctx, c, client)

	// ---- Cleanup after readPump exits ----
	s.Registry.Disconnect(client.ID)
	s.Hub.Unregister(client.ID)
	middleware.LogWebSocketDisconnect(s.Logger, client.ID, r.RemoteAddr, readErr)
}

// readPump handles incoming messages until the socket or ctx closes. A normal
// closure returns nil.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, client *Client) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		if !client.limiter.Allow() {
			client.write(event(game.EventAdvisory, game.Advisory{
				Severity: SeverityWarn,
				Code:     AdvisoryRateLimited,
				Text:     "Slow down",
			}), s.Logger)
			continue
		}

		var m ClientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			client.write(event(game.EventAdvisory, game.Advisory{
				Severity: SeverityError,
				Code:     string(game.KindInvalidRequest),
				Text:     "Invalid JSON format",
			}), s.Logger)
			continue
		}
		if err := s.dispatch(client, m); err != nil {
			s.Logger.WithFields(logrus.Fields{"conn": client.ID, "type": m.Type}).Debugf("rejected: %v", err)
			client.write(event(game.EventAdvisory, advisoryFor(err)), s.Logger)
		}
	}
}

// dispatch routes one inbound event. Any returned error becomes an advisory to
// the sender; room state changes are broadcast by the room itself.
func (s *Server) dispatch(client *Client, m ClientMessage) error {
	conn := client.ID

	switch m.Type {
	case MsgPing:
		client.write(event(game.EventPong, struct{}{}), s.Logger)
		return nil

	case MsgCreateRoom:
		var p createRoomPayload
		if err := decodePayload(m.Payload, &p); err != nil {
			return err
		}
		_, err := s.Registry.CreateRoom(conn, p.Name, p.ScoreLimit)
		return err

	case MsgJoinRoom:
		var p joinRoomPayload
		if err := decodePayload(m.Payload, &p); err != nil {
			return err
		}
		code := game.NormalizeRoomCode(p.Code)
		if err := game.ValidateRoomCode(code); err != nil {
			return err
		}
		_, err := s.Registry.JoinRoom(conn, code, p.Name)
		return err
	}

	room, ok := s.Registry.RoomOf(conn)
	if !ok {
		if !knownRoomEvent(m.Type) {
			return &game.ActionError{Kind: game.KindInvalidRequest, Message: fmt.Sprintf("Unknown action type: %s", m.Type)}
		}
		return &game.ActionError{Kind: game.KindNotFound, Message: "You are not in a room"}
	}

	switch m.Type {
	case MsgSetTeam:
		var p setTeamPayload
		if err := decodePayload(m.Payload, &p); err != nil {
			return err
		}
		return room.SetTeam(conn, p.Team)
	case MsgToggleReady:
		return room.ToggleReady(conn)
	case MsgStartGame:
		return room.StartGame(conn)
	case MsgSubmitGuess:
		var p guessPayload
		if err := decodePayload(m.Payload, &p); err != nil {
			return err
		}
		_, err := room.SubmitGuess(conn, p.Text)
		return err
	case MsgPass:
		return room.Pass(conn)
	case MsgMarkCorrect:
		return room.MarkCorrect(conn)
	case MsgBuzzViolation:
		return room.BuzzViolation(conn)
	case MsgRematch:
		return room.Rematch(conn)
	case MsgFetchCard:
		view, err := room.CardFor(conn)
		if err != nil {
			return err
		}
		client.write(event(game.EventCard, view), s.Logger)
		return nil
	default:
		return &game.ActionError{Kind: game.KindInvalidRequest, Message: fmt.Sprintf("Unknown action type: %s", m.Type)}
	}
}

func knownRoomEvent(typ string) bool {
	switch typ {
	case MsgSetTeam, MsgToggleReady, MsgStartGame, MsgSubmitGuess, MsgPass,
		MsgMarkCorrect, MsgBuzzViolation, MsgRematch, MsgFetchCard:
		return true
	}
	return false
}

// greet is the registry's join hook. It runs under the room lock, so the
// requester sees the create advisory and room-joined (with a seat token for
// GET /card) before the first room-state of its new room.
func (s *Server) greet(conn models.ConnID, code string, created bool) {
	if created {
		s.Hub.Send(conn, event(game.EventAdvisory, game.Advisory{
			Severity: SeverityInfo,
			Code:     "room-created",
			Text:     fmt.Sprintf("Room %s created", code),
		}))
	}
	joined := game.RoomJoined{Code: code}
	if s.Seats != nil {
		token, err := s.Seats.Issue(conn, code)
		if err != nil {
			s.Logger.Warnf("failed to issue seat token for %s: %v", conn, err)
		} else {
			joined.SeatToken = token
		}
	}
	s.Hub.Send(conn, event(game.EventRoomJoined, joined))
}

// writePump drains the client's OutChan onto the socket and pings periodically.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer client.Cancel()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusGoingAway, "connection closing")
			return
		case ev := <-client.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing %s for %s: %v", ev.Type, client.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to write to websocket for %s: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to ping %s: %v", client.ID, err)
				return
			}
		}
	}
}
