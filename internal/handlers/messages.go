// internal/handlers/messages.go
package handlers

import (
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/taboo/internal/game"
	"github.com/jason-s-yu/taboo/internal/models"
)

// Inbound event types.
const (
	MsgCreateRoom    = "create-room"
	MsgJoinRoom      = "join-room"
	MsgSetTeam       = "set-team"
	MsgToggleReady   = "toggle-ready"
	MsgStartGame     = "start-game"
	MsgSubmitGuess   = "submit-guess"
	MsgPass          = "pass"
	MsgMarkCorrect   = "mark-correct"
	MsgBuzzViolation = "buzz-violation"
	MsgRematch       = "rematch"
	MsgFetchCard     = "fetch-card"
	MsgPing          = "ping"
)

// ClientMessage is the inbound envelope. Payload is decoded per type.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createRoomPayload struct {
	Name       string `json:"name"`
	ScoreLimit int    `json:"scoreLimit"`
}

type joinRoomPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type setTeamPayload struct {
	Team models.Team `json:"team"`
}

type guessPayload struct {
	Text string `json:"text"`
}

// Welcome is the first event on every connection.
type Welcome struct {
	ConnectionID models.ConnID `json:"connectionId"`
}

// decodePayload unmarshals raw into v. An absent payload leaves v zeroed.
func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &game.ActionError{Kind: game.KindInvalidRequest, Message: "Malformed payload"}
	}
	return nil
}

// advisoryFor turns a rejected action into the advisory sent back to its
// sender. Errors that are not ActionErrors are reported generically.
func advisoryFor(err error) game.Advisory {
	var ae *game.ActionError
	if !errors.As(err, &ae) {
		return game.Advisory{Severity: SeverityError, Code: "internal", Text: "Something went wrong"}
	}
	sev := SeverityWarn
	if ae.Kind == game.KindNotFound || ae.Kind == game.KindInvalidRequest {
		sev = SeverityError
	}
	return game.Advisory{Severity: sev, Code: string(ae.Kind), Text: ae.Message}
}

func event(typ game.EventType, payload interface{}) game.Event {
	return game.Event{Type: typ, Payload: payload}
}
