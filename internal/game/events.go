// internal/game/events.go
package game

import (
	"context"

	"github.com/jason-s-yu/taboo/internal/models"
)

// EventType names an outbound event.
type EventType string

const (
	EventWelcome    EventType = "welcome"
	EventRoomJoined EventType = "room-joined"
	EventRoomState  EventType = "room-state"
	EventRoundTick  EventType = "round-tick"
	EventCard       EventType = "card"
	EventAdvisory   EventType = "advisory"
	EventPong       EventType = "pong"
)

// Event is the envelope every outbound message uses.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Sender delivers an event to one connection. Implementations must not block
// and must preserve the order of calls per connection.
type Sender interface {
	Send(to models.ConnID, ev Event)
}

// ActionLog receives accepted room actions, e.g. a Redis-backed queue.
type ActionLog interface {
	Publish(ctx context.Context, rec models.ActionRecord) error
}

// Snapshot is the public room state broadcast as room-state. It never contains
// card contents.
type Snapshot struct {
	Code             string            `json:"code"`
	Status           models.RoomStatus `json:"status"`
	Members          []models.Member   `json:"members"`
	Scores           models.Scores     `json:"scores"`
	TurnTeam         models.Team       `json:"turnTeam"`
	RoleIndex        RoleIndex         `json:"roleIndex"`
	ScoreLimit       int               `json:"scoreLimit"`
	RoundDurationSec int               `json:"roundDuration"`
	Round            *models.Round     `json:"round,omitempty"`
}

// RoundTick is the round-tick payload.
type RoundTick struct {
	RemainingMs int64 `json:"remainingMs"`
}

// RoomJoined is sent to the requester after create-room or join-room.
type RoomJoined struct {
	Code      string `json:"code"`
	SeatToken string `json:"seatToken,omitempty"`
}

// Advisory is a toast-style notice sent only to the requester.
type Advisory struct {
	Severity string `json:"severity"`
	Code     string `json:"code,omitempty"`
	Text     string `json:"text"`
}

// CardView is a card as seen by one member. The guesser's view is masked.
type CardView struct {
	ID     string   `json:"id"`
	Target string   `json:"target"`
	Taboos []string `json:"taboos"`
	Masked bool     `json:"masked"`
}

// MaskedText replaces every word the guesser must not see.
const MaskedText = "*****"

// MaskedTabooCount is the fixed number of masked taboo entries shown to the guesser.
const MaskedTabooCount = 5

func maskedCard(id string) CardView {
	taboos := make([]string, MaskedTabooCount)
	for i := range taboos {
		taboos[i] = MaskedText
	}
	return CardView{ID: id, Target: MaskedText, Taboos: taboos, Masked: true}
}
