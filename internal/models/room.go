// internal/models/room.go
package models

// RoomStatus is the lifecycle phase of a room.
type RoomStatus string

const (
	StatusLobby RoomStatus = "lobby"
	StatusLive  RoomStatus = "live"
	StatusEnded RoomStatus = "ended"
)

// Scores holds the running score of each team. Scores may go negative.
type Scores struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Get returns the score of team t.
func (s Scores) Get(t Team) int {
	if t == TeamB {
		return s.B
	}
	return s.A
}

// Add adds delta to team t's score.
func (s *Scores) Add(t Team, delta int) {
	switch t {
	case TeamA:
		s.A += delta
	case TeamB:
		s.B += delta
	}
}

// Round is the transient state of a live round. It never carries card contents.
type Round struct {
	ClueGiverID ConnID `json:"clueGiverId"`
	GuesserID   ConnID `json:"guesserId"`
	CardID      string `json:"cardId"`
	EndsAt      int64  `json:"endsAt"` // unix millis
}
