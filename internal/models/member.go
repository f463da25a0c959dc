// internal/models/member.go
package models

// Team is one of the two sides of a room. The zero value means unassigned.
type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// Valid reports whether t names one of the two playable teams.
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Other returns the opposing team. TeamNone has no opponent.
func (t Team) Other() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return TeamNone
}

// Member is a connection's presence in a room.
type Member struct {
	ID       ConnID `json:"id"`
	Name     string `json:"name"`
	Team     Team   `json:"team,omitempty"`
	IsReady  bool   `json:"isReady"`
	IsLeader bool   `json:"isLeader"`
}
