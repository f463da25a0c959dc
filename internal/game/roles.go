// internal/game/roles.go
package game

import "github.com/jason-s-yu/taboo/internal/models"

// RoleIndex holds the per-team rotation cursor used to pick the guesser.
type RoleIndex struct {
	A int `json:"A"`
	B int `json:"B"`
}

func (ri RoleIndex) get(t models.Team) int {
	if t == models.TeamB {
		return ri.B
	}
	return ri.A
}

func (ri *RoleIndex) set(t models.Team, v int) {
	switch t {
	case models.TeamA:
		ri.A = v
	case models.TeamB:
		ri.B = v
	}
}

// teamMembers returns the members of team t in room order.
func teamMembers(members []models.Member, t models.Team) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.Team == t {
			out = append(out, m)
		}
	}
	return out
}

// nextRoles picks the guesser at cursor mod team size and the clue-giver right
// after them. With a single member both roles fall on that member; with no
// members both ids are empty.
func nextRoles(members []models.Member, t models.Team, cursor int) (clueGiver, guesser models.ConnID) {
	team := teamMembers(members, t)
	n := len(team)
	if n == 0 {
		return "", ""
	}
	g := mod(cursor, n)
	c := (g + 1) % n
	return team[c].ID, team[g].ID
}

// advanceCursor moves team t's cursor one step, modulo its current size.
func advanceCursor(ri *RoleIndex, members []models.Member, t models.Team) {
	n := len(teamMembers(members, t))
	if n == 0 {
		return
	}
	ri.set(t, mod(ri.get(t)+1, n))
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
