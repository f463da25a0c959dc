// internal/game/outcome.go
package game

import (
	"strings"

	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
)

// Outcome is a scoring event within a live round.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomePass      Outcome = "pass"
	OutcomeViolation Outcome = "violation"
)

func (o Outcome) delta() int {
	if o == OutcomeCorrect {
		return 1
	}
	return -1
}

// SubmitGuess checks a free-text guess from the guesser. A match scores as
// correct; a miss changes nothing. Returns whether the guess matched.
func (r *Room) SubmitGuess(conn models.ConnID, text string) (bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.requireLiveUnsafe(conn); err != nil {
		return false, err
	}
	if conn != r.Round.GuesserID {
		return false, reject(KindForbidden, "Only the guesser can submit guesses")
	}
	card, ok := r.catalog.Card(r.Round.CardID)
	if !ok {
		return false, reject(KindNotFound, "Card not found")
	}
	if !strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(card.Target)) {
		return false, nil
	}
	r.applyOutcomeUnsafe(conn, OutcomeCorrect)
	return true, nil
}

// MarkCorrect is the clue-giver confirming a spoken guess.
func (r *Room) MarkCorrect(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.requireLiveUnsafe(conn); err != nil {
		return err
	}
	if conn != r.Round.ClueGiverID {
		return reject(KindForbidden, "Only the clue-giver can mark a card correct")
	}
	r.applyOutcomeUnsafe(conn, OutcomeCorrect)
	return nil
}

// Pass skips the current card at a one point cost.
func (r *Room) Pass(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.requireLiveUnsafe(conn); err != nil {
		return err
	}
	if conn != r.Round.ClueGiverID {
		return reject(KindForbidden, "Only the clue-giver can pass")
	}
	r.applyOutcomeUnsafe(conn, OutcomePass)
	return nil
}

// BuzzViolation lets an opponent flag a taboo word; the team on turn loses a point.
func (r *Room) BuzzViolation(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.requireLiveUnsafe(conn); err != nil {
		return err
	}
	m, _ := r.memberUnsafe(conn)
	if m.Team != r.TurnTeam.Other() {
		return reject(KindForbidden, "Only the opposing team can buzz")
	}
	r.applyOutcomeUnsafe(conn, OutcomeViolation)
	return nil
}

func (r *Room) requireLiveUnsafe(conn models.ConnID) error {
	if _, err := r.memberUnsafe(conn); err != nil {
		return err
	}
	if r.Status != models.StatusLive || r.Round == nil {
		return reject(KindInvalidPhase, "No round in progress")
	}
	return nil
}

// applyOutcomeUnsafe scores the outcome for the team on turn. Reaching the score
// limit ends the match before anything else happens; otherwise the round keeps
// its roles and deadline and moves on to a fresh card.
func (r *Room) applyOutcomeUnsafe(actor models.ConnID, o Outcome) {
	team := r.TurnTeam
	r.Scores.Add(team, o.delta())
	r.touchUnsafe()
	r.logActionUnsafe(actor, string(o), map[string]interface{}{
		"team":   string(team),
		"cardId": r.Round.CardID,
		"scoreA": r.Scores.A,
		"scoreB": r.Scores.B,
	})

	if r.Scores.A >= r.ScoreLimit || r.Scores.B >= r.ScoreLimit {
		r.timer.Stop()
		r.Round = nil
		r.Status = models.StatusEnded
		r.log.WithFields(logrus.Fields{"scoreA": r.Scores.A, "scoreB": r.Scores.B}).Info("match ended")
		r.logActionUnsafe("", "match_ended", map[string]interface{}{
			"winner": string(team),
			"scoreA": r.Scores.A,
			"scoreB": r.Scores.B,
		})
		r.broadcastStateUnsafe()
		return
	}

	if r.Status == models.StatusLive && r.Round != nil {
		r.Round.CardID = r.deck.Draw().ID
	}
	r.broadcastStateUnsafe()
}
