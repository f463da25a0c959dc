// internal/game/room.go
package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRoundDuration = 60 * time.Second
	DefaultTickInterval  = 200 * time.Millisecond
	DefaultScoreLimit    = 7
)

// Settings are the process-wide knobs applied to every room.
type Settings struct {
	RoundDuration     time.Duration
	TickInterval      time.Duration
	DefaultScoreLimit int

	// Now and NewTicker default to the wall clock and RealTicker.
	Now       func() time.Time
	NewTicker TickerFunc
}

func (s Settings) withDefaults() Settings {
	if s.RoundDuration <= 0 {
		s.RoundDuration = DefaultRoundDuration
	}
	if s.TickInterval <= 0 {
		s.TickInterval = DefaultTickInterval
	}
	if s.DefaultScoreLimit <= 0 {
		s.DefaultScoreLimit = DefaultScoreLimit
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.NewTicker == nil {
		s.NewTicker = RealTicker
	}
	return s
}

// Room is one game instance. Exported methods take Mu themselves; methods with
// the Unsafe suffix expect the caller to hold it.
type Room struct {
	Code       string
	Status     models.RoomStatus
	Members    []models.Member
	Scores     models.Scores
	TurnTeam   models.Team
	Round      *models.Round
	RoleIndex  RoleIndex
	ScoreLimit int

	settings Settings
	deck     *Deck
	catalog  *catalog.Catalog
	timer    *RoundTimer
	deadline time.Time

	sender  Sender
	actions ActionLog
	log     *logrus.Entry

	actionIndex  int
	lastActivity time.Time
	closed       bool

	Mu sync.Mutex
}

func newRoom(code string, scoreLimit int, cat *catalog.Catalog, settings Settings, sender Sender, actions ActionLog, logger *logrus.Logger) *Room {
	settings = settings.withDefaults()
	if scoreLimit <= 0 {
		scoreLimit = settings.DefaultScoreLimit
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	r := &Room{
		Code:       code,
		Status:     models.StatusLobby,
		Members:    []models.Member{},
		TurnTeam:   models.TeamA,
		RoleIndex:  RoleIndex{A: rng.Intn(2), B: rng.Intn(2)},
		ScoreLimit: scoreLimit,

		settings: settings,
		deck:     NewDeck(cat, rng),
		catalog:  cat,
		timer:    newRoundTimer(settings.TickInterval, settings.NewTicker),
		sender:   sender,
		actions:  actions,
		log:      logger.WithField("room", code),

		lastActivity: settings.Now(),
	}
	return r
}

// Join adds conn as a regular member. Joining twice is a no-op apart from the
// state broadcast.
func (r *Room) Join(conn models.ConnID, name string) error {
	return r.join(conn, name, nil)
}

// join is Join with a hook that runs under the lock before the state
// broadcast, so anything it sends reaches conn ahead of the new room-state.
func (r *Room) join(conn models.ConnID, name string, onJoined func()) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return reject(KindNotFound, "Room not found")
	}
	if r.addMemberUnsafe(conn, name, false) {
		r.log.WithField("conn", conn).Infof("%s joined", name)
		r.logActionUnsafe(conn, "join", map[string]interface{}{"name": name})
	}
	if onJoined != nil {
		onJoined()
	}
	r.broadcastStateUnsafe()
	return nil
}

// addMemberUnsafe appends a member unless conn is already present. Leaders
// start ready, everyone else starts unready and unassigned. Someone joining a
// room whose leader is gone takes over the lead.
func (r *Room) addMemberUnsafe(conn models.ConnID, name string, leader bool) bool {
	if r.memberIndexUnsafe(conn) >= 0 {
		return false
	}
	if !leader && !r.hasLeaderUnsafe() {
		leader = true
		r.log.WithField("conn", conn).Info("leaderless room, joiner takes the lead")
	}
	r.Members = append(r.Members, models.Member{
		ID:       conn,
		Name:     name,
		Team:     models.TeamNone,
		IsReady:  leader,
		IsLeader: leader,
	})
	r.touchUnsafe()
	return true
}

func (r *Room) hasLeaderUnsafe() bool {
	for _, m := range r.Members {
		if m.IsLeader {
			return true
		}
	}
	return false
}

// Leave removes conn from the room in any status. If the leader leaves, the
// earliest remaining member inherits leadership. Returns false if conn was not
// a member.
func (r *Room) Leave(conn models.ConnID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx := r.memberIndexUnsafe(conn)
	if idx < 0 {
		return false
	}
	wasLeader := r.Members[idx].IsLeader
	r.Members = append(r.Members[:idx], r.Members[idx+1:]...)
	if wasLeader && len(r.Members) > 0 {
		r.Members[0].IsLeader = true
		r.log.WithField("conn", r.Members[0].ID).Info("leadership passed on")
	}
	r.touchUnsafe()
	r.logActionUnsafe(conn, "leave", nil)
	r.broadcastStateUnsafe()
	return true
}

// SetTeam moves conn to team t. Only allowed in the lobby.
func (r *Room) SetTeam(conn models.ConnID, t models.Team) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	m, err := r.memberUnsafe(conn)
	if err != nil {
		return err
	}
	if !t.Valid() {
		return reject(KindInvalidRequest, "Team must be A or B")
	}
	if r.Status != models.StatusLobby {
		return reject(KindInvalidPhase, "Teams can only be changed in the lobby")
	}
	m.Team = t
	r.touchUnsafe()
	r.logActionUnsafe(conn, "set_team", map[string]interface{}{"team": string(t)})
	r.broadcastStateUnsafe()
	return nil
}

// ToggleReady flips conn's ready flag.
func (r *Room) ToggleReady(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	m, err := r.memberUnsafe(conn)
	if err != nil {
		return err
	}
	m.IsReady = !m.IsReady
	r.touchUnsafe()
	r.logActionUnsafe(conn, "toggle_ready", map[string]interface{}{"ready": m.IsReady})
	r.broadcastStateUnsafe()
	return nil
}

// StartGame begins a round for the team on turn. Only the leader may start,
// only from the lobby, and only when both teams have at least one member.
// Readiness and 2v2 balance are left to the client.
func (r *Room) StartGame(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	m, err := r.memberUnsafe(conn)
	if err != nil {
		return err
	}
	if !m.IsLeader {
		return reject(KindForbidden, "Only the lobby leader can start the game.")
	}
	if r.Status != models.StatusLobby {
		return reject(KindInvalidPhase, "A round can only be started from the lobby")
	}
	if len(teamMembers(r.Members, models.TeamA)) == 0 || len(teamMembers(r.Members, models.TeamB)) == 0 {
		return reject(KindPreconditionFailed, "Need at least one member per team")
	}
	r.startRoundUnsafe()
	r.logActionUnsafe(conn, "start_round", map[string]interface{}{
		"team":      string(r.TurnTeam),
		"clueGiver": r.Round.ClueGiverID.String(),
		"guesser":   r.Round.GuesserID.String(),
	})
	r.broadcastStateUnsafe()
	return nil
}

func (r *Room) startRoundUnsafe() {
	r.timer.Stop()

	card := r.deck.Draw()
	clue, guesser := nextRoles(r.Members, r.TurnTeam, r.RoleIndex.get(r.TurnTeam))
	r.deadline = r.settings.Now().Add(r.settings.RoundDuration)
	r.Round = &models.Round{
		ClueGiverID: clue,
		GuesserID:   guesser,
		CardID:      card.ID,
		EndsAt:      r.deadline.UnixMilli(),
	}
	r.Status = models.StatusLive
	r.touchUnsafe()
	r.timer.Start(r.onTimerTick)
	r.log.WithFields(logrus.Fields{"team": r.TurnTeam, "clueGiver": clue, "guesser": guesser}).Info("round started")
}

// onTimerTick runs on the timer goroutine.
func (r *Room) onTimerTick(gen uint64) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.timer.Current(gen) || r.Status != models.StatusLive || r.Round == nil {
		return
	}
	remaining := r.deadline.Sub(r.settings.Now())
	if remaining < 0 {
		remaining = 0
	}
	r.broadcastUnsafe(Event{Type: EventRoundTick, Payload: RoundTick{RemainingMs: remaining.Milliseconds()}})
	if remaining == 0 {
		r.timer.Stop()
		r.expireRoundUnsafe()
	}
}

// expireRoundUnsafe ends the round on time: the team that played advances its
// rotation cursor and the turn passes to the other team. Scores are untouched.
func (r *Room) expireRoundUnsafe() {
	played := r.TurnTeam
	advanceCursor(&r.RoleIndex, r.Members, played)
	r.Round = nil
	r.Status = models.StatusLobby
	r.TurnTeam = played.Other()
	r.touchUnsafe()
	r.log.WithField("team", played).Info("round expired")
	r.logActionUnsafe("", "round_expired", map[string]interface{}{"team": string(played)})
	r.broadcastStateUnsafe()
}

// Rematch resets an ended match back to the lobby, keeping members and teams.
func (r *Room) Rematch(conn models.ConnID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if _, err := r.memberUnsafe(conn); err != nil {
		return err
	}
	if r.Status != models.StatusEnded {
		return reject(KindInvalidPhase, "Rematch is only available once the match has ended")
	}
	r.timer.Stop()
	r.Scores = models.Scores{}
	r.Round = nil
	r.Status = models.StatusLobby
	r.deck.Reset()
	r.touchUnsafe()
	r.logActionUnsafe(conn, "rematch", nil)
	r.broadcastStateUnsafe()
	return nil
}

// CardFor returns the current card as conn may see it: the catalog entry for
// everyone but the guesser, who gets a masked placeholder.
func (r *Room) CardFor(conn models.ConnID) (CardView, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if _, err := r.memberUnsafe(conn); err != nil {
		return CardView{}, err
	}
	if r.Status != models.StatusLive || r.Round == nil {
		return CardView{}, reject(KindInvalidPhase, "No round in progress")
	}
	if conn == r.Round.GuesserID {
		return maskedCard(r.Round.CardID), nil
	}
	card, ok := r.catalog.Card(r.Round.CardID)
	if !ok {
		return CardView{}, reject(KindNotFound, "Card not found")
	}
	return CardView{ID: card.ID, Target: card.Target, Taboos: card.Taboos}, nil
}

// Snapshot returns a copy of the public room state.
func (r *Room) Snapshot() Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotUnsafe()
}

// TimerActive reports whether the round countdown is running.
func (r *Room) TimerActive() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.timer.Active()
}

// IsMember reports whether conn belongs to the room.
func (r *Room) IsMember(conn models.ConnID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.memberIndexUnsafe(conn) >= 0
}

// close stops the timer and marks the room gone. Later joins are rejected.
func (r *Room) closeUnsafe() {
	r.timer.Stop()
	r.closed = true
}

func (r *Room) snapshotUnsafe() Snapshot {
	members := make([]models.Member, len(r.Members))
	copy(members, r.Members)
	var round *models.Round
	if r.Round != nil {
		rc := *r.Round
		round = &rc
	}
	return Snapshot{
		Code:             r.Code,
		Status:           r.Status,
		Members:          members,
		Scores:           r.Scores,
		TurnTeam:         r.TurnTeam,
		RoleIndex:        r.RoleIndex,
		ScoreLimit:       r.ScoreLimit,
		RoundDurationSec: int(r.settings.RoundDuration / time.Second),
		Round:            round,
	}
}

func (r *Room) broadcastStateUnsafe() {
	r.broadcastUnsafe(Event{Type: EventRoomState, Payload: r.snapshotUnsafe()})
}

// broadcastUnsafe hands ev to every member while the lock is held, so members
// observe room events in handling order.
func (r *Room) broadcastUnsafe(ev Event) {
	if r.sender == nil {
		return
	}
	for _, m := range r.Members {
		r.sender.Send(m.ID, ev)
	}
}

func (r *Room) memberIndexUnsafe(conn models.ConnID) int {
	for i := range r.Members {
		if r.Members[i].ID == conn {
			return i
		}
	}
	return -1
}

func (r *Room) memberUnsafe(conn models.ConnID) (*models.Member, error) {
	idx := r.memberIndexUnsafe(conn)
	if idx < 0 {
		return nil, reject(KindNotFound, "You are not a member of this room")
	}
	return &r.Members[idx], nil
}

func (r *Room) touchUnsafe() {
	r.lastActivity = r.settings.Now()
}

// logActionUnsafe ships an accepted action to the action log asynchronously.
func (r *Room) logActionUnsafe(actor models.ConnID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := models.ActionRecord{
		RoomCode:      r.Code,
		ActionIndex:   r.actionIndex,
		ActorID:       actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     r.settings.Now().UnixMilli(),
	}
	go func(rec models.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.actions.Publish(ctx, rec); err != nil {
			r.log.Warnf("failed to publish action %d (%s): %v", rec.ActionIndex, rec.ActionType, err)
		}
	}(rec)
}

// normalizeName trims a display name and checks its length.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", reject(KindInvalidRequest, "Name cannot be empty")
	}
	if len([]rune(name)) > 20 {
		return "", reject(KindInvalidRequest, "Name too long (max 20 characters)")
	}
	return name, nil
}
