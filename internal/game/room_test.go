package game

import (
	"errors"
	"testing"
	"time"

	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomSeatsReadyLeader(t *testing.T) {
	env := setupRegistry(t, 5)
	room, err := env.reg.CreateRoom("c1", "  Ann  ", 0)
	require.NoError(t, err)

	snap := room.Snapshot()
	assert.Len(t, snap.Code, 6)
	assert.Equal(t, models.StatusLobby, snap.Status)
	assert.Equal(t, models.TeamA, snap.TurnTeam)
	assert.Equal(t, DefaultScoreLimit, snap.ScoreLimit)
	assert.Equal(t, 60, snap.RoundDurationSec)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "Ann", snap.Members[0].Name)
	assert.True(t, snap.Members[0].IsLeader)
	assert.True(t, snap.Members[0].IsReady)
	assert.Equal(t, models.TeamNone, snap.Members[0].Team)
	assert.Contains(t, []int{0, 1}, snap.RoleIndex.A)
	assert.Contains(t, []int{0, 1}, snap.RoleIndex.B)

	require.NotNil(t, env.sender.lastState("c1"), "creator should receive room-state")
}

func TestJoinIsIdempotent(t *testing.T) {
	env := setupRegistry(t, 5)
	room, err := env.reg.CreateRoom("c1", "Ann", 3)
	require.NoError(t, err)

	_, err = env.reg.JoinRoom("c2", room.Code, "Bob")
	require.NoError(t, err)
	_, err = env.reg.JoinRoom("c2", room.Code, "Bob")
	require.NoError(t, err)

	snap := room.Snapshot()
	require.Len(t, snap.Members, 2)
	assert.False(t, snap.Members[1].IsLeader)
	assert.False(t, snap.Members[1].IsReady)
	assert.Equal(t, 3, snap.ScoreLimit)
}

func TestSetTeamAndToggleReady(t *testing.T) {
	env := setupRegistry(t, 5)
	room, _ := env.reg.CreateRoom("c1", "Ann", 0)

	require.NoError(t, room.SetTeam("c1", models.TeamB))
	require.NoError(t, room.ToggleReady("c1"))

	snap := room.Snapshot()
	assert.Equal(t, models.TeamB, snap.Members[0].Team)
	assert.False(t, snap.Members[0].IsReady)

	err := room.SetTeam("c1", models.Team("C"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	err = room.ToggleReady("stranger")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartGameGuards(t *testing.T) {
	env := setupRegistry(t, 5)
	room, _ := env.reg.CreateRoom("leader", "Lea", 0)
	_, _ = env.reg.JoinRoom("other", room.Code, "Oz")

	err := room.StartGame("other")
	assert.ErrorIs(t, err, ErrForbidden)
	var ae *ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Only the lobby leader can start the game.", ae.Message)

	err = room.StartGame("leader")
	assert.ErrorIs(t, err, ErrPreconditionFailed, "teams are empty")
	assertLiveInvariant(t, room)
	assert.Equal(t, models.StatusLobby, room.Snapshot().Status)

	require.NoError(t, room.SetTeam("leader", models.TeamA))
	require.NoError(t, room.SetTeam("other", models.TeamB))
	require.NoError(t, room.StartGame("leader"))
	assertLiveInvariant(t, room)

	err = room.StartGame("leader")
	assert.ErrorIs(t, err, ErrInvalidPhase)
	err = room.SetTeam("other", models.TeamA)
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestStartGameAssignsRolesFromCursor(t *testing.T) {
	env := setupRegistry(t, 5)
	room, _ := env.reg.CreateRoom("a1", "A1", 0)
	for _, id := range []models.ConnID{"a2", "a3", "b1"} {
		_, err := env.reg.JoinRoom(id, room.Code, string(id))
		require.NoError(t, err)
	}
	for _, id := range []models.ConnID{"a1", "a2", "a3"} {
		require.NoError(t, room.SetTeam(id, models.TeamA))
	}
	require.NoError(t, room.SetTeam("b1", models.TeamB))

	room.Mu.Lock()
	room.RoleIndex.A = 1
	room.Mu.Unlock()

	require.NoError(t, room.StartGame("a1"))
	snap := room.Snapshot()
	require.NotNil(t, snap.Round)
	assert.Equal(t, models.ConnID("a2"), snap.Round.GuesserID)
	assert.Equal(t, models.ConnID("a3"), snap.Round.ClueGiverID)
	assert.Equal(t, env.clock.Now().Add(time.Minute).UnixMilli(), snap.Round.EndsAt)
}

func TestScoreLimitEndsMatch(t *testing.T) {
	env, room, leader, other := setupMatch(t, 2)
	require.NoError(t, room.StartGame(leader))

	// Single-member team: leader is both clue-giver and guesser.
	snap := room.Snapshot()
	require.Equal(t, leader, snap.Round.ClueGiverID)
	require.Equal(t, leader, snap.Round.GuesserID)
	firstCard := snap.Round.CardID

	require.NoError(t, room.MarkCorrect(leader))
	snap = room.Snapshot()
	assert.Equal(t, 1, snap.Scores.A)
	assert.Equal(t, models.StatusLive, snap.Status)
	assert.NotEqual(t, firstCard, snap.Round.CardID, "a fresh card is drawn after scoring")
	assertLiveInvariant(t, room)

	require.NoError(t, room.MarkCorrect(leader))
	snap = room.Snapshot()
	assert.Equal(t, 2, snap.Scores.A)
	assert.Equal(t, models.StatusEnded, snap.Status)
	assert.Nil(t, snap.Round)
	assertLiveInvariant(t, room)

	final := env.sender.lastState(other)
	require.NotNil(t, final)
	assert.Equal(t, models.StatusEnded, final.Status)

	err := room.MarkCorrect(leader)
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestPassAndViolationCostAPoint(t *testing.T) {
	_, room, leader, other := setupMatch(t, 5)
	require.NoError(t, room.StartGame(leader))

	require.NoError(t, room.Pass(leader))
	assert.Equal(t, -1, room.Snapshot().Scores.A)

	require.NoError(t, room.BuzzViolation(other))
	assert.Equal(t, -2, room.Snapshot().Scores.A)
	assert.Equal(t, 0, room.Snapshot().Scores.B)

	err := room.BuzzViolation(leader)
	assert.ErrorIs(t, err, ErrForbidden, "team on turn cannot buzz itself")
	err = room.Pass(other)
	assert.ErrorIs(t, err, ErrForbidden)
	err = room.MarkCorrect(other)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, -2, room.Snapshot().Scores.A)
	assertLiveInvariant(t, room)
}

func TestSubmitGuess(t *testing.T) {
	_, room, leader, other := setupMatch(t, 5)
	require.NoError(t, room.StartGame(leader))

	room.Mu.Lock()
	card, _ := room.catalog.Card(room.Round.CardID)
	room.Mu.Unlock()

	ok, err := room.SubmitGuess(leader, "definitely wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, room.Snapshot().Scores.A)

	_, err = room.SubmitGuess(other, card.Target)
	assert.ErrorIs(t, err, ErrForbidden)

	ok, err = room.SubmitGuess(leader, "  "+card.Target+" ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, room.Snapshot().Scores.A)
}

func TestCardMaskedForGuesser(t *testing.T) {
	env := setupRegistry(t, 5)
	room, _ := env.reg.CreateRoom("g", "Gus", 0)
	_, _ = env.reg.JoinRoom("c", room.Code, "Cat")
	_, _ = env.reg.JoinRoom("o", room.Code, "Opp")
	require.NoError(t, room.SetTeam("g", models.TeamA))
	require.NoError(t, room.SetTeam("c", models.TeamA))
	require.NoError(t, room.SetTeam("o", models.TeamB))

	_, err := room.CardFor("g")
	assert.ErrorIs(t, err, ErrInvalidPhase)

	require.NoError(t, room.StartGame("g"))
	snap := room.Snapshot()
	guesser, clue := snap.Round.GuesserID, snap.Round.ClueGiverID
	require.NotEqual(t, guesser, clue)

	masked, err := room.CardFor(guesser)
	require.NoError(t, err)
	assert.True(t, masked.Masked)
	assert.Equal(t, MaskedText, masked.Target)
	assert.Len(t, masked.Taboos, MaskedTabooCount)
	for _, w := range masked.Taboos {
		assert.Equal(t, MaskedText, w)
	}

	for _, viewer := range []models.ConnID{clue, "o"} {
		view, err := room.CardFor(viewer)
		require.NoError(t, err)
		assert.False(t, view.Masked)
		assert.Equal(t, snap.Round.CardID, view.ID)
		assert.NotEqual(t, MaskedText, view.Target)
		assert.Len(t, view.Taboos, 3)
	}

	_, err = room.CardFor("stranger")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoundExpiresOnDeadline(t *testing.T) {
	env, room, leader, other := setupMatch(t, 7)
	require.NoError(t, room.StartGame(leader))

	env.clock.Advance(30 * time.Second)
	env.ticker.tick(t)
	assert.Eventually(t, func() bool {
		return len(env.sender.of(other, EventRoundTick)) == 1
	}, time.Second, 5*time.Millisecond)
	tick := env.sender.of(other, EventRoundTick)[0].Payload.(RoundTick)
	assert.Equal(t, int64(30000), tick.RemainingMs)
	assert.Equal(t, models.StatusLive, room.Snapshot().Status)

	env.clock.Advance(31 * time.Second)
	env.ticker.tick(t)
	assert.Eventually(t, func() bool {
		return room.Snapshot().Status == models.StatusLobby
	}, time.Second, 5*time.Millisecond)

	snap := room.Snapshot()
	assert.Nil(t, snap.Round)
	assert.Equal(t, models.TeamB, snap.TurnTeam)
	assert.Equal(t, models.Scores{}, snap.Scores)
	assert.Equal(t, 0, snap.RoleIndex.A, "cursor wraps on a one-member team")
	assertLiveInvariant(t, room)

	ticks := env.sender.of(other, EventRoundTick)
	assert.Equal(t, int64(0), ticks[len(ticks)-1].Payload.(RoundTick).RemainingMs)
}

func TestRoundExpiresWithRealTicker(t *testing.T) {
	env := setupRegistry(t, 5)
	env.reg.settings.RoundDuration = 50 * time.Millisecond
	env.reg.settings.TickInterval = 5 * time.Millisecond
	env.reg.settings.Now = time.Now
	env.reg.settings.NewTicker = RealTicker

	room, _ := env.reg.CreateRoom("a1", "A1", 0)
	_, _ = env.reg.JoinRoom("a2", room.Code, "A2")
	_, _ = env.reg.JoinRoom("b1", room.Code, "B1")
	require.NoError(t, room.SetTeam("a1", models.TeamA))
	require.NoError(t, room.SetTeam("a2", models.TeamA))
	require.NoError(t, room.SetTeam("b1", models.TeamB))
	cursor := room.Snapshot().RoleIndex.A

	require.NoError(t, room.StartGame("a1"))
	assert.True(t, room.TimerActive())

	assert.Eventually(t, func() bool {
		return room.Snapshot().Status == models.StatusLobby
	}, 2*time.Second, 10*time.Millisecond)

	snap := room.Snapshot()
	assert.Equal(t, (cursor+1)%2, snap.RoleIndex.A)
	assert.Equal(t, models.TeamB, snap.TurnTeam)
	assert.Equal(t, models.Scores{}, snap.Scores)
	assert.False(t, room.TimerActive())
}

func TestStaleTickAfterMatchEndIsIgnored(t *testing.T) {
	env, room, leader, _ := setupMatch(t, 1)
	require.NoError(t, room.StartGame(leader))

	room.Mu.Lock()
	gen := room.timer.gen
	room.Mu.Unlock()

	require.NoError(t, room.MarkCorrect(leader))
	require.Equal(t, models.StatusEnded, room.Snapshot().Status)
	env.sender.clear()

	env.clock.Advance(2 * time.Minute)
	room.onTimerTick(gen)

	assert.Empty(t, env.sender.of(leader, EventRoundTick))
	assert.Empty(t, env.sender.of(leader, EventRoomState))
	assert.Equal(t, models.StatusEnded, room.Snapshot().Status)
}

func TestRematch(t *testing.T) {
	_, room, leader, other := setupMatch(t, 1)

	err := room.Rematch(other)
	assert.ErrorIs(t, err, ErrInvalidPhase)

	require.NoError(t, room.StartGame(leader))
	require.NoError(t, room.MarkCorrect(leader))
	require.Equal(t, models.StatusEnded, room.Snapshot().Status)

	require.NoError(t, room.Rematch(other))
	snap := room.Snapshot()
	assert.Equal(t, models.StatusLobby, snap.Status)
	assert.Equal(t, models.Scores{}, snap.Scores)
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, models.TeamA, snap.Members[0].Team)
	assertLiveInvariant(t, room)

	room.Mu.Lock()
	assert.Equal(t, 10, room.deck.Remaining())
	room.Mu.Unlock()
}

func TestLeaderLeavesHandsOff(t *testing.T) {
	env := setupRegistry(t, 5)
	room, _ := env.reg.CreateRoom("c1", "Ann", 0)
	_, _ = env.reg.JoinRoom("c2", room.Code, "Bob")
	_, _ = env.reg.JoinRoom("c3", room.Code, "Cid")

	env.reg.Disconnect("c1")
	snap := room.Snapshot()
	require.Len(t, snap.Members, 2)
	assert.Equal(t, models.ConnID("c2"), snap.Members[0].ID)
	assert.True(t, snap.Members[0].IsLeader)
	assert.False(t, snap.Members[1].IsLeader)
}

func TestLeaveDuringRoundKeepsRoundRunning(t *testing.T) {
	env, room, leader, other := setupMatch(t, 5)
	require.NoError(t, room.StartGame(leader))

	env.reg.Disconnect(other)
	snap := room.Snapshot()
	assert.Equal(t, models.StatusLive, snap.Status)
	assert.Len(t, snap.Members, 1)
	assertLiveInvariant(t, room)
}

func TestRejectedActionsLeaveStateUntouched(t *testing.T) {
	env, room, leader, other := setupMatch(t, 5)
	before := room.Snapshot()
	env.sender.clear()

	assert.Error(t, room.StartGame(other))
	assert.Error(t, room.Pass(leader))
	assert.Error(t, room.Rematch(leader))
	_, err := room.CardFor(other)
	assert.Error(t, err)

	assert.Equal(t, before, room.Snapshot())
	assert.Empty(t, env.sender.of(leader, EventRoomState))
	assert.Empty(t, env.sender.of(other, EventRoomState))
}

func TestAcceptedActionsAreLogged(t *testing.T) {
	env, room, leader, _ := setupMatch(t, 1)
	require.NoError(t, room.StartGame(leader))
	require.NoError(t, room.MarkCorrect(leader))

	assert.Eventually(t, func() bool {
		return len(env.log.types()) == 7
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{
		"create", "join", "set_team", "set_team", "start_round", "correct", "match_ended",
	}, env.log.types())
}

func TestNormalizeName(t *testing.T) {
	name, err := normalizeName("  Zed ")
	require.NoError(t, err)
	assert.Equal(t, "Zed", name)

	_, err = normalizeName("   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = normalizeName("abcdefghijklmnopqrstu")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestJoinerLeadsRoomLeftEmpty(t *testing.T) {
	env := setupRegistry(t, 5)
	room, err := env.reg.CreateRoom("c1", "Ann", 0)
	require.NoError(t, err)
	env.reg.Disconnect("c1")
	require.Empty(t, room.Snapshot().Members)

	_, err = env.reg.JoinRoom("c2", room.Code, "Bob")
	require.NoError(t, err)
	_, err = env.reg.JoinRoom("c3", room.Code, "Cid")
	require.NoError(t, err)

	snap := room.Snapshot()
	leaders := 0
	for _, m := range snap.Members {
		if m.IsLeader {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
	assert.True(t, snap.Members[0].IsLeader)
	assert.True(t, snap.Members[0].IsReady)
	assert.False(t, snap.Members[1].IsLeader)

	require.NoError(t, room.SetTeam("c2", models.TeamA))
	require.NoError(t, room.SetTeam("c3", models.TeamB))
	assert.ErrorIs(t, room.StartGame("c3"), ErrForbidden)
	require.NoError(t, room.StartGame("c2"))
	assertLiveInvariant(t, room)
}
