package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockSender collects events per connection instead of writing to sockets.
type mockSender struct {
	mu     sync.Mutex
	events map[models.ConnID][]Event
}

func newMockSender() *mockSender {
	return &mockSender{events: make(map[models.ConnID][]Event)}
}

func (ms *mockSender) Send(to models.ConnID, ev Event) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events[to] = append(ms.events[to], ev)
}

func (ms *mockSender) clear() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = make(map[models.ConnID][]Event)
}

func (ms *mockSender) of(conn models.ConnID, typ EventType) []Event {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []Event
	for _, ev := range ms.events[conn] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (ms *mockSender) lastState(conn models.ConnID) *Snapshot {
	states := ms.of(conn, EventRoomState)
	if len(states) == 0 {
		return nil
	}
	snap := states[len(states)-1].Payload.(Snapshot)
	return &snap
}

// fakeClock is a settable clock for deterministic deadlines.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// manualTicker hands the timer a channel the test drives by hand.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) new(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() {}
}

// tick blocks until the running timer goroutine has taken the tick.
func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("no timer goroutine accepted the tick")
	}
}

// recordingLog is an in-memory ActionLog.
type recordingLog struct {
	mu      sync.Mutex
	records []models.ActionRecord
}

func (l *recordingLog) Publish(_ context.Context, rec models.ActionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *recordingLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.records))
	for i, r := range l.records {
		out[i] = r.ActionType
	}
	return out
}

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{
			ID:     string(rune('a' + i)),
			Target: "word" + string(rune('a'+i)),
			Taboos: []string{"t1", "t2", "t3"},
		}
	}
	c, err := catalog.New(cards)
	require.NoError(t, err)
	return c
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testEnv struct {
	reg    *Registry
	sender *mockSender
	clock  *fakeClock
	ticker *manualTicker
	log    *recordingLog
}

func setupRegistry(t *testing.T, cards int) *testEnv {
	t.Helper()
	env := &testEnv{
		sender: newMockSender(),
		clock:  newFakeClock(),
		ticker: newManualTicker(),
		log:    &recordingLog{},
	}
	env.reg = NewRegistry(testCatalog(t, cards), Settings{
		RoundDuration:     time.Minute,
		TickInterval:      200 * time.Millisecond,
		DefaultScoreLimit: 7,
		Now:               env.clock.Now,
		NewTicker:         env.ticker.new,
	}, env.sender, env.log, quietLogger())
	t.Cleanup(env.reg.Shutdown)
	return env
}

// setupMatch creates a room with the leader on team A and one member on team B.
func setupMatch(t *testing.T, scoreLimit int) (*testEnv, *Room, models.ConnID, models.ConnID) {
	t.Helper()
	env := setupRegistry(t, 10)
	leader, other := models.ConnID("leader"), models.ConnID("other")
	room, err := env.reg.CreateRoom(leader, "Lea", scoreLimit)
	require.NoError(t, err)
	_, err = env.reg.JoinRoom(other, room.Code, "Oz")
	require.NoError(t, err)
	require.NoError(t, room.SetTeam(leader, models.TeamA))
	require.NoError(t, room.SetTeam(other, models.TeamB))
	return env, room, leader, other
}

// assertLiveInvariant checks status == live exactly when a round exists, and
// that a timer runs exactly while live.
func assertLiveInvariant(t *testing.T, room *Room) {
	t.Helper()
	room.Mu.Lock()
	defer room.Mu.Unlock()
	live := room.Status == models.StatusLive
	require.Equal(t, live, room.Round != nil, "live must coincide with an active round")
	require.Equal(t, live, room.timer.Active(), "timer must run exactly while live")
}
