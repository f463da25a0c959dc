// internal/game/timer.go
package game

import "time"

// TickerFunc starts a periodic ticker and returns its channel and a stop func.
// Tests swap in a manually driven ticker.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is the production TickerFunc.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// RoundTimer is a room's single countdown task. All methods must be called with
// the owning room's lock held. Each Start gets a new generation; a tick callback
// must check Current(gen) under the room lock before touching state, so once
// Stop returns no stale tick can mutate the room.
type RoundTimer struct {
	interval  time.Duration
	newTicker TickerFunc

	gen    uint64
	active bool
	stop   chan struct{}
}

func newRoundTimer(interval time.Duration, tf TickerFunc) *RoundTimer {
	if tf == nil {
		tf = RealTicker
	}
	return &RoundTimer{interval: interval, newTicker: tf}
}

// Start launches the tick loop. onTick runs on the timer goroutine, without the
// room lock, once per interval until the timer is stopped.
func (t *RoundTimer) Start(onTick func(gen uint64)) uint64 {
	t.Stop()
	t.gen++
	t.active = true
	t.stop = make(chan struct{})

	gen := t.gen
	stop := t.stop
	ticks, stopTicker := t.newTicker(t.interval)
	go func() {
		defer stopTicker()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
				select {
				case <-stop:
					return
				default:
				}
				onTick(gen)
			}
		}
	}()
	return gen
}

// Stop cancels the active countdown. It reports whether one was running and is
// a no-op otherwise.
func (t *RoundTimer) Stop() bool {
	if !t.active {
		return false
	}
	t.active = false
	t.gen++
	close(t.stop)
	t.stop = nil
	return true
}

// Active reports whether a countdown is running.
func (t *RoundTimer) Active() bool {
	return t.active
}

// Current reports whether gen belongs to the running countdown.
func (t *RoundTimer) Current(gen uint64) bool {
	return t.active && t.gen == gen
}
