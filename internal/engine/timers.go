package engine

import (
	"sync"
)

// timerHandle is the cancellable handle stored on a matchEntry for each
// active poll loop. cancel stops future ticks only; an in-flight fetch runs
// to completion and is discarded if its match is gone by then.
type timerHandle struct {
	stopCh chan struct{}
	once   sync.Once
}

func (h *timerHandle) cancel() {
	h.once.Do(func() { close(h.stopCh) })
}

// armTimer starts a goroutine that fires at the poll interval until
// cancelled. fire enqueues a tick command; it must not touch registry state
// directly.
func (e *Engine) armTimer(fire func()) *timerHandle {
	h := &timerHandle{stopCh: make(chan struct{})}

	go func() {
		ticker := e.clock.NewTicker(e.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				fire()
			case <-h.stopCh:
				return
			case <-e.done:
				return
			}
		}
	}()

	return h
}

// startMainPolling performs one immediate cycle and arms the repeating
// timer. No-op when a timer is already armed, so re-entrant joins cannot
// double-schedule.
func (e *Engine) startMainPolling(entry *matchEntry) {
	if entry.mainTimer != nil {
		return
	}

	matchID := entry.id
	e.spawnMainFetch(matchID, nil)
	entry.mainTimer = e.armTimer(func() {
		_ = e.enqueue(mainTickCmd{matchID: matchID})
	})
}

// startCommentaryPolling mirrors startMainPolling for the ball-by-ball loop.
// The inning is re-derived on every tick so an innings change is picked up
// automatically.
func (e *Engine) startCommentaryPolling(entry *matchEntry) {
	if entry.commentary.timer != nil {
		return
	}

	matchID := entry.id
	e.spawnCommentaryFetch(matchID, entry.currentInning(), nil)
	entry.commentary.timer = e.armTimer(func() {
		_ = e.enqueue(commentaryTickCmd{matchID: matchID})
	})
}

func (e *Engine) stopCommentaryPolling(entry *matchEntry) {
	if entry.commentary.timer == nil {
		return
	}
	entry.commentary.timer.cancel()
	entry.commentary.timer = nil
}
