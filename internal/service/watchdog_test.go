package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type firedRound struct {
	roomID    string
	sessionID string
	round     int
}

func collectFires() (*RoundWatchdog, func() []firedRound) {
	var mu sync.Mutex
	var fires []firedRound
	w := NewRoundWatchdog(func(roomID, sessionID string, round int) {
		mu.Lock()
		defer mu.Unlock()
		fires = append(fires, firedRound{roomID, sessionID, round})
	})
	return w, func() []firedRound {
		mu.Lock()
		defer mu.Unlock()
		return append([]firedRound(nil), fires...)
	}
}

func TestWatchdogFiresAfterDeadline(t *testing.T) {
	w, fires := collectFires()
	defer w.Cancel("r_1")

	// Deadline already past the grace window, fires immediately.
	w.Schedule("r_1", "s_1", 3, time.Now().Add(-watchdogGrace))

	assert.Eventually(t, func() bool {
		f := fires()
		return len(f) == 1 && f[0] == firedRound{"r_1", "s_1", 3}
	}, time.Second, 10*time.Millisecond)
}

func TestWatchdogRescheduleReplacesTimer(t *testing.T) {
	w, fires := collectFires()
	defer w.Cancel("r_1")

	w.Schedule("r_1", "s_1", 1, time.Now().Add(time.Hour))
	w.Schedule("r_1", "s_1", 2, time.Now().Add(-watchdogGrace))

	assert.Eventually(t, func() bool {
		f := fires()
		return len(f) == 1 && f[0].round == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWatchdogCancel(t *testing.T) {
	w, fires := collectFires()

	w.Schedule("r_1", "s_1", 1, time.Now().Add(-watchdogGrace))
	w.Cancel("r_1")

	// Cancel may lose the race against an already-firing timer, but a
	// timer armed for the future must never fire once cancelled.
	w.Schedule("r_2", "s_2", 1, time.Now().Add(time.Hour))
	w.Cancel("r_2")

	time.Sleep(50 * time.Millisecond)
	for _, f := range fires() {
		assert.NotEqual(t, "r_2", f.roomID)
	}
}
