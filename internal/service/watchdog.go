package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// watchdogGrace is how far past roundEndsAt the server waits before forcing
// an advance, leaving room for the host client's own timer to fire first.
const watchdogGrace = 3 * time.Second

// RoundWatchdog force-advances rounds whose deadline passed without any
// client calling advance, so a disconnected or idle host cannot stall a
// room forever. One timer per room, rescheduled on every round start.
type RoundWatchdog struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   func(roomID, sessionID string, round int)
}

// NewRoundWatchdog creates a watchdog that calls fire when a round expires.
func NewRoundWatchdog(fire func(roomID, sessionID string, round int)) *RoundWatchdog {
	return &RoundWatchdog{
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// Schedule arms (or re-arms) the room's timer for the given round deadline.
func (w *RoundWatchdog) Schedule(roomID, sessionID string, round int, endsAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.timers[roomID]; ok {
		existing.Stop()
	}
	delay := time.Until(endsAt) + watchdogGrace
	if delay < 0 {
		delay = 0
	}
	w.timers[roomID] = time.AfterFunc(delay, func() {
		log.Info().
			Str("roomId", roomID).
			Int("round", round).
			Msg("round deadline passed, forcing advance")
		w.fire(roomID, sessionID, round)
	})
}

// Cancel disarms the room's timer, if any.
func (w *RoundWatchdog) Cancel(roomID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[roomID]; ok {
		timer.Stop()
		delete(w.timers, roomID)
	}
}
