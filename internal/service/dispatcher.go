package service

import "sync"

// RoomDispatcher serializes mutating calls through one goroutine per room,
// so read-modify-write sequences on shared room state never interleave.
// Storage-level atomic updates cover single-field writes; the dispatcher
// covers multi-step transitions like admitting a player into the last seat
// or advancing a round.
type RoomDispatcher struct {
	mu    sync.Mutex
	rooms map[string]chan func()
}

// NewRoomDispatcher creates a new dispatcher
func NewRoomDispatcher() *RoomDispatcher {
	return &RoomDispatcher{
		rooms: make(map[string]chan func()),
	}
}

// submit enqueues a job, starting the room's worker on first use. The send
// happens under the lock so Release can never close a queue mid-send.
func (d *RoomDispatcher) submit(roomID string, job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.rooms[roomID]
	if !ok {
		q = make(chan func(), 64)
		d.rooms[roomID] = q
		go func() {
			for j := range q {
				j()
			}
		}()
	}
	q <- job
}

// Run executes fn on the room's worker goroutine and waits for its result.
func (d *RoomDispatcher) Run(roomID string, fn func() error) error {
	done := make(chan error, 1)
	d.submit(roomID, func() {
		done <- fn()
	})
	return <-done
}

// Release stops the room's worker once its queue drains. Call when the room
// reaches a terminal status.
func (d *RoomDispatcher) Release(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.rooms[roomID]; ok {
		close(q)
		delete(d.rooms, roomID)
	}
}
