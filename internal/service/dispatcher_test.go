package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activeWorkers counts rooms that still hold a live worker queue.
func activeWorkers(d *RoomDispatcher) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

func TestDispatcherSerializesPerRoom(t *testing.T) {
	d := NewRoomDispatcher()
	defer d.Release("room1")

	// Unsynchronized read-modify-write on counter; only serial execution
	// keeps it correct.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Run("room1", func() error {
				counter++
				return nil
			}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestDispatcherReturnsError(t *testing.T) {
	d := NewRoomDispatcher()
	defer d.Release("room1")

	boom := errors.New("boom")
	err := d.Run("room1", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDispatcherIndependentRooms(t *testing.T) {
	d := NewRoomDispatcher()
	defer d.Release("a")
	defer d.Release("b")

	blockA := make(chan struct{})
	done := make(chan struct{})
	go func() {
		require.NoError(t, d.Run("a", func() error {
			<-blockA
			return nil
		}))
		close(done)
	}()

	// Room b must not queue behind room a's blocked worker.
	require.NoError(t, d.Run("b", func() error { return nil }))

	close(blockA)
	<-done
}

func TestDispatcherReleaseAndReuse(t *testing.T) {
	d := NewRoomDispatcher()

	require.NoError(t, d.Run("room1", func() error { return nil }))
	d.Release("room1")
	assert.Equal(t, 0, activeWorkers(d))

	// A new worker spins up transparently after release.
	require.NoError(t, d.Run("room1", func() error { return nil }))
	d.Release("room1")
	assert.Equal(t, 0, activeWorkers(d))
}
