package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinfiltro/internal/model"
)

func TestJoinRoom(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)

	resp, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "🐸")
	require.NoError(t, err)

	assert.Equal(t, host.RoomCode, resp.RoomCode)
	assert.False(t, resp.Player.IsHost)
	assert.False(t, resp.Player.IsReady)
	assert.NotEmpty(t, resp.Token)

	claims, err := env.authSvc.ValidatePlayerToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.PlayerID, claims.PlayerID)

	assert.Contains(t, env.broadcast.eventTypes(), EventPlayerJoined)
}

func TestJoinRoomDuplicateUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)

	userID := strPtr("u_123")
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, userID, "Luis", "")
	require.NoError(t, err)

	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, userID, "Luis again", "")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	// Anonymous players never collide.
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Ana", "")
	require.NoError(t, err)
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Ana encore", "")
	require.NoError(t, err)
}

func TestJoinRoomRejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.playerSvc.JoinRoom(ctx, "ZZZZZZ", nil, "Luis", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", &model.RoomConfigPatch{
		MinPlayers: intPtr(3),
		MaxPlayers: intPtr(3),
	})
	require.NoError(t, err)

	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Ana", "")
	require.NoError(t, err)

	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Pedro", "")
	assert.ErrorIs(t, err, ErrRoomFull)

	room, _ := env.roomRepo.GetByID(ctx, host.Room.ID)
	require.NoError(t, env.roomSvc.TransitionStatus(ctx, room, model.RoomAbandoned))
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Pedro", "")
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.Equal(t, 0, activeWorkers(env.dispatcher), "a closed-room join must not leave a worker behind")
}

func TestJoinRoomConcurrentLastSeat(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", &model.RoomConfigPatch{
		MinPlayers: intPtr(3),
		MaxPlayers: intPtr(3),
	})
	require.NoError(t, err)
	_, err = env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)

	// One seat left; a burst of joins must admit exactly one player.
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, fmt.Sprintf("Guest%d", n), "")
			if err == nil {
				atomic.AddInt32(&admitted, 1)
			} else {
				assert.ErrorIs(t, err, ErrRoomFull)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, admitted)
	count, err := env.playerRepo.CountByRoom(ctx, host.Room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count, "the roster must never exceed maxPlayers")
}

func TestLeaveRoomPromotesNewHost(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	second, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)
	third, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Ana", "")
	require.NoError(t, err)

	require.NoError(t, env.playerSvc.LeaveRoom(ctx, host.PlayerID))

	// The earliest-joined remaining player inherits the room.
	promoted, err := env.playerRepo.GetByID(ctx, second.PlayerID)
	require.NoError(t, err)
	assert.True(t, promoted.IsHost)
	assert.True(t, promoted.IsReady)

	other, _ := env.playerRepo.GetByID(ctx, third.PlayerID)
	assert.False(t, other.IsHost)
}

func TestLeaveRoomLastPlayerAbandons(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)

	// Give the room a live worker so teardown has something to reclaim.
	require.NoError(t, env.dispatcher.Run(host.Room.ID, func() error { return nil }))

	require.NoError(t, env.playerSvc.LeaveRoom(ctx, host.PlayerID))

	room, err := env.roomRepo.GetByID(ctx, host.Room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAbandoned, room.Status)

	gone, err := env.playerRepo.GetByID(ctx, host.PlayerID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.Contains(t, env.broadcast.eventTypes(), "disconnect_room")
	assert.Equal(t, 0, activeWorkers(env.dispatcher))
}

func TestSetReady(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	guest, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)

	p, err := env.playerSvc.SetReady(ctx, guest.PlayerID, true)
	require.NoError(t, err)
	assert.True(t, p.IsReady)

	p, err = env.playerSvc.SetReady(ctx, guest.PlayerID, false)
	require.NoError(t, err)
	assert.False(t, p.IsReady)

	_, err = env.playerSvc.SetReady(ctx, "p_ghost", true)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestKick(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	guest, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)

	require.NoError(t, env.playerSvc.Kick(ctx, host.PlayerID, guest.PlayerID))

	gone, err := env.playerRepo.GetByID(ctx, guest.PlayerID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestKickRejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	guest, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)

	err = env.playerSvc.Kick(ctx, guest.PlayerID, host.PlayerID)
	assert.ErrorIs(t, err, ErrNotHost)

	err = env.playerSvc.Kick(ctx, host.PlayerID, host.PlayerID)
	assert.ErrorIs(t, err, ErrKickHost)

	stranger, err := env.roomSvc.CreateRoom(ctx, nil, "Ana", "", nil)
	require.NoError(t, err)
	err = env.playerSvc.Kick(ctx, host.PlayerID, stranger.PlayerID)
	assert.ErrorIs(t, err, ErrWrongRoom)
}

func TestSetConnected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)

	require.NoError(t, env.playerSvc.SetConnected(ctx, host.PlayerID, true))

	p, _ := env.playerRepo.GetByID(ctx, host.PlayerID)
	assert.True(t, p.IsConnected)

	alive, err := env.presence.Alive(ctx, host.RoomCode, host.PlayerID)
	require.NoError(t, err)
	assert.True(t, alive)

	require.NoError(t, env.playerSvc.SetConnected(ctx, host.PlayerID, false))

	p, _ = env.playerRepo.GetByID(ctx, host.PlayerID)
	assert.False(t, p.IsConnected)

	alive, _ = env.presence.Alive(ctx, host.RoomCode, host.PlayerID)
	assert.False(t, alive)
}

func TestGetRosterMarksStaleConnections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	guest, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, "Luis", "")
	require.NoError(t, err)

	require.NoError(t, env.playerSvc.SetConnected(ctx, host.PlayerID, true))
	require.NoError(t, env.playerSvc.SetConnected(ctx, guest.PlayerID, true))

	roster, err := env.playerSvc.GetRoster(ctx, host.Room.ID)
	require.NoError(t, err)
	assert.True(t, roster[0].IsConnected)
	assert.True(t, roster[1].IsConnected)

	// A lapsed presence key means the socket died without a clean close;
	// the roster reports that player as disconnected.
	require.NoError(t, env.presence.Clear(ctx, host.RoomCode, guest.PlayerID))

	roster, err = env.playerSvc.GetRoster(ctx, host.Room.ID)
	require.NoError(t, err)
	assert.True(t, roster[0].IsConnected)
	assert.False(t, roster[1].IsConnected)

	stored, _ := env.playerRepo.GetByID(ctx, guest.PlayerID)
	assert.True(t, stored.IsConnected, "the durable flag is untouched until the socket closes properly")
}

func TestGetRosterOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	host, err := env.roomSvc.CreateRoom(ctx, nil, "Marta", "", nil)
	require.NoError(t, err)
	for _, name := range []string{"Luis", "Ana", "Pedro"} {
		_, err := env.playerSvc.JoinRoom(ctx, host.RoomCode, nil, name, "")
		require.NoError(t, err)
	}

	roster, err := env.playerSvc.GetRoster(ctx, host.Room.ID)
	require.NoError(t, err)
	require.Len(t, roster, 4)
	assert.Equal(t, host.PlayerID, roster[0].ID, "roster is ordered by join time")
}
