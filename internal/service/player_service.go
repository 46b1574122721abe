package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sinfiltro/internal/cache"
	"sinfiltro/internal/model"
	"sinfiltro/internal/repository"
)

// PlayerService handles the durable roster: join, leave, ready, kick and
// connection state. Admission shares the per-room dispatcher with the game
// service so a seat check and the insert it guards run as one unit.
type PlayerService struct {
	playerRepo  repository.PlayerRepo
	roomRepo    repository.RoomRepo
	roomSvc     *RoomService
	presence    cache.PresenceCache
	leaderboard cache.LeaderboardCache
	authSvc     *AuthService
	dispatcher  *RoomDispatcher
	broadcaster Broadcaster
}

// NewPlayerService creates a new player service
func NewPlayerService(
	playerRepo repository.PlayerRepo,
	roomRepo repository.RoomRepo,
	roomSvc *RoomService,
	presence cache.PresenceCache,
	leaderboard cache.LeaderboardCache,
	authSvc *AuthService,
	dispatcher *RoomDispatcher,
) *PlayerService {
	return &PlayerService{
		playerRepo:  playerRepo,
		roomRepo:    roomRepo,
		roomSvc:     roomSvc,
		presence:    presence,
		leaderboard: leaderboard,
		authSvc:     authSvc,
		dispatcher:  dispatcher,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *PlayerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// JoinRoom adds a player to a room's roster. Authenticated users may only
// hold one seat per room; anonymous players are always admitted while the
// room is joinable.
func (s *PlayerService) JoinRoom(ctx context.Context, code string, userID *string, displayName, avatarEmoji string) (*model.JoinResponse, error) {
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	var player *model.Player
	err = s.dispatcher.Run(room.ID, func() error {
		// Re-read inside the room's single writer so the seat count cannot
		// move between the capacity check and the insert.
		fresh, err := s.roomRepo.GetByID(ctx, room.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return ErrRoomNotFound
		}
		room = fresh

		joinErr, err := s.roomSvc.joinError(ctx, room)
		if err != nil {
			return err
		}
		if joinErr != nil {
			return joinErr
		}

		if userID != nil {
			existing, err := s.playerRepo.FindByRoomAndUser(ctx, room.ID, *userID)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrAlreadyInRoom
			}
		}

		now := time.Now()
		player = &model.Player{
			ID:          "p_" + uuid.New().String()[:8],
			RoomID:      room.ID,
			UserID:      userID,
			DisplayName: displayName,
			AvatarEmoji: avatarEmoji,
			IsHost:      false,
			IsReady:     false,
			IsConnected: false,
			JoinedAt:    now,
			LastSeenAt:  now,
		}
		if err := s.playerRepo.Create(ctx, player); err != nil {
			return fmt.Errorf("failed to save player: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomClosed) {
			s.dispatcher.Release(room.ID)
		}
		return nil, err
	}

	if err := s.leaderboard.UpdateScore(ctx, code, player.ID, 0); err != nil {
		log.Warn().Err(err).Str("playerId", player.ID).Msg("failed to init leaderboard entry")
	}

	token, err := s.authSvc.GeneratePlayerToken(code, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(code, EventPlayerJoined, player)
	}
	log.Info().Str("code", code).Str("playerId", player.ID).Msg("player joined")

	return &model.JoinResponse{
		RoomCode: code,
		PlayerID: player.ID,
		Token:    token,
		Room:     room,
		Player:   player,
	}, nil
}

// LeaveRoom hard-deletes the player's roster row. If the host leaves, the
// earliest-joined remaining player is promoted; if nobody remains the room
// is abandoned.
func (s *PlayerService) LeaveRoom(ctx context.Context, playerID string) error {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil {
		return ErrPlayerNotFound
	}

	room, err := s.roomRepo.GetByID(ctx, player.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}

	if err := s.playerRepo.Delete(ctx, playerID); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	if err := s.leaderboard.Remove(ctx, room.Code, playerID); err != nil {
		log.Warn().Err(err).Str("playerId", playerID).Msg("failed to drop leaderboard entry")
	}
	if err := s.presence.Clear(ctx, room.Code, playerID); err != nil {
		log.Warn().Err(err).Str("playerId", playerID).Msg("failed to clear presence")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(room.Code, EventPlayerLeft, player)
	}

	remaining, err := s.playerRepo.GetByRoom(ctx, room.ID)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		if !room.Status.IsTerminal() {
			if err := s.roomSvc.TransitionStatus(ctx, room, model.RoomAbandoned); err != nil {
				return err
			}
		}
		return nil
	}

	if player.IsHost {
		// GetByRoom sorts by join time, so remaining[0] is the senior player.
		next := remaining[0]
		next.IsHost = true
		next.IsReady = true
		if err := s.playerRepo.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to promote new host: %w", err)
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToRoom(room.Code, EventPlayerUpdated, next)
		}
		log.Info().Str("code", room.Code).Str("playerId", next.ID).Msg("host left, promoted new host")
	}
	return nil
}

// SetReady flips the player's ready flag.
func (s *PlayerService) SetReady(ctx context.Context, playerID string, ready bool) (*model.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	player.IsReady = ready
	if err := s.playerRepo.Update(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if s.broadcaster != nil {
		if room, _ := s.roomRepo.GetByID(ctx, player.RoomID); room != nil {
			s.broadcaster.BroadcastToRoom(room.Code, EventPlayerUpdated, player)
		}
	}
	return player, nil
}

// Kick removes a non-host player from the actor's room. Host-only.
func (s *PlayerService) Kick(ctx context.Context, actorPlayerID, targetPlayerID string) error {
	actor, err := s.playerRepo.GetByID(ctx, actorPlayerID)
	if err != nil {
		return err
	}
	if actor == nil {
		return ErrPlayerNotFound
	}
	if !actor.IsHost {
		return ErrNotHost
	}

	target, err := s.playerRepo.GetByID(ctx, targetPlayerID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrPlayerNotFound
	}
	if target.RoomID != actor.RoomID {
		return ErrWrongRoom
	}
	if target.IsHost {
		return ErrKickHost
	}

	return s.LeaveRoom(ctx, targetPlayerID)
}

// SetConnected records the durable connection flag and stamps lastSeenAt.
// The ephemeral presence key is refreshed or dropped alongside it.
func (s *PlayerService) SetConnected(ctx context.Context, playerID string, connected bool) error {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil {
		return ErrPlayerNotFound
	}

	now := time.Now()
	if err := s.playerRepo.SetConnected(ctx, playerID, connected, now); err != nil {
		return fmt.Errorf("failed to update connection state: %w", err)
	}
	player.IsConnected = connected
	player.LastSeenAt = now

	room, err := s.roomRepo.GetByID(ctx, player.RoomID)
	if err != nil || room == nil {
		return err
	}

	if connected {
		if err := s.presence.Touch(ctx, room.Code, playerID); err != nil {
			log.Warn().Err(err).Str("playerId", playerID).Msg("failed to touch presence")
		}
	} else {
		if err := s.presence.Clear(ctx, room.Code, playerID); err != nil {
			log.Warn().Err(err).Str("playerId", playerID).Msg("failed to clear presence")
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(room.Code, EventPlayerUpdated, player)
	}
	return nil
}

// Heartbeat refreshes the player's presence TTL and lastSeenAt.
func (s *PlayerService) Heartbeat(ctx context.Context, roomCode, playerID string) error {
	if err := s.presence.Touch(ctx, roomCode, playerID); err != nil {
		return err
	}
	return s.playerRepo.SetConnected(ctx, playerID, true, time.Now())
}

// GetPlayer retrieves a roster row by ID
func (s *PlayerService) GetPlayer(ctx context.Context, playerID string) (*model.Player, error) {
	return s.playerRepo.GetByID(ctx, playerID)
}

// GetRoster returns the room's players ordered by join time. Connected
// players whose presence TTL has lapsed are reported as disconnected, which
// catches sockets that died without a clean close.
func (s *PlayerService) GetRoster(ctx context.Context, roomID string) ([]*model.Player, error) {
	players, err := s.playerRepo.GetByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil || room == nil {
		return players, err
	}
	for _, p := range players {
		if !p.IsConnected {
			continue
		}
		alive, err := s.presence.Alive(ctx, room.Code, p.ID)
		if err != nil {
			log.Warn().Err(err).Str("playerId", p.ID).Msg("failed to check presence")
			continue
		}
		if !alive {
			p.IsConnected = false
		}
	}
	return players, nil
}
