package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sinfiltro/internal/cache"
	"sinfiltro/internal/model"
	"sinfiltro/internal/repository"
)

// RoomService handles room lifecycle: creation, config, status transitions
// and joinability.
type RoomService struct {
	roomRepo    repository.RoomRepo
	playerRepo  repository.PlayerRepo
	roomCache   cache.RoomCache
	authSvc     *AuthService
	broadcaster Broadcaster
	onTerminal  func(room *model.Room)
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo repository.RoomRepo,
	playerRepo repository.PlayerRepo,
	roomCache cache.RoomCache,
	authSvc *AuthService,
) *RoomService {
	return &RoomService{
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		roomCache:  roomCache,
		authSvc:    authSvc,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// setTerminalHook registers the callback fired after a room reaches a
// terminal status, so per-room resources can be torn down.
func (s *RoomService) setTerminalHook(fn func(room *model.Room)) {
	s.onTerminal = fn
}

// CreateRoom creates a room plus its host player row. The host may be
// anonymous (nil userID). If the host row cannot be written the room is
// deleted again rather than left orphaned.
func (s *RoomService) CreateRoom(ctx context.Context, hostUserID *string, displayName, avatarEmoji string, overrides *model.RoomConfigPatch) (*model.JoinResponse, error) {
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}

	cfg := overrides.Apply(model.DefaultRoomConfig())
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate room code: %w", err)
	}

	now := time.Now()
	room := &model.Room{
		ID:        "r_" + uuid.New().String()[:8],
		Code:      code,
		HostID:    hostUserID,
		Status:    model.RoomWaiting,
		Config:    cfg,
		CreatedAt: now,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	host := &model.Player{
		ID:          "p_" + uuid.New().String()[:8],
		RoomID:      room.ID,
		UserID:      hostUserID,
		DisplayName: displayName,
		AvatarEmoji: avatarEmoji,
		IsHost:      true,
		IsReady:     true, // host is always ready
		IsConnected: false,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	if err := s.playerRepo.Create(ctx, host); err != nil {
		// Compensating cleanup so no hostless room is left behind.
		if delErr := s.roomRepo.Delete(ctx, room.ID); delErr != nil {
			log.Error().Err(delErr).Str("roomId", room.ID).Msg("failed to clean up orphaned room")
		}
		return nil, fmt.Errorf("failed to create host player: %w", err)
	}

	meta := &model.RoomMeta{
		RoomID:        room.ID,
		Status:        room.Status,
		MaxPlayers:    cfg.MaxPlayers,
		AllowLateJoin: cfg.AllowLateJoin,
		CreatedAt:     now,
	}
	if err := s.roomCache.SetMeta(ctx, code, meta); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to cache room meta")
	}

	token, err := s.authSvc.GeneratePlayerToken(code, host.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Info().Str("code", code).Str("roomId", room.ID).Msg("room created")

	return &model.JoinResponse{
		RoomCode: code,
		PlayerID: host.ID,
		Token:    token,
		Room:     room,
		Player:   host,
	}, nil
}

// GetRoomByCode retrieves a room by its shareable code
func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	return s.roomRepo.GetByCode(ctx, code)
}

// GetRoomByID retrieves a room by ID
func (s *RoomService) GetRoomByID(ctx context.Context, id string) (*model.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

// UpdateConfig shallow-merges a partial config. Host-only, waiting rooms only.
func (s *RoomService) UpdateConfig(ctx context.Context, roomID, actorPlayerID string, patch *model.RoomConfigPatch) (*model.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.Status != model.RoomWaiting {
		return nil, ErrRoomNotWaiting
	}

	// Host flag is checked fresh from the roster, never trusted from the client.
	actor, err := s.playerRepo.GetByID(ctx, actorPlayerID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.RoomID != room.ID {
		return nil, ErrPlayerNotFound
	}
	if !actor.IsHost {
		return nil, ErrNotHost
	}

	merged := patch.Apply(room.Config)
	if err := validateConfig(merged); err != nil {
		return nil, err
	}
	room.Config = merged

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	meta := &model.RoomMeta{
		RoomID:        room.ID,
		Status:        room.Status,
		MaxPlayers:    merged.MaxPlayers,
		AllowLateJoin: merged.AllowLateJoin,
		CreatedAt:     room.CreatedAt,
	}
	if err := s.roomCache.SetMeta(ctx, room.Code, meta); err != nil {
		log.Warn().Err(err).Str("code", room.Code).Msg("failed to refresh room meta")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(room.Code, EventConfigUpdated, room)
	}
	return room, nil
}

// IsJoinable answers whether a new player may enter the room right now.
func (s *RoomService) IsJoinable(ctx context.Context, code string) (*model.Joinability, error) {
	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return &model.Joinability{Joinable: false, Reason: ErrRoomNotFound.Error()}, nil
	}
	if joinErr, err := s.joinError(ctx, room); err != nil {
		return nil, err
	} else if joinErr != nil {
		return &model.Joinability{Joinable: false, Reason: joinErr.Error()}, nil
	}
	return &model.Joinability{Joinable: true}, nil
}

// joinError returns the sentinel blocking a join, or nil when joinable.
func (s *RoomService) joinError(ctx context.Context, room *model.Room) (joinErr error, err error) {
	if room.Status.IsTerminal() {
		return ErrRoomClosed, nil
	}
	if room.Status == model.RoomPlaying && !room.Config.AllowLateJoin {
		return ErrGameStarted, nil
	}
	count, err := s.playerRepo.CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if count >= int64(room.Config.MaxPlayers) {
		return ErrRoomFull, nil
	}
	return nil, nil
}

// TransitionStatus moves the room through its lifecycle, stamping startedAt
// and finishedAt as required, and pushes the change to all clients.
func (s *RoomService) TransitionStatus(ctx context.Context, room *model.Room, next model.RoomStatus) error {
	if !room.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrBadTransition, room.Status, next)
	}

	now := time.Now()
	room.Status = next
	switch next {
	case model.RoomPlaying:
		room.StartedAt = &now
	case model.RoomFinished:
		room.FinishedAt = &now
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	if err := s.roomCache.SetStatus(ctx, room.Code, next); err != nil {
		log.Warn().Err(err).Str("code", room.Code).Msg("failed to update cached room status")
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(room.Code, EventRoomUpdated, room)
	}
	if next.IsTerminal() && s.onTerminal != nil {
		s.onTerminal(room)
	}
	return nil
}

// generateRoomCode creates an unambiguous 6-char alphanumeric code
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		cached, err := s.roomCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if cached {
			continue
		}
		existing, err := s.roomRepo.GetByCode(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}

func validateDisplayName(name string) error {
	if len(name) < 2 || len(name) > 30 {
		return fmt.Errorf("%w: display name must be 2-30 characters", ErrInvalidInput)
	}
	return nil
}

func validateConfig(cfg model.RoomConfig) error {
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidInput)
	}
	for _, c := range cfg.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, c)
		}
	}
	if cfg.Intensity < 1 || cfg.Intensity > 3 {
		return fmt.Errorf("%w: intensity must be between 1 and 3", ErrInvalidInput)
	}
	if cfg.MinPlayers < 3 || cfg.MinPlayers > 12 {
		return fmt.Errorf("%w: minPlayers must be between 3 and 12", ErrInvalidInput)
	}
	if cfg.MaxPlayers < 3 || cfg.MaxPlayers > 12 {
		return fmt.Errorf("%w: maxPlayers must be between 3 and 12", ErrInvalidInput)
	}
	if cfg.MinPlayers > cfg.MaxPlayers {
		return fmt.Errorf("%w: minPlayers cannot exceed maxPlayers", ErrInvalidInput)
	}
	if cfg.RoundsPerGame < 5 || cfg.RoundsPerGame > 30 {
		return fmt.Errorf("%w: roundsPerGame must be between 5 and 30", ErrInvalidInput)
	}
	if cfg.TimePerRound < 15 || cfg.TimePerRound > 120 {
		return fmt.Errorf("%w: timePerRound must be between 15 and 120 seconds", ErrInvalidInput)
	}
	return nil
}
