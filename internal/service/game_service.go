package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sinfiltro/internal/cache"
	"sinfiltro/internal/model"
	"sinfiltro/internal/repository"
)

// showingQuestionDuration is the fixed reveal window before answering opens.
const showingQuestionDuration = 5 * time.Second

// opTimeout bounds every storage round-trip made on behalf of one call.
const opTimeout = 10 * time.Second

// GameService owns the game session state machine: start, round progression,
// answer/vote collection, scoring and termination. All mutating calls for a
// room are funneled through a per-room single-writer dispatcher.
type GameService struct {
	roomRepo    repository.RoomRepo
	playerRepo  repository.PlayerRepo
	sessionRepo repository.SessionRepo
	contentSvc  *ContentService
	roomSvc     *RoomService
	leaderboard cache.LeaderboardCache
	broadcaster Broadcaster
	dispatcher  *RoomDispatcher
	watchdog    *RoundWatchdog
}

// NewGameService creates a new game service. The dispatcher is shared with
// the player service so roster admission and game mutations for one room
// serialize on the same worker.
func NewGameService(
	roomRepo repository.RoomRepo,
	playerRepo repository.PlayerRepo,
	sessionRepo repository.SessionRepo,
	contentSvc *ContentService,
	roomSvc *RoomService,
	leaderboard cache.LeaderboardCache,
	dispatcher *RoomDispatcher,
) *GameService {
	s := &GameService{
		roomRepo:    roomRepo,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		contentSvc:  contentSvc,
		roomSvc:     roomSvc,
		leaderboard: leaderboard,
		dispatcher:  dispatcher,
	}
	s.watchdog = NewRoundWatchdog(s.forceAdvance)
	roomSvc.setTerminalHook(s.handleRoomClosed)
	return s
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartGame validates the host, shuffles the turn order, creates the session
// row and flips the room to playing. Host-only, needs at least two players.
func (s *GameService) StartGame(ctx context.Context, roomID, hostPlayerID string) (*model.GameSession, error) {
	var session *model.GameSession
	err := s.dispatcher.Run(roomID, func() error {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if room.Status == model.RoomPlaying {
			return ErrGameStarted
		}
		if room.Status.IsTerminal() {
			return ErrRoomClosed
		}

		players, err := s.playerRepo.GetByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		var host *model.Player
		for _, p := range players {
			if p.ID == hostPlayerID {
				host = p
				break
			}
		}
		if host == nil {
			return ErrPlayerNotFound
		}
		if !host.IsHost {
			return ErrNotHost
		}
		if len(players) < 2 {
			return ErrNotEnoughPlayers
		}

		if err := s.playerRepo.ResetScores(ctx, roomID); err != nil {
			return fmt.Errorf("failed to reset scores: %w", err)
		}
		if err := s.leaderboard.Reset(ctx, room.Code); err != nil {
			log.Warn().Err(err).Str("code", room.Code).Msg("failed to reset leaderboard")
		}

		order := make([]string, len(players))
		for i, p := range players {
			order[i] = p.ID
			if err := s.leaderboard.UpdateScore(ctx, room.Code, p.ID, 0); err != nil {
				log.Warn().Err(err).Str("playerId", p.ID).Msg("failed to init leaderboard entry")
			}
		}
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		content, err := s.contentSvc.GetRandomContent(ctx, room.Config.Categories, nil)
		if err != nil {
			return err
		}

		now := time.Now()
		session = &model.GameSession{
			ID:                 "s_" + uuid.New().String()[:8],
			RoomID:             roomID,
			CurrentRound:       1,
			TotalRounds:        room.Config.RoundsPerGame,
			CurrentPlayerIndex: 0,
			CurrentPlayerID:    order[0],
			PlayerOrder:        order,
			RoundType:          content.Type,
			CurrentContentID:   content.ID,
			CurrentContent:     content,
			UsedContentIDs:     []string{content.ID},
			RoundAnswers:       map[string]model.RoundAnswer{},
			RoundVotes:         map[string]string{},
			RoundStartedAt:     now,
			RoundEndsAt:        now.Add(showingQuestionDuration + time.Duration(room.Config.TimePerRound)*time.Second),
			Phase:              model.PhaseShowingQuestion,
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		if err := s.roomSvc.TransitionStatus(ctx, room, model.RoomPlaying); err != nil {
			return err
		}

		if s.broadcaster != nil {
			s.broadcaster.BroadcastToRoom(room.Code, EventGameStarted, session)
		}
		s.watchdog.Schedule(roomID, session.ID, 1, session.RoundEndsAt)
		log.Info().Str("code", room.Code).Str("sessionId", session.ID).Int("rounds", session.TotalRounds).Msg("game started")
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomClosed) {
			s.dispatcher.Release(roomID)
		}
		return nil, err
	}
	return session, nil
}

// SubmitAnswer records a player's free-text or yes/no answer for the current
// round. Last write wins per player; the map entry write is atomic so two
// players submitting together never lose each other's answer.
func (s *GameService) SubmitAnswer(ctx context.Context, sessionID, playerID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyAnswer
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.IsGameOver {
		return ErrGameOver
	}
	if session.Phase != model.PhaseAnswering {
		return ErrWrongPhase
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil || player.RoomID != session.RoomID {
		return ErrPlayerNotFound
	}

	answer := model.RoundAnswer{Answer: text, Timestamp: time.Now()}
	if err := s.sessionRepo.SetAnswer(ctx, sessionID, playerID, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	s.broadcastSession(ctx, session.RoomID, sessionID, EventSessionUpdated)
	return nil
}

// SubmitVote records a vote from a roster member of the session's room.
// Group-vote rounds take a target player ID in the same room and reject
// self-votes; challenge rounds take a completed/not_completed verdict.
func (s *GameService) SubmitVote(ctx context.Context, sessionID, voterID, value string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.IsGameOver {
		return ErrGameOver
	}
	if session.Phase != model.PhaseAnswering {
		return ErrWrongPhase
	}

	voter, err := s.playerRepo.GetByID(ctx, voterID)
	if err != nil {
		return err
	}
	if voter == nil || voter.RoomID != session.RoomID {
		return ErrPlayerNotFound
	}

	switch session.RoundType {
	case model.ContentChallenge:
		if value != model.VerdictCompleted && value != model.VerdictNotCompleted {
			return ErrInvalidVerdict
		}
	default:
		if value == voterID {
			return ErrSelfVote
		}
		target, err := s.playerRepo.GetByID(ctx, value)
		if err != nil {
			return err
		}
		if target == nil || target.RoomID != session.RoomID {
			return ErrPlayerNotFound
		}
	}

	if err := s.sessionRepo.SetVote(ctx, sessionID, voterID, value); err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}

	s.broadcastSession(ctx, session.RoomID, sessionID, EventSessionUpdated)
	return nil
}

// SetPhase performs the explicit showing_question -> answering transition.
// Any connected client observing the reveal window may trigger it.
func (s *GameService) SetPhase(ctx context.Context, sessionID string, phase model.Phase) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Phase != model.PhaseShowingQuestion || phase != model.PhaseAnswering {
		return ErrWrongPhase
	}

	if err := s.sessionRepo.SetPhase(ctx, sessionID, phase); err != nil {
		return fmt.Errorf("failed to set phase: %w", err)
	}

	if room, _ := s.roomRepo.GetByID(ctx, session.RoomID); room != nil && s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(room.Code, EventPhaseChanged, map[string]interface{}{
			"sessionId": sessionID,
			"phase":     phase,
		})
	}
	return nil
}

// AdvanceRound scores the ending round, rotates the hot seat and either
// starts the next round or finishes the game. Idempotent per round: the
// caller states which round it believes is ending, and the conditional
// replace guarantees only one advance per round number wins.
func (s *GameService) AdvanceRound(ctx context.Context, roomID, sessionID string, expectedRound int) (bool, error) {
	var gameOver bool
	var roomCode string
	err := s.dispatcher.Run(roomID, func() error {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		session, err := s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		if session.IsGameOver {
			return ErrGameOver
		}
		if session.CurrentRound != expectedRound {
			return ErrRoundAdvanced
		}

		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		if room == nil || session.RoomID != roomID {
			return ErrRoomNotFound
		}

		awards := scoreRound(session)
		for playerID, points := range awards {
			if err := s.playerRepo.AddScore(ctx, playerID, points); err != nil {
				return fmt.Errorf("failed to award points: %w", err)
			}
			if p, err := s.playerRepo.GetByID(ctx, playerID); err == nil && p != nil {
				if err := s.leaderboard.UpdateScore(ctx, room.Code, playerID, p.Score); err != nil {
					log.Warn().Err(err).Str("playerId", playerID).Msg("failed to update leaderboard")
				}
			}
		}

		if s.broadcaster != nil {
			s.broadcaster.BroadcastToRoom(room.Code, EventPhaseChanged, map[string]interface{}{
				"sessionId": sessionID,
				"phase":     model.PhaseShowingResults,
				"awards":    awards,
			})
		}

		nextRound := session.CurrentRound + 1
		if nextRound > session.TotalRounds {
			session.IsGameOver = true
			session.Phase = model.PhaseShowingResults
			ok, err := s.sessionRepo.ReplaceIfRound(ctx, session, expectedRound)
			if err != nil {
				return fmt.Errorf("failed to finish session: %w", err)
			}
			if !ok {
				return ErrRoundAdvanced
			}

			if err := s.roomSvc.TransitionStatus(ctx, room, model.RoomFinished); err != nil {
				return err
			}
			s.watchdog.Cancel(roomID)
			if s.broadcaster != nil {
				s.broadcaster.BroadcastToRoom(room.Code, EventGameOver, session)
			}
			gameOver = true
			roomCode = room.Code
			log.Info().Str("code", room.Code).Str("sessionId", sessionID).Msg("game over")
			return nil
		}

		content, err := s.contentSvc.GetRandomContent(ctx, room.Config.Categories, session.UsedContentIDs)
		if err != nil {
			return err
		}

		now := time.Now()
		session.CurrentRound = nextRound
		session.CurrentPlayerIndex = (session.CurrentPlayerIndex + 1) % len(session.PlayerOrder)
		session.CurrentPlayerID = session.PlayerOrder[session.CurrentPlayerIndex]
		session.RoundType = content.Type
		session.CurrentContentID = content.ID
		session.CurrentContent = content
		session.UsedContentIDs = append(session.UsedContentIDs, content.ID)
		session.RoundAnswers = map[string]model.RoundAnswer{}
		session.RoundVotes = map[string]string{}
		session.RoundStartedAt = now
		session.RoundEndsAt = now.Add(showingQuestionDuration + time.Duration(room.Config.TimePerRound)*time.Second)
		session.Phase = model.PhaseShowingQuestion

		ok, err := s.sessionRepo.ReplaceIfRound(ctx, session, expectedRound)
		if err != nil {
			return fmt.Errorf("failed to advance round: %w", err)
		}
		if !ok {
			return ErrRoundAdvanced
		}

		if s.broadcaster != nil {
			s.broadcaster.BroadcastToRoom(room.Code, EventSessionUpdated, session)
		}
		s.watchdog.Schedule(roomID, sessionID, session.CurrentRound, session.RoundEndsAt)
		return nil
	})
	if gameOver || errors.Is(err, ErrGameOver) {
		// The closing job has returned, so the worker and its channel can
		// go. Stragglers hitting a finished session release theirs too.
		s.dispatcher.Release(roomID)
	}
	if err == nil && gameOver && s.broadcaster != nil {
		s.broadcaster.DisconnectRoom(roomCode)
	}
	return gameOver, err
}

// GetGameState is the pull-based snapshot for initial load and the polling
// fallback when realtime events are missed.
func (s *GameService) GetGameState(ctx context.Context, roomID string) (*model.GameState, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	players, err := s.playerRepo.GetByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	state := &model.GameState{
		Room:    room,
		Players: players,
	}

	session, err := s.sessionRepo.GetActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		state.Session = session
		state.TimeRemaining = int(time.Until(session.RoundEndsAt).Seconds())
		if state.TimeRemaining < 0 {
			state.TimeRemaining = 0
		}
		for _, p := range players {
			if p.ID == session.HotSeatPlayerID() {
				state.HotSeatPlayer = p
				break
			}
		}
	}
	return state, nil
}

// GetGameResults summarizes a finished game: winner, rankings, duration.
// Rankings come from the Redis leaderboard; when the ZSET is missing or
// disagrees with the roster the durable scores take over.
func (s *GameService) GetGameResults(ctx context.Context, roomID, callerPlayerID string) (*model.GameResults, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	players, err := s.playerRepo.GetByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	results := &model.GameResults{
		TotalRounds: room.Config.RoundsPerGame,
		Rankings:    rankingsFromEntries(s.topEntries(ctx, room.Code, byID), byID),
	}
	if results.Rankings == nil {
		sort.SliceStable(players, func(i, j int) bool {
			return players[i].Score > players[j].Score
		})
		results.Rankings = make([]model.RankingEntry, 0, len(players))
		for i, p := range players {
			results.Rankings = append(results.Rankings, model.RankingEntry{
				PlayerID:    p.ID,
				DisplayName: p.DisplayName,
				AvatarEmoji: p.AvatarEmoji,
				Score:       p.Score,
				Rank:        i + 1,
			})
		}
	}
	if len(results.Rankings) > 0 {
		results.Winner = &results.Rankings[0]
	}
	if callerPlayerID != "" {
		results.YourRank = s.callerRank(ctx, room.Code, callerPlayerID, results.Rankings)
	}
	if room.StartedAt != nil && room.FinishedAt != nil {
		results.Duration = int(room.FinishedAt.Sub(*room.StartedAt).Seconds())
	}
	return results, nil
}

// topEntries reads the room's ZSET and returns nil unless it covers the
// roster exactly, so a stale or partial leaderboard never ranks a game.
func (s *GameService) topEntries(ctx context.Context, roomCode string, byID map[string]*model.Player) []cache.LeaderboardEntry {
	entries, err := s.leaderboard.GetTop(ctx, roomCode, len(byID))
	if err != nil {
		log.Warn().Err(err).Str("code", roomCode).Msg("failed to read leaderboard, ranking from roster")
		return nil
	}
	if len(entries) != len(byID) {
		return nil
	}
	for _, e := range entries {
		if _, ok := byID[e.PlayerID]; !ok {
			return nil
		}
	}
	return entries
}

func rankingsFromEntries(entries []cache.LeaderboardEntry, byID map[string]*model.Player) []model.RankingEntry {
	if entries == nil {
		return nil
	}
	rankings := make([]model.RankingEntry, 0, len(entries))
	for _, e := range entries {
		p := byID[e.PlayerID]
		rankings = append(rankings, model.RankingEntry{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			AvatarEmoji: p.AvatarEmoji,
			Score:       e.Score,
			Rank:        e.Rank,
		})
	}
	return rankings
}

func (s *GameService) callerRank(ctx context.Context, roomCode, playerID string, rankings []model.RankingEntry) int {
	if rank, err := s.leaderboard.GetRank(ctx, roomCode, playerID); err == nil && rank > 0 {
		return int(rank)
	}
	for _, e := range rankings {
		if e.PlayerID == playerID {
			return e.Rank
		}
	}
	return 0
}

// handleRoomClosed tears down per-room resources once the room reaches a
// terminal status. A finished room is transitioned from inside its own
// dispatcher job, so that path releases the worker in AdvanceRound instead,
// after the job has returned.
func (s *GameService) handleRoomClosed(room *model.Room) {
	s.watchdog.Cancel(room.ID)
	if room.Status == model.RoomAbandoned {
		s.dispatcher.Release(room.ID)
		if s.broadcaster != nil {
			s.broadcaster.DisconnectRoom(room.Code)
		}
	}
}

// forceAdvance is the watchdog callback: a round deadline passed without any
// client advancing, so the server does it. Losing an idempotency race here
// just means a client beat us to it.
func (s *GameService) forceAdvance(roomID, sessionID string, round int) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.AdvanceRound(ctx, roomID, sessionID, round)
	switch err {
	case nil, ErrRoundAdvanced, ErrGameOver:
	default:
		log.Error().Err(err).Str("roomId", roomID).Int("round", round).Msg("watchdog advance failed")
	}
}

func (s *GameService) broadcastSession(ctx context.Context, roomID, sessionID, event string) {
	if s.broadcaster == nil {
		return
	}
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil || room == nil {
		return
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	s.broadcaster.BroadcastToRoom(room.Code, event, session)
}

// scoreRound computes the per-player point awards for the round that is
// ending. The switch is exhaustive over the content types.
func scoreRound(session *model.GameSession) map[string]int {
	awards := make(map[string]int)

	switch session.RoundType {
	case model.ContentQuestion, model.ContentConfession, model.ContentHotSeat:
		// Flat award for everyone who answered.
		for playerID := range session.RoundAnswers {
			awards[playerID] = model.PointsAnswer
		}

	case model.ContentGroupVote:
		// All targets tied for the maximum vote count win, never just one.
		tally := make(map[string]int)
		for _, targetID := range session.RoundVotes {
			tally[targetID]++
		}
		max := 0
		for _, n := range tally {
			if n > max {
				max = n
			}
		}
		if max > 0 {
			for targetID, n := range tally {
				if n == max {
					awards[targetID] = model.PointsGroupVoteWin
				}
			}
		}

	case model.ContentChallenge:
		// Hot seat scores iff completed verdicts are a strict majority.
		completed, total := 0, 0
		for _, verdict := range session.RoundVotes {
			total++
			if verdict == model.VerdictCompleted {
				completed++
			}
		}
		if total > 0 && completed*2 > total {
			if hotSeat := session.HotSeatPlayerID(); hotSeat != "" {
				awards[hotSeat] = model.PointsChallengeDone
			}
		}
	}
	return awards
}
