package model

import "time"

// Phase is the sub-state of a round.
type Phase string

const (
	PhaseShowingQuestion Phase = "showing_question"
	PhaseAnswering       Phase = "answering"
	PhaseShowingResults  Phase = "showing_results"
	PhaseBetweenRounds   Phase = "between_rounds"
)

// RoundAnswer is one player's submission for the current round.
type RoundAnswer struct {
	Answer    string    `json:"answer" bson:"answer"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// GameSession is the single shared mutable state row for a playing room.
// Answer and vote maps are written with per-entry atomic updates so
// concurrent submissions never overwrite each other.
type GameSession struct {
	ID                 string                 `json:"id" bson:"_id,omitempty"`
	RoomID             string                 `json:"roomId" bson:"roomId"`
	CurrentRound       int                    `json:"currentRound" bson:"currentRound"`
	TotalRounds        int                    `json:"totalRounds" bson:"totalRounds"`
	CurrentPlayerIndex int                    `json:"currentPlayerIndex" bson:"currentPlayerIndex"`
	CurrentPlayerID    string                 `json:"currentPlayerId" bson:"currentPlayerId"`
	PlayerOrder        []string               `json:"playerOrder" bson:"playerOrder"`
	RoundType          ContentType            `json:"roundType" bson:"roundType"`
	CurrentContentID   string                 `json:"currentContentId" bson:"currentContentId"`
	CurrentContent     *GameContent           `json:"currentContent" bson:"currentContent"`
	UsedContentIDs     []string               `json:"usedContentIds" bson:"usedContentIds"`
	RoundAnswers       map[string]RoundAnswer `json:"roundAnswers" bson:"roundAnswers"`
	RoundVotes         map[string]string      `json:"roundVotes" bson:"roundVotes"` // voterID -> targetID or verdict
	RoundStartedAt     time.Time              `json:"roundStartedAt" bson:"roundStartedAt"`
	RoundEndsAt        time.Time              `json:"roundEndsAt" bson:"roundEndsAt"`
	Phase              Phase                  `json:"phase" bson:"phase"`
	IsGameOver         bool                   `json:"isGameOver" bson:"isGameOver"`
}

// HotSeatPlayerID returns playerOrder[currentPlayerIndex], the session invariant.
func (s *GameSession) HotSeatPlayerID() string {
	if len(s.PlayerOrder) == 0 || s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.PlayerOrder) {
		return ""
	}
	return s.PlayerOrder[s.CurrentPlayerIndex]
}

// GameState is the pull-based snapshot a client fetches on load or when
// realtime events are missed.
type GameState struct {
	Room          *Room        `json:"room"`
	Session       *GameSession `json:"session"`
	Players       []*Player    `json:"players"` // sorted by score descending
	HotSeatPlayer *Player      `json:"hotSeatPlayer,omitempty"`
	TimeRemaining int          `json:"timeRemaining"` // seconds, never negative
}

// RankingEntry is one row of the final results.
type RankingEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarEmoji string `json:"avatarEmoji"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

// GameResults summarizes a finished game.
type GameResults struct {
	Winner      *RankingEntry  `json:"winner"`
	Rankings    []RankingEntry `json:"rankings"`
	TotalRounds int            `json:"totalRounds"`
	Duration    int            `json:"duration"`           // seconds from startedAt to finishedAt
	YourRank    int            `json:"yourRank,omitempty"` // 1-indexed rank of the requesting player
}
